package service

import (
	"context"
	"encoding/json"
	"time"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/pkg/cache"
	"lms-consulting-portal/backend/pkg/logger"
	sharedredis "lms-consulting-portal/backend/shared/redis"

	"gorm.io/gorm"
)

const cannedCacheKey = "chat:canned-responses"

// CannedResponseService serves the admin console's canned replies. The list
// changes rarely, so reads go through redis when configured, falling back to
// the in-process cache otherwise.
type CannedResponseService struct {
	db       *gorm.DB
	redis    *sharedredis.Client
	memCache *cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewCannedResponseService creates a canned response service. redisClient
// may be nil when redis is not configured.
func NewCannedResponseService(db *gorm.DB, redisClient *sharedredis.Client, log *logger.Logger) *CannedResponseService {
	return &CannedResponseService{
		db:       db,
		redis:    redisClient,
		memCache: cache.NewCache(),
		cacheTTL: 5 * time.Minute,
		log:      log,
	}
}

// List returns all canned responses, cached
func (s *CannedResponseService) List(ctx context.Context) ([]models.CannedResponse, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cannedCacheKey); err == nil {
			var responses []models.CannedResponse
			if err := json.Unmarshal([]byte(cached), &responses); err == nil {
				return responses, nil
			}
		} else if !sharedredis.IsNotFound(err) {
			s.log.Warn("Canned response cache read failed", "error", err.Error())
		}
	} else if cached, ok := s.memCache.Get(cannedCacheKey); ok {
		if responses, ok := cached.([]models.CannedResponse); ok {
			return responses, nil
		}
	}

	var responses []models.CannedResponse
	if err := s.db.Order("id ASC").Find(&responses).Error; err != nil {
		return nil, err
	}

	s.fillCache(ctx, responses)
	return responses, nil
}

// Create adds a canned response and invalidates the cache
func (s *CannedResponseService) Create(ctx context.Context, response *models.CannedResponse) error {
	if err := s.db.Create(response).Error; err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CannedResponseService) fillCache(ctx context.Context, responses []models.CannedResponse) {
	if s.redis != nil {
		payload, err := json.Marshal(responses)
		if err != nil {
			return
		}
		if err := s.redis.Set(ctx, cannedCacheKey, payload, s.cacheTTL); err != nil {
			s.log.Warn("Canned response cache write failed", "error", err.Error())
		}
		return
	}
	s.memCache.SetWithExpiration(cannedCacheKey, responses, s.cacheTTL)
}

func (s *CannedResponseService) invalidate(ctx context.Context) {
	if s.redis != nil {
		if err := s.redis.Del(ctx, cannedCacheKey); err != nil {
			s.log.Warn("Canned response cache invalidation failed", "error", err.Error())
		}
		return
	}
	s.memCache.Delete(cannedCacheKey)
}
