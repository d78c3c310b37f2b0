package di

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lms-consulting-portal/backend/internal/service"
	"lms-consulting-portal/backend/internal/ws"
	"lms-consulting-portal/backend/pkg/config"
	"lms-consulting-portal/backend/pkg/health"
	"lms-consulting-portal/backend/pkg/jwt"
	"lms-consulting-portal/backend/pkg/logger"
	"lms-consulting-portal/backend/pkg/resilience"
	"lms-consulting-portal/backend/pkg/secrets"
	sharedredis "lms-consulting-portal/backend/shared/redis"
)

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Config *config.Config
	Logger *logger.Logger

	JWTService     *jwt.Service
	UserService    *service.UserService
	SessionService *service.SessionService
	MessageService *service.MessageService
	CannedService  *service.CannedResponseService
	Sweeper        *service.RetentionSweeper

	Redis         *sharedredis.Client
	HealthChecker *health.Checker

	Hub   *ws.Hub
	Relay *ws.Relay
}

// New wires the application graph from a database handle and loaded config
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	// The JWT secret prefers the secret store; env is the fallback
	if err := secrets.Init(log); err != nil {
		log.Warn("Secret manager unavailable, falling back to environment", "error", err)
	}
	jwtSecret := secrets.GetSecretWithDefault(context.Background(), "JWT_SECRET", cfg.JWT.Secret)
	jwtService := jwt.NewService(jwtSecret, cfg.JWT.Expiry)

	var redisClient *sharedredis.Client
	if cfg.Redis.Enabled {
		redisClient = sharedredis.NewClient()
	}

	userService := service.NewUserService(db)
	sessionService := service.NewSessionService(db)
	messageService := service.NewMessageService(db)
	cannedService := service.NewCannedResponseService(db, redisClient, log)
	sweeper := service.NewRetentionSweeper(sessionService, cfg.Chat.SessionRetention, cfg.Chat.SweepInterval, log)

	metrics, err := ws.NewMetrics()
	if err != nil {
		log.Warn("Relay metrics unavailable", "error", err)
		metrics = nil
	}

	hub := ws.NewHub(log, metrics)
	breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("chat-store"), log)
	relay := ws.NewRelay(sessionService, messageService, hub, breaker, log, metrics, cfg.Chat.MaxMessageLength)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	if redisClient != nil {
		checker.RegisterRedisCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		})
	}

	return &Container{
		DB:             db,
		Config:         cfg,
		Logger:         log,
		JWTService:     jwtService,
		UserService:    userService,
		SessionService: sessionService,
		MessageService: messageService,
		CannedService:  cannedService,
		Sweeper:        sweeper,
		Redis:          redisClient,
		HealthChecker:  checker,
		Hub:            hub,
		Relay:          relay,
	}, nil
}
