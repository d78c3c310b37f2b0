package service

import (
	"fmt"
	"time"

	"lms-consulting-portal/backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RetentionSweeper replaces the source system's store-enforced TTL index:
// on a fixed schedule it hard-deletes every session past the retention
// window, active or not, together with its messages.
type RetentionSweeper struct {
	sessions  *SessionService
	retention time.Duration
	interval  time.Duration
	log       *logger.Logger
	cron      *cron.Cron
}

// NewRetentionSweeper creates a sweeper with the given retention window and
// sweep interval
func NewRetentionSweeper(sessions *SessionService, retention, interval time.Duration, log *logger.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		sessions:  sessions,
		retention: retention,
		interval:  interval,
		log:       log,
		cron:      cron.New(),
	}
}

// Start schedules the sweep and runs one immediately so restarts do not let
// expired sessions linger for a full interval
func (r *RetentionSweeper) Start() error {
	spec := fmt.Sprintf("@every %s", r.interval)
	if _, err := r.cron.AddFunc(spec, r.sweep); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	r.cron.Start()
	go r.sweep()

	r.log.Info("Retention sweeper started",
		"retention", r.retention.String(),
		"interval", r.interval.String(),
	)
	return nil
}

// Stop halts the schedule, waiting for an in-flight sweep to finish
func (r *RetentionSweeper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *RetentionSweeper) sweep() {
	sessions, messages, err := r.sessions.PurgeExpired(r.retention)
	if err != nil {
		r.log.LogError(err, "Retention sweep failed")
		return
	}
	if sessions > 0 {
		r.log.Info("Retention sweep removed expired sessions",
			"sessions", sessions,
			"messages", messages,
		)
	}
}
