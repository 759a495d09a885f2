package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"match-service/internal/model"
)

// Reaper sweeps the session store on a fixed interval and reclaims
// pairings idle beyond the threshold. It is a blunt liveness backstop:
// participants are not notified when their rows are reclaimed, only a
// lifecycle event is published. A failed sweep is logged and the next tick
// runs normally.
type Reaper struct {
	sessions  model.SessionStore
	events    model.EventPublisher // optional
	history   model.HistoryArchive // optional
	interval  time.Duration
	threshold time.Duration
	logger    *zap.Logger
}

func NewReaper(sessions model.SessionStore, events model.EventPublisher, history model.HistoryArchive, interval, threshold time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}
	return &Reaper{
		sessions:  sessions,
		events:    events,
		history:   history,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Run sweeps until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Session reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("threshold", r.threshold))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Session reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass. Errors are logged, never propagated, so one
// bad sweep cannot take the loop down.
func (r *Reaper) Sweep(ctx context.Context) {
	expired, err := r.sessions.ExpireOlderThan(ctx, r.threshold)
	if err != nil {
		r.logger.Error("Session sweep failed", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		r.logger.Debug("Session sweep found nothing to reclaim")
		return
	}

	r.logger.Info("Reclaimed idle sessions", zap.Int("count", len(expired)))

	for _, pair := range expired {
		if r.events != nil {
			if err := r.events.Publish(ctx, model.MatchEvent{
				Type:      model.EventSessionExpired,
				UserID:    pair.UserID,
				PartnerID: pair.PartnerID,
			}); err != nil {
				r.logger.Warn("Failed to publish expiry event", zap.Error(err))
			}
		}
		if r.history != nil {
			if err := r.history.RecordEnd(ctx, pair.UserID, pair.PartnerID, "expired", time.Now().UTC()); err != nil {
				r.logger.Warn("Failed to archive expiry", zap.Error(err))
			}
		}
	}
}
