package service

import (
	"go.uber.org/zap"

	"match-service/internal/config"
	"match-service/internal/model"
	"match-service/internal/transport"
	"match-service/internal/util"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg      *config.Config
	pool     model.WaitingPool
	sessions model.SessionStore
	attrs    model.AttributeStore
	events   model.EventPublisher
	history  model.HistoryArchive
	logger   *zap.Logger

	limiter    *RateLimiter
	names      *PseudonymGenerator
	filter     *util.ContentFilter
	matchmaker *Matchmaker
	reaper     *Reaper
}

// NewServiceFactory creates a new service factory. events and history may
// be nil when those collaborators are disabled.
func NewServiceFactory(
	cfg *config.Config,
	pool model.WaitingPool,
	sessions model.SessionStore,
	attrs model.AttributeStore,
	events model.EventPublisher,
	history model.HistoryArchive,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:      cfg,
		pool:     pool,
		sessions: sessions,
		attrs:    attrs,
		events:   events,
		history:  history,
		logger:   logger,
	}
}

// Matchmaker returns the matchmaker instance (singleton). The sink is
// supplied by whichever transport adapter is active.
func (f *ServiceFactory) Matchmaker(sink transport.ActionSink) *Matchmaker {
	if f.matchmaker == nil {
		f.matchmaker = NewMatchmaker(
			f.pool,
			f.sessions,
			f.attrs,
			f.RateLimiter(),
			f.Pseudonyms(),
			f.ContentFilter(),
			sink,
			f.events,
			f.history,
			f.logger,
		)
	}
	return f.matchmaker
}

// Reaper returns the session reaper instance (singleton).
func (f *ServiceFactory) Reaper() *Reaper {
	if f.reaper == nil {
		f.reaper = NewReaper(
			f.sessions,
			f.events,
			f.history,
			f.cfg.Match.ReapInterval,
			f.cfg.Match.IdleThreshold,
			f.logger,
		)
	}
	return f.reaper
}

func (f *ServiceFactory) RateLimiter() *RateLimiter {
	if f.limiter == nil {
		f.limiter = NewRateLimiter(f.cfg.Match.RateWindow, f.cfg.Match.RateMax)
	}
	return f.limiter
}

func (f *ServiceFactory) Pseudonyms() *PseudonymGenerator {
	if f.names == nil {
		f.names = NewPseudonymGenerator()
	}
	return f.names
}

func (f *ServiceFactory) ContentFilter() *util.ContentFilter {
	if f.filter == nil {
		f.filter = util.NewContentFilter(f.cfg.Match.ForbiddenWords)
	}
	return f.filter
}
