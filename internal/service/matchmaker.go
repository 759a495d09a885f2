package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"match-service/internal/model"
	"match-service/internal/transport"
	"match-service/internal/util"
)

// Matchmaker orchestrates admission, pairing, teardown and relay across the
// waiting pool and session store. It is transport agnostic: both the
// long-polling and webhook adapters drive the same instance. The store
// components provide the atomicity; the matchmaker only sequences them.
type Matchmaker struct {
	pool     model.WaitingPool
	sessions model.SessionStore
	attrs    model.AttributeStore
	limiter  *RateLimiter
	names    *PseudonymGenerator
	filter   *util.ContentFilter
	sink     transport.ActionSink
	events   model.EventPublisher // optional
	history  model.HistoryArchive // optional
	logger   *zap.Logger
}

func NewMatchmaker(
	pool model.WaitingPool,
	sessions model.SessionStore,
	attrs model.AttributeStore,
	limiter *RateLimiter,
	names *PseudonymGenerator,
	filter *util.ContentFilter,
	sink transport.ActionSink,
	events model.EventPublisher,
	history model.HistoryArchive,
	logger *zap.Logger,
) *Matchmaker {
	return &Matchmaker{
		pool:     pool,
		sessions: sessions,
		attrs:    attrs,
		limiter:  limiter,
		names:    names,
		filter:   filter,
		sink:     sink,
		events:   events,
		history:  history,
		logger:   logger,
	}
}

// Start greets the user and begins a fresh declaration cycle. A user who is
// already paired keeps their session and gets the session controls back.
func (m *Matchmaker) Start(ctx context.Context, userID int64) error {
	inSession, err := m.sessions.IsInSession(ctx, userID)
	if err != nil {
		return m.transientFailure(ctx, userID, "start", err)
	}
	if inSession {
		m.reply(ctx, userID, msgAlreadyChatting, transport.ControlsSession)
		return nil
	}

	// Fresh declaration required per cycle.
	if err := m.attrs.Clear(ctx, userID); err != nil {
		return m.transientFailure(ctx, userID, "start", err)
	}
	m.reply(ctx, userID, msgWelcome, transport.ControlsAttribute)
	return nil
}

// Declare records the user's attribute and attempts a match.
func (m *Matchmaker) Declare(ctx context.Context, userID int64, attr model.Attribute) error {
	if !attr.Valid() {
		return fmt.Errorf("invalid attribute %q", attr)
	}
	if err := m.attrs.Set(ctx, userID, attr); err != nil {
		return m.transientFailure(ctx, userID, "declare", err)
	}
	return m.requestMatch(ctx, userID, attr)
}

// requestMatch is the single critical section of the engine: a user is
// matched at most once per request, and both symmetric session rows become
// visible together or not at all.
func (m *Matchmaker) requestMatch(ctx context.Context, userID int64, attr model.Attribute) error {
	inSession, err := m.sessions.IsInSession(ctx, userID)
	if err != nil {
		return m.transientFailure(ctx, userID, "request_match", err)
	}
	if inSession {
		// Duplicate declaration while paired is informational, not an error.
		m.reply(ctx, userID, msgAlreadyChatting, transport.ControlsSession)
		return model.ErrAlreadyPaired
	}

	// A re-declare must drop the user's own stale entry before the claim
	// runs, or a user switching attributes could claim themselves.
	if err := m.pool.Withdraw(ctx, userID); err != nil {
		return m.transientFailure(ctx, userID, "request_match", err)
	}

	candidate, ok, err := m.pool.ClaimOldest(ctx, attr.Opposite())
	if err != nil {
		return m.transientFailure(ctx, userID, "request_match", err)
	}

	if !ok {
		alias := m.names.For(userID, attr)
		if err := m.pool.Enqueue(ctx, userID, attr, alias); err != nil {
			return m.transientFailure(ctx, userID, "request_match", err)
		}
		m.logger.Info("User queued for match",
			zap.Int64("user_id", userID),
			zap.String("attribute", string(attr)),
			zap.String("alias", alias))
		m.reply(ctx, userID, fmt.Sprintf(msgSearching, alias), transport.ControlsSession)
		return nil
	}

	if err := m.sessions.CreatePair(ctx, userID, candidate.UserID); err != nil {
		// The claim already happened; put the candidate back at their
		// original position so a failed pairing leaves both stores as
		// they were before the attempt.
		if restoreErr := m.pool.Restore(ctx, candidate); restoreErr != nil {
			m.logger.Error("Failed to restore claimed entry after pairing failure",
				zap.Int64("user_id", candidate.UserID),
				zap.Error(restoreErr))
		}
		if errors.Is(err, model.ErrAlreadyPaired) {
			// A concurrent request for the same user won the pairing
			// between our guard and the write. The candidate is back in
			// the queue; treat this request like the guard had caught it.
			m.reply(ctx, userID, msgAlreadyChatting, transport.ControlsSession)
			return model.ErrAlreadyPaired
		}
		return m.transientFailure(ctx, userID, "request_match", err)
	}

	// Aliases are regenerated at pairing time; the queue alias was only
	// shown to the waiting user while they waited.
	userAlias := m.names.For(userID, attr)
	candidateAlias := m.names.For(candidate.UserID, candidate.Attribute)

	m.logger.Info("Users paired",
		zap.Int64("user_id", userID),
		zap.Int64("partner_id", candidate.UserID),
		zap.String("attribute", string(attr)))

	m.reply(ctx, userID, fmt.Sprintf(msgChatStarted, candidateAlias), transport.ControlsSession)
	m.reply(ctx, candidate.UserID, fmt.Sprintf(msgChatStarted, userAlias), transport.ControlsSession)

	m.publishEvent(ctx, model.MatchEvent{
		Type:      model.EventPairCreated,
		UserID:    userID,
		PartnerID: candidate.UserID,
	})
	if m.history != nil {
		if err := m.history.RecordPairing(ctx, userID, candidate.UserID, time.Now().UTC()); err != nil {
			m.logger.Warn("Failed to archive pairing", zap.Error(err))
		}
	}
	return nil
}

// Next tears the user's session down and immediately re-enters matching
// with their last declared attribute.
func (m *Matchmaker) Next(ctx context.Context, userID int64) error {
	partnerID, ended, err := m.sessions.End(ctx, userID)
	if err != nil {
		return m.transientFailure(ctx, userID, "next", err)
	}
	if !ended {
		m.reply(ctx, userID, msgNotPaired, transport.ControlsNone)
		return model.ErrNotPaired
	}

	m.vacatePartner(ctx, userID, partnerID, msgPartnerMovedOn, "next")

	attr, known, err := m.attrs.Get(ctx, userID)
	if err != nil {
		return m.transientFailure(ctx, userID, "next", err)
	}
	if !known {
		m.reply(ctx, userID, msgPickAgain, transport.ControlsAttribute)
		return nil
	}
	return m.requestMatch(ctx, userID, attr)
}

// Stop tears down any session, withdraws the user from the pool and clears
// their declared attribute. Safe to call on an already idle user.
func (m *Matchmaker) Stop(ctx context.Context, userID int64) error {
	partnerID, ended, err := m.sessions.End(ctx, userID)
	if err != nil {
		return m.transientFailure(ctx, userID, "stop", err)
	}
	if ended {
		m.vacatePartner(ctx, userID, partnerID, msgPartnerStopped, "stop")
	}

	if err := m.pool.Withdraw(ctx, userID); err != nil {
		return m.transientFailure(ctx, userID, "stop", err)
	}
	if err := m.attrs.Clear(ctx, userID); err != nil {
		return m.transientFailure(ctx, userID, "stop", err)
	}
	m.limiter.Forget(userID)

	m.reply(ctx, userID, msgStopped, transport.ControlsNone)
	return nil
}

// vacatePartner notifies the partner their session is gone, clears any
// stale waiting entry they held, and records the teardown.
func (m *Matchmaker) vacatePartner(ctx context.Context, userID, partnerID int64, notice, reason string) {
	m.reply(ctx, partnerID, notice, transport.ControlsAttribute)
	if err := m.pool.Withdraw(ctx, partnerID); err != nil {
		m.logger.Warn("Failed to withdraw vacated partner",
			zap.Int64("partner_id", partnerID),
			zap.Error(err))
	}
	m.publishEvent(ctx, model.MatchEvent{
		Type:      model.EventSessionEnded,
		UserID:    userID,
		PartnerID: partnerID,
		Reason:    reason,
	})
	if m.history != nil {
		if err := m.history.RecordEnd(ctx, userID, partnerID, reason, time.Now().UTC()); err != nil {
			m.logger.Warn("Failed to archive session end", zap.Error(err))
		}
	}
}

// RelayText forwards a text payload to the user's partner. This path never
// touches the waiting pool and only reads the session store.
func (m *Matchmaker) RelayText(ctx context.Context, userID int64, text string) error {
	partnerID, err := m.relayTarget(ctx, userID)
	if err != nil {
		return err
	}

	if m.filter.Forbidden(text) {
		m.reply(ctx, userID, msgForbidden, transport.ControlsNone)
		m.publishEvent(ctx, model.MatchEvent{
			Type:      model.EventPolicyViolation,
			UserID:    userID,
			PartnerID: partnerID,
		})
		return model.ErrPolicyViolation
	}

	if err := m.sink.SendText(ctx, partnerID, relayPrefix+text, transport.ControlsNone); err != nil {
		m.logger.Error("Failed to relay text",
			zap.Int64("user_id", userID),
			zap.Int64("partner_id", partnerID),
			zap.Error(err))
		m.reply(ctx, userID, msgTransient, transport.ControlsNone)
		return err
	}
	return nil
}

// RelayMedia forwards a media reference to the user's partner. Captions go
// through the same denylist as text.
func (m *Matchmaker) RelayMedia(ctx context.Context, userID int64, media model.MediaRef, caption string) error {
	partnerID, err := m.relayTarget(ctx, userID)
	if err != nil {
		return err
	}

	if caption != "" && m.filter.Forbidden(caption) {
		m.reply(ctx, userID, msgForbidden, transport.ControlsNone)
		m.publishEvent(ctx, model.MatchEvent{
			Type:      model.EventPolicyViolation,
			UserID:    userID,
			PartnerID: partnerID,
		})
		return model.ErrPolicyViolation
	}
	if caption != "" {
		caption = relayPrefix + caption
	}

	if err := m.sink.ForwardMedia(ctx, partnerID, media, caption); err != nil {
		m.logger.Error("Failed to relay media",
			zap.Int64("user_id", userID),
			zap.Int64("partner_id", partnerID),
			zap.String("kind", string(media.Kind)),
			zap.Error(err))
		m.reply(ctx, userID, msgTransient, transport.ControlsNone)
		return err
	}
	return nil
}

// relayTarget applies the rate limit and resolves the user's partner.
func (m *Matchmaker) relayTarget(ctx context.Context, userID int64) (int64, error) {
	if !m.limiter.Allow(userID) {
		m.reply(ctx, userID, msgRateLimited, transport.ControlsNone)
		return 0, model.ErrRateLimited
	}

	partnerID, ok, err := m.sessions.Partner(ctx, userID)
	if err != nil {
		return 0, m.transientFailure(ctx, userID, "relay", err)
	}
	if !ok {
		m.reply(ctx, userID, msgNotPairedYet, transport.ControlsSession)
		return 0, model.ErrNotPaired
	}
	return partnerID, nil
}

func (m *Matchmaker) transientFailure(ctx context.Context, userID int64, action string, err error) error {
	m.logger.Error("Store operation failed",
		zap.String("action", action),
		zap.Int64("user_id", userID),
		zap.Error(err))
	m.reply(ctx, userID, msgTransient, transport.ControlsNone)
	return fmt.Errorf("%s: %w: %v", action, model.ErrStoreUnavailable, err)
}

func (m *Matchmaker) reply(ctx context.Context, userID int64, text string, controls transport.Controls) {
	if err := m.sink.SendText(ctx, userID, text, controls); err != nil {
		m.logger.Warn("Failed to send reply",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

func (m *Matchmaker) publishEvent(ctx context.Context, event model.MatchEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish match event",
			zap.String("type", event.Type),
			zap.Error(err))
	}
}
