package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"match-service/internal/model"
	"match-service/internal/util"
)

// HistoryRepository is the durable, append-only archive of pairing
// lifecycle events, partitioned by day:
//
//	CREATE TABLE match_history (
//	    day        text,
//	    at         timestamp,
//	    id         uuid,
//	    event      text,
//	    user_id    bigint,
//	    partner_id bigint,
//	    reason     text,
//	    PRIMARY KEY ((day), at, id)
//	) WITH CLUSTERING ORDER BY (at DESC, id ASC);
//
// The live matching state never reads from here; the archive serves ops
// queries only.
type HistoryRepository struct {
	client *ScyllaClient
	logger *zap.Logger
}

const (
	insertEventStmt  = `INSERT INTO match_history (day, at, id, event, user_id, partner_id, reason) VALUES (?, ?, ?, ?, ?, ?, ?)`
	selectRecentStmt = `SELECT at, id, event, user_id, partner_id, reason FROM match_history WHERE day = ? LIMIT ?`
)

func NewHistoryRepository(client *ScyllaClient, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{client: client, logger: logger}
}

func (r *HistoryRepository) RecordPairing(ctx context.Context, a, b int64, at time.Time) error {
	return r.insertEvent(ctx, "paired", a, b, "", at)
}

func (r *HistoryRepository) RecordEnd(ctx context.Context, a, b int64, reason string, at time.Time) error {
	return r.insertEvent(ctx, "ended", a, b, reason, at)
}

func (r *HistoryRepository) insertEvent(ctx context.Context, event string, a, b int64, reason string, at time.Time) error {
	err := r.client.Session.Query(insertEventStmt,
		dayBucket(at), at, gocql.TimeUUID(), event, a, b, reason,
	).WithContext(ctx).Exec()
	if err != nil {
		util.Error("Failed to archive match history event",
			zap.String("event", event),
			zap.Int64("user_id", a),
			zap.Error(err))
		return fmt.Errorf("failed to archive match history event: %w", err)
	}
	return nil
}

// RecentPairings returns today's most recent pairings, newest first.
func (r *HistoryRepository) RecentPairings(ctx context.Context, limit int) ([]*model.PairingRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	// Rows are fetched with headroom because the partition interleaves
	// paired and ended events.
	iter := r.client.Session.Query(selectRecentStmt, dayBucket(time.Now()), limit*4).
		WithContext(ctx).Iter()

	var (
		records []*model.PairingRecord
		at      time.Time
		id      gocql.UUID
		event   string
		userID  int64
		partner int64
		reason  string
	)
	for iter.Scan(&at, &id, &event, &userID, &partner, &reason) {
		if event != "paired" {
			continue
		}
		records = append(records, &model.PairingRecord{
			ID:            id.String(),
			UserID:        userID,
			PartnerID:     partner,
			EstablishedAt: at,
		})
		if len(records) >= limit {
			break
		}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to read match history: %w", err)
	}
	return records, nil
}

func dayBucket(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}
