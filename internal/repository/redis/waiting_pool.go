package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"match-service/internal/client"
	"match-service/internal/model"
	"match-service/internal/util"
)

const (
	waitingPrefix      = "waiting:"
	waitingEntryPrefix = "waiting_entry:"
)

// WaitingPool is the attribute-partitioned FIFO of users awaiting a match,
// held in one sorted set per attribute (score = enqueue time) plus a hash
// per entry. All mutation goes through Lua scripts; Redis runs scripts
// serially, so a claim can never block on or collide with another claim.
type WaitingPool struct {
	client *client.RedisClient
}

func NewWaitingPool(client *client.RedisClient) *WaitingPool {
	return &WaitingPool{client: client}
}

// Upsert: drop any previous position (either attribute), take a fresh slot
// at the queue tail, rewrite the entry hash.
const enqueueScript = `
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[1], ARGV[4], ARGV[1])
redis.call('DEL', KEYS[3])
redis.call('HSET', KEYS[3], 'attribute', ARGV[2], 'alias', ARGV[3], 'enqueued_at', ARGV[4])
return 1
`

// Oldest entry out, atomically: pop the lowest score, consume the entry
// hash. Missing pool yields false, which surfaces as redis.Nil.
const claimScript = `
local ids = redis.call('ZRANGE', KEYS[1], 0, 0)
if #ids == 0 then
	return false
end
local id = ids[1]
redis.call('ZREM', KEYS[1], id)
local key = ARGV[1] .. id
local entry = redis.call('HMGET', key, 'attribute', 'alias', 'enqueued_at')
redis.call('DEL', key)
return {id, entry[1] or '', entry[2] or '', entry[3] or '0'}
`

const withdrawScript = `
local removed = redis.call('ZREM', KEYS[1], ARGV[1]) + redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('DEL', KEYS[3])
return removed
`

func (p *WaitingPool) Enqueue(ctx context.Context, userID int64, attr model.Attribute, alias string) error {
	return p.enqueueAt(ctx, userID, attr, alias, time.Now())
}

// Restore puts a claimed entry back at its original queue position. Used to
// roll back a claim whose pairing transaction failed, so a failed pairing
// leaves the pool exactly as before the attempt.
func (p *WaitingPool) Restore(ctx context.Context, entry *model.WaitingEntry) error {
	return p.enqueueAt(ctx, entry.UserID, entry.Attribute, entry.Alias, entry.EnqueuedAt)
}

func (p *WaitingPool) enqueueAt(ctx context.Context, userID int64, attr model.Attribute, alias string, at time.Time) error {
	id := strconv.FormatInt(userID, 10)
	keys := []string{
		waitingPrefix + string(attr),
		waitingPrefix + string(attr.Opposite()),
		waitingEntryPrefix + id,
	}
	_, err := p.client.Eval(ctx, enqueueScript, keys, id, string(attr), alias, at.UnixMicro())
	if err != nil {
		util.Error("Failed to enqueue waiting entry",
			zap.Int64("user_id", userID),
			zap.String("attribute", string(attr)),
			zap.Error(err))
		return fmt.Errorf("failed to enqueue waiting entry: %w", err)
	}
	util.Debug("Waiting entry enqueued",
		zap.Int64("user_id", userID),
		zap.String("attribute", string(attr)),
		zap.String("alias", alias))
	return nil
}

// ClaimOldest atomically removes and returns the oldest entry waiting under
// attr. Two concurrent claims never return the same entry.
func (p *WaitingPool) ClaimOldest(ctx context.Context, attr model.Attribute) (*model.WaitingEntry, bool, error) {
	result, err := p.client.Eval(ctx, claimScript, []string{waitingPrefix + string(attr)}, waitingEntryPrefix)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		util.Error("Failed to claim waiting entry",
			zap.String("attribute", string(attr)),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to claim waiting entry: %w", err)
	}

	fields, ok := result.([]interface{})
	if !ok || len(fields) != 4 {
		return nil, false, fmt.Errorf("unexpected result format from claim script")
	}

	entry, err := parseClaimedEntry(fields)
	if err != nil {
		return nil, false, err
	}

	util.Debug("Waiting entry claimed",
		zap.Int64("user_id", entry.UserID),
		zap.String("attribute", string(entry.Attribute)))
	return entry, true, nil
}

func (p *WaitingPool) Withdraw(ctx context.Context, userID int64) error {
	id := strconv.FormatInt(userID, 10)
	keys := []string{
		waitingPrefix + string(model.AttributeMale),
		waitingPrefix + string(model.AttributeFemale),
		waitingEntryPrefix + id,
	}
	_, err := p.client.Eval(ctx, withdrawScript, keys, id)
	if err != nil {
		util.Error("Failed to withdraw waiting entry",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to withdraw waiting entry: %w", err)
	}
	return nil
}

func (p *WaitingPool) Len(ctx context.Context, attr model.Attribute) (int64, error) {
	n, err := p.client.ZCard(ctx, waitingPrefix+string(attr))
	if err != nil {
		return 0, fmt.Errorf("failed to read waiting pool length: %w", err)
	}
	return n, nil
}

func parseClaimedEntry(fields []interface{}) (*model.WaitingEntry, error) {
	strs := make([]string, len(fields))
	for i, f := range fields {
		s, ok := f.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected field type %T in claim result", f)
		}
		strs[i] = s
	}

	userID, err := strconv.ParseInt(strs[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in claim result: %w", err)
	}
	enqueuedMicro, err := strconv.ParseInt(strs[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid enqueue time in claim result: %w", err)
	}

	return &model.WaitingEntry{
		UserID:     userID,
		Attribute:  model.Attribute(strs[1]),
		Alias:      strs[2],
		EnqueuedAt: time.UnixMicro(enqueuedMicro),
	}, nil
}
