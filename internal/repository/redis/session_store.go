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
	sessionPrefix      = "session:"
	sessionActivityKey = "session_activity"
)

// SessionStore holds active pairings as two symmetric hashes plus one
// activity sorted set (score = last-active time) the reaper sweeps. Pair
// creation and teardown each run as a single Lua script, so a partial
// pairing (row for A but not B) is never observable.
type SessionStore struct {
	client *client.RedisClient
}

func NewSessionStore(client *client.RedisClient) *SessionStore {
	return &SessionStore{client: client}
}

// Both rows written together, after re-reading both participants inside
// the script: a caller's pre-check can go stale between its guard and this
// transaction (duplicate taps racing each other), and overwriting here
// would strand the earlier partner's symmetric row. A conflict aborts and
// leaves every existing row untouched.
const createPairScript = `
local existing = redis.call('HGET', KEYS[1], 'partner_id')
if existing and existing ~= ARGV[2] then
	return 0
end
existing = redis.call('HGET', KEYS[2], 'partner_id')
if existing and existing ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'partner_id', ARGV[2], 'established_at', ARGV[3], 'last_active_at', ARGV[3])
redis.call('HSET', KEYS[2], 'partner_id', ARGV[1], 'established_at', ARGV[3], 'last_active_at', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[2])
return 1
`

const endScript = `
local key = ARGV[2] .. ARGV[1]
local partner = redis.call('HGET', key, 'partner_id')
if not partner then
	return false
end
redis.call('DEL', key, ARGV[2] .. partner)
redis.call('ZREM', KEYS[1], ARGV[1], partner)
return partner
`

const touchScript = `
local now = ARGV[3]
for i = 1, 2 do
	local key = ARGV[4] .. ARGV[i]
	if redis.call('EXISTS', key) == 1 then
		redis.call('HSET', key, 'last_active_at', now)
		redis.call('ZADD', KEYS[1], now, ARGV[i])
	end
end
return 1
`

// Sweep everything idle past the cutoff. Each reclaimed pairing is removed
// from both sides and reported once.
const expireScript = `
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local out = {}
for _, id in ipairs(ids) do
	local key = ARGV[2] .. id
	local partner = redis.call('HGET', key, 'partner_id')
	if partner then
		redis.call('DEL', key, ARGV[2] .. partner)
		redis.call('ZREM', KEYS[1], id, partner)
		out[#out+1] = id
		out[#out+1] = partner
	else
		redis.call('ZREM', KEYS[1], id)
	end
end
return out
`

func (s *SessionStore) IsInSession(ctx context.Context, userID int64) (bool, error) {
	exists, err := s.client.Exists(ctx, sessionPrefix+strconv.FormatInt(userID, 10))
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return exists, nil
}

func (s *SessionStore) Partner(ctx context.Context, userID int64) (int64, bool, error) {
	val, err := s.client.Client.HGet(ctx, sessionPrefix+strconv.FormatInt(userID, 10), "partner_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up partner: %w", err)
	}
	partnerID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid partner id %q: %w", val, err)
	}
	return partnerID, true, nil
}

func (s *SessionStore) CreatePair(ctx context.Context, a, b int64) error {
	aID := strconv.FormatInt(a, 10)
	bID := strconv.FormatInt(b, 10)
	keys := []string{sessionPrefix + aID, sessionPrefix + bID, sessionActivityKey}
	result, err := s.client.Eval(ctx, createPairScript, keys, aID, bID, time.Now().Unix())
	if err != nil {
		util.Error("Failed to create session pair",
			zap.Int64("user_id", a),
			zap.Int64("partner_id", b),
			zap.Error(err))
		return fmt.Errorf("failed to create session pair: %w", err)
	}
	if n, ok := result.(int64); !ok || n != 1 {
		util.Warn("Session pair aborted, participant already paired",
			zap.Int64("user_id", a),
			zap.Int64("partner_id", b))
		return fmt.Errorf("create pair %d-%d: %w", a, b, model.ErrAlreadyPaired)
	}
	util.Info("Session pair created",
		zap.Int64("user_id", a),
		zap.Int64("partner_id", b))
	return nil
}

func (s *SessionStore) End(ctx context.Context, userID int64) (int64, bool, error) {
	result, err := s.client.Eval(ctx, endScript, []string{sessionActivityKey},
		strconv.FormatInt(userID, 10), sessionPrefix)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		util.Error("Failed to end session",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return 0, false, fmt.Errorf("failed to end session: %w", err)
	}

	val, ok := result.(string)
	if !ok {
		return 0, false, fmt.Errorf("unexpected result format from end script")
	}
	partnerID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid partner id in end result: %w", err)
	}

	util.Info("Session ended",
		zap.Int64("user_id", userID),
		zap.Int64("partner_id", partnerID))
	return partnerID, true, nil
}

func (s *SessionStore) Touch(ctx context.Context, a, b int64) error {
	_, err := s.client.Eval(ctx, touchScript, []string{sessionActivityKey},
		strconv.FormatInt(a, 10), strconv.FormatInt(b, 10), time.Now().Unix(), sessionPrefix)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *SessionStore) ExpireOlderThan(ctx context.Context, threshold time.Duration) ([]model.ExpiredPair, error) {
	// Exclusive cutoff: a session active exactly at the threshold survives.
	cutoff := "(" + strconv.FormatInt(time.Now().Add(-threshold).Unix(), 10)
	result, err := s.client.Eval(ctx, expireScript, []string{sessionActivityKey}, cutoff, sessionPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to expire sessions: %w", err)
	}

	fields, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result format from expire script")
	}

	pairs := make([]model.ExpiredPair, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		userID, err1 := parseID(fields[i])
		partnerID, err2 := parseID(fields[i+1])
		if err1 != nil || err2 != nil {
			return pairs, fmt.Errorf("invalid id in expire result")
		}
		pairs = append(pairs, model.ExpiredPair{UserID: userID, PartnerID: partnerID})
	}
	return pairs, nil
}

func (s *SessionStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, sessionActivityKey)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

func parseID(field interface{}) (int64, error) {
	s, ok := field.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected field type %T", field)
	}
	return strconv.ParseInt(s, 10, 64)
}
