package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "quota:user:"

func redisKey(userID uuid.UUID) string {
	return redisKeyPrefix + userID.String()
}

// All scripts read the clock with TIME so every replica of the service
// agrees on elapsed time. Timestamps are stored in milliseconds.

var provisionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
redis.call('HSET', KEYS[1], 'remaining', ARGV[1], 'last_reset_ms', now, 'updated_ms', now)
return 1
`)

// Returns {status, remaining, last_reset_ms, reset} where status is
// 1 allowed, 0 denied, -1 missing.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {-1, 0, 0, 0}
end
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
local last = tonumber(redis.call('HGET', KEYS[1], 'last_reset_ms'))
if remaining > 0 then
  remaining = remaining - 1
  redis.call('HSET', KEYS[1], 'remaining', remaining, 'updated_ms', now)
  return {1, remaining, last, 0}
end
if now - last >= tonumber(ARGV[2]) then
  remaining = tonumber(ARGV[1]) - 1
  redis.call('HSET', KEYS[1], 'remaining', remaining, 'last_reset_ms', now, 'updated_ms', now)
  return {1, remaining, now, 1}
end
return {0, remaining, last, 0}
`)

var refundScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
if remaining < tonumber(ARGV[1]) then
  local t = redis.call('TIME')
  local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
  remaining = remaining + 1
  redis.call('HSET', KEYS[1], 'remaining', remaining, 'updated_ms', now)
end
return remaining
`)

// Returns {exists, remaining, last_reset_ms, updated_ms, now_ms}.
var snapshotScript = redis.NewScript(`
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {0, 0, 0, 0, now}
end
local v = redis.call('HMGET', KEYS[1], 'remaining', 'last_reset_ms', 'updated_ms')
return {1, tonumber(v[1]), tonumber(v[2]), tonumber(v[3] or v[2]), now}
`)

type redisStore struct {
	rdb    redis.Scripter
	limits Limits
}

// NewRedisStore returns a Store keeping one hash per user under quota:user:{id}.
func NewRedisStore(rdb redis.Scripter, limits Limits) Store {
	return &redisStore{rdb: rdb, limits: limits}
}

func (s *redisStore) Provision(ctx context.Context, userID uuid.UUID, initial int) error {
	if err := provisionScript.Run(ctx, s.rdb, []string{redisKey(userID)}, initial).Err(); err != nil {
		return fmt.Errorf("provisioning quota record: %w", err)
	}
	return nil
}

func (s *redisStore) Consume(ctx context.Context, userID uuid.UUID) (Decision, error) {
	res, err := consumeScript.Run(ctx, s.rdb, []string{redisKey(userID)},
		s.limits.MaxDailyUses, s.limits.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("consuming quota: %w", err)
	}
	if len(res) != 4 {
		return Decision{}, fmt.Errorf("consuming quota: unexpected script reply %v", res)
	}

	switch res[0] {
	case -1:
		return Decision{}, ErrNotFound
	case 1:
		return Decision{Allowed: true, RemainingUses: int(res[1]), Reset: res[3] == 1}, nil
	default:
		return Decision{
			Allowed:       false,
			RemainingUses: int(res[1]),
			NextResetAt:   time.UnixMilli(res[2]).Add(s.limits.Window),
		}, nil
	}
}

func (s *redisStore) Refund(ctx context.Context, userID uuid.UUID) (int, error) {
	remaining, err := refundScript.Run(ctx, s.rdb, []string{redisKey(userID)}, s.limits.MaxDailyUses).Int()
	if err != nil {
		return 0, fmt.Errorf("refunding quota: %w", err)
	}
	if remaining < 0 {
		return 0, ErrNotFound
	}
	return remaining, nil
}

func (s *redisStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	res, err := snapshotScript.Run(ctx, s.rdb, []string{redisKey(userID)}).Int64Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching quota record: %w", err)
	}
	if len(res) != 5 {
		return nil, fmt.Errorf("fetching quota record: unexpected script reply %v", res)
	}
	if res[0] == 0 {
		return nil, ErrNotFound
	}
	return &Record{
		UserID:        userID,
		RemainingUses: int(res[1]),
		LastResetAt:   time.UnixMilli(res[2]),
		UpdatedAt:     time.UnixMilli(res[3]),
		ObservedAt:    time.UnixMilli(res[4]),
	}, nil
}
