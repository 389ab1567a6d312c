package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultVerifyMaxAttempts = 5
	defaultVerifyCooldown    = 15 * time.Minute
)

var (
	ErrVerifyRateLimited  = errors.New("2fa verify rate limited")
	ErrLimiterUnavailable = errors.New("2fa limiter unavailable")
)

type LimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// reserveScript takes one attempt from the window unless it is exhausted.
// Returns the attempt number, or -1 when refused. The TTL is armed on the
// first attempt so the window is fixed.
var reserveScript = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n >= tonumber(ARGV[1]) then
	return -1
end
n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return n
`)

// RedisVerifyLimiter counts second-factor attempts per user in a fixed
// window. An attempt is reserved before the code is checked and a success
// clears the window, so concurrent guesses cannot exceed the maximum.
// A nil limiter or nil client allows everything.
type RedisVerifyLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
}

func NewRedisVerifyLimiter(client redis.UniversalClient, cfg LimiterConfig) *RedisVerifyLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultVerifyMaxAttempts
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultVerifyCooldown
	}
	return &RedisVerifyLimiter{redis: client, maxAttempts: int64(max), cooldown: cd}
}

func (l *RedisVerifyLimiter) key(userID string) string {
	return "2fa:att:" + userID
}

func (l *RedisVerifyLimiter) Reserve(ctx context.Context, userID string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	n, err := reserveScript.Run(ctx, l.redis, []string{l.key(userID)}, l.maxAttempts, l.cooldown.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if n < 0 {
		return ErrVerifyRateLimited
	}
	return nil
}

func (l *RedisVerifyLimiter) Reset(ctx context.Context, userID string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}
