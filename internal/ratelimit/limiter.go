// Package ratelimit implements a fixed-window attempt counter on Redis.
//
// A window starts with the first attempt for an identifier and lasts for
// the configured number of seconds; once it expires the counter is gone
// and the identifier starts from zero.  Bursts of up to twice the limit
// across a window boundary are accepted.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Policy decides what happens when the counter store cannot be reached.
type Policy int

const (
	// FailOpen lets the attempt through.
	FailOpen Policy = iota
	// FailClosed rejects the attempt as if the limit were exceeded.
	FailClosed
)

func (p Policy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

// ParsePolicy accepts "open" or "closed".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	}
	return FailOpen, fmt.Errorf("ratelimit: unknown store failure policy %q", s)
}

// checkAndIncrement returns 1 when the counter already reached ARGV[1];
// otherwise it increments and, on the first increment, sets the expiry to
// ARGV[2] seconds.  A counter that somehow lost its TTL gets it back.
var checkAndIncrement = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
    return 1
end
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('TTL', KEYS[1]) == -1 then
    redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// Limiter counts attempts per identifier.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
	policy Policy
	log    zerolog.Logger
}

// New returns a limiter storing counters under "<prefix>:<identifier>".
func New(rdb redis.UniversalClient, prefix string, policy Policy, log zerolog.Logger) *Limiter {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &Limiter{rdb: rdb, prefix: prefix, policy: policy, log: log}
}

// Identifier builds the "client_ip:identity" counter identifier.
func Identifier(clientIP, identity string) string {
	if clientIP == "" {
		clientIP = "unknown"
	}
	return clientIP + ":" + identity
}

func (l *Limiter) key(identifier string) string { return l.prefix + ":" + identifier }

// Exceeded reports whether identifier already used max attempts in the
// current window, counting this attempt when it did not.  When the store
// fails the result follows the configured policy and the store error is
// returned alongside it.
func (l *Limiter) Exceeded(ctx context.Context, identifier string, max int, window time.Duration) (bool, error) {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	res, err := checkAndIncrement.Run(ctx, l.rdb, []string{l.key(identifier)}, max, secs).Int64()
	if err != nil {
		exceeded := l.policy == FailClosed
		ev := l.log.Warn()
		if exceeded {
			ev = l.log.Error()
		}
		ev.Err(err).Str("identifier", identifier).Str("policy", l.policy.String()).
			Msg("rate limit store unavailable")
		return exceeded, err
	}
	return res == 1, nil
}

// Reset clears the counter for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	return l.rdb.Del(ctx, l.key(identifier)).Err()
}
