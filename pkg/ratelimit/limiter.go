package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	redis "github.com/redis/go-redis/v9"
	"github.com/richxcame/transitflow/pkg/config"
)

// Endpoint names. Location pushes share one bucket whether they arrive over
// HTTP or the websocket.
const (
	EndpointLocationPush = "location-push"
	EndpointRouteFind    = "route-find"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rate_limit_decisions_total",
	Help: "Rate limit decisions by endpoint and outcome",
}, []string{"endpoint", "outcome"})

// Rule is the bucket shape for one endpoint: Limit tokens refill per Window
// on top of Burst extra capacity.
type Rule struct {
	Limit  int
	Burst  int
	Window time.Duration
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// Limiter is a Redis token bucket keyed by endpoint and caller identity.
type Limiter struct {
	client redis.Cmdable
	cfg    config.RateLimitConfig
	script *redis.Script
	now    func() time.Time
}

// ARGV: now (ms), refill rate (tokens/ms), capacity, ttl (ms).
// Returns {allowed, tokens left, retry after ms}.
const tokenBucketScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
    tokens = capacity
    ts = now
end
if ts == nil then
    ts = now
end
if now > ts then
    tokens = math.min(capacity, tokens + (now - ts) * rate)
    ts = now
end

local allowed = 0
if tokens >= 1 then
    allowed = 1
    tokens = tokens - 1
end

redis.call("HSET", key, "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", key, ttl)

local retry = 0
if allowed == 0 then
    retry = math.ceil((1 - tokens) / rate)
end

return {allowed, math.floor(tokens), retry}
`

// NewLimiter builds a limiter over client.
func NewLimiter(client redis.Cmdable, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		cfg:    cfg,
		script: redis.NewScript(tokenBucketScript),
		now:    time.Now,
	}
}

// Enabled reports whether Allow ever denies. A nil limiter is disabled.
func (l *Limiter) Enabled() bool {
	return l != nil && l.cfg.Enabled
}

// RuleFor merges the endpoint override, if any, onto the defaults.
func (l *Limiter) RuleFor(endpoint string) Rule {
	rule := Rule{
		Limit:  l.cfg.DefaultLimit,
		Burst:  l.cfg.DefaultBurst,
		Window: l.cfg.Window(),
	}

	if override, ok := l.cfg.EndpointOverrides[endpoint]; ok {
		if override.Limit > 0 {
			rule.Limit = override.Limit
		}
		if override.Burst > 0 {
			rule.Burst = override.Burst
		}
		if override.WindowSeconds > 0 {
			rule.Window = time.Duration(override.WindowSeconds) * time.Second
		}
	}

	if rule.Burst < 0 {
		rule.Burst = 0
	}
	return rule
}

// Allow takes one token from the identity's bucket for endpoint. Redis errors
// are returned with a zero Result; callers decide whether to fail open.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}

	rule := l.RuleFor(endpoint)
	if rule.Limit <= 0 {
		return Result{Allowed: true, Window: rule.Window}, nil
	}

	windowMillis := rule.Window.Milliseconds()
	rate := float64(rule.Limit) / float64(windowMillis)
	capacity := float64(rule.Limit + rule.Burst)
	key := fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)

	raw, err := l.script.Run(ctx, l.client, []string{key},
		l.now().UnixMilli(), formatFloat(rate), formatFloat(capacity), windowMillis*2,
	).Result()
	if err != nil {
		decisionsTotal.WithLabelValues(endpoint, "error").Inc()
		return Result{}, fmt.Errorf("rate limit %s: %w", endpoint, err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		decisionsTotal.WithLabelValues(endpoint, "error").Inc()
		return Result{}, errors.New("rate limit: unexpected script reply")
	}

	remaining := toInt64(values[1])
	result := Result{
		Allowed:   toInt64(values[0]) == 1,
		Remaining: int(remaining),
		Limit:     rule.Limit,
		Window:    rule.Window,
	}

	if result.Allowed {
		decisionsTotal.WithLabelValues(endpoint, "allowed").Inc()
		missing := math.Max(0, capacity-float64(remaining))
		result.ResetAfter = time.Duration(math.Ceil(missing/rate)) * time.Millisecond
		return result, nil
	}

	decisionsTotal.WithLabelValues(endpoint, "denied").Inc()
	result.RetryAfter = time.Duration(toInt64(values[2])) * time.Millisecond
	result.ResetAfter = result.RetryAfter
	return result, nil
}

// WithNow swaps the clock.
func (l *Limiter) WithNow(now func() time.Time) {
	l.now = now
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 10, 64)
}

func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	default:
		return 0
	}
}
