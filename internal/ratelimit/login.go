package ratelimit

import (
	"context"
	"strings"

	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyLogin = "login:"

type LoginLimiterParams struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Bucket  *TokenBucket     `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// LoginLimiter throttles login attempts per username and client address.
type LoginLimiter struct {
	log     *zap.Logger
	bucket  *TokenBucket
	local   *memoryBucket
	metrics *metrics.Metrics
	rate    float64
	burst   int
}

func NewLoginLimiter(p LoginLimiterParams) *LoginLimiter {
	burst := int(p.Cfg.LoginRateLimit.Capacity)
	if burst <= 0 {
		burst = 5
	}
	rate := p.Cfg.LoginRateLimit.RefillRate
	if rate <= 0 {
		rate = 0.1
	}
	return &LoginLimiter{
		log:     p.Log.Named("ratelimit.login"),
		bucket:  p.Bucket,
		local:   newMemoryBucket(p.Clock),
		metrics: p.Metrics,
		rate:    rate,
		burst:   burst,
	}
}

func (l *LoginLimiter) Allow(ctx context.Context, username, clientIP string) *RateLimitResult {
	key := keyLogin + strings.ToLower(strings.TrimSpace(username)) + ":" + clientIP

	var res *RateLimitResult
	if l.bucket != nil {
		shared, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
		if err != nil {
			l.log.Warn("shared login limiter unavailable", zap.Error(err))
		} else {
			res = shared
		}
	}
	if res == nil {
		res = l.local.Allow(key, l.rate, l.burst)
	}
	if !res.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, "login", "too_many_attempts")
	}
	return res
}
