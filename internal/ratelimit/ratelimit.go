// Package ratelimit paces calls to external market data providers.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/fd1az/debt-rebalancer/internal/apperror"
)

// Limiter enforces a per-minute call budget for one provider.
type Limiter struct {
	name      string
	perMinute int
	limiter   *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute calls with a burst of a
// tenth of the budget. Zero or less disables limiting.
func New(name string, requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, 1)}
	}

	burst := max(requestsPerMinute/10, 1)
	return &Limiter{
		name:      name,
		perMinute: requestsPerMinute,
		limiter:   rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), burst),
	}
}

// Unlimited reports whether the limiter lets every call through.
func (l *Limiter) Unlimited() bool {
	return l.perMinute == 0
}

// Wait blocks until a call is allowed. When ctx ends first, or its deadline
// is closer than the next free slot, it returns a RateLimitExceeded error.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(l.name))
	}
	return nil
}

// Allow reports whether a call may happen now, consuming a slot if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
