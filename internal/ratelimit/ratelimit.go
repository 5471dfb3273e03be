// Package ratelimit implements the per-tenant AI-builder rate limits of §5:
// a 10 req/min in-process burst limiter and a 200 req/day limiter backed by
// Redis so the daily budget survives a restart.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"golang.org/x/time/rate"
)

// BurstRatePerMinute and DailyBudget are the §5 opaque budgets.
const (
	BurstRatePerMinute = 10
	DailyBudget        = 200
)

// Limiter enforces both the burst and daily budgets for one tenant at a
// time; callers key every call by tenant id.
type Limiter struct {
	burstMu sync.Mutex
	burst   map[string]*rate.Limiter
	daily   *limiter.Limiter
}

func New(redisClient *redis.Client) (*Limiter, error) {
	store, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix:   "outbound-core:ratelimit",
		MaxRetry: 3,
	})
	if err != nil {
		return nil, err
	}
	dailyRate := limiter.Rate{Period: 24 * time.Hour, Limit: DailyBudget}
	return &Limiter{
		burst: make(map[string]*rate.Limiter),
		daily: limiter.New(store, dailyRate),
	}, nil
}

// Result reports which budget (if any) rejected the request.
type Result struct {
	Allowed        bool
	BurstExceeded  bool
	DailyExceeded  bool
	DailyRemaining int64
}

// Allow checks the burst limiter first (cheap, no network) and only
// consults Redis for the daily budget if the burst check passes.
func (l *Limiter) Allow(ctx context.Context, tenantID string) (Result, error) {
	if !l.allowBurst(tenantID) {
		return Result{Allowed: false, BurstExceeded: true}, nil
	}

	res, err := l.daily.Get(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}
	if res.Reached {
		return Result{Allowed: false, DailyExceeded: true, DailyRemaining: 0}, nil
	}
	return Result{Allowed: true, DailyRemaining: res.Remaining}, nil
}

func (l *Limiter) allowBurst(tenantID string) bool {
	l.burstMu.Lock()
	lim, ok := l.burst[tenantID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(BurstRatePerMinute)/60), BurstRatePerMinute)
		l.burst[tenantID] = lim
	}
	l.burstMu.Unlock()
	return lim.Allow()
}
