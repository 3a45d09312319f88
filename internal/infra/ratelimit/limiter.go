// Package ratelimit implements the RateLimiter contract with
// golang.org/x/time/rate, grounded on
// original_source/services/rate_limiter.py's sliding-window design,
// reshaped onto a token bucket per principal (§2.3/§5).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// Config controls baseline request budgets.
type Config struct {
	// BaselinePerHour is the requests/hour budget for a standard
	// access level; admin-tier levels get 2x, entry-tier 0.5x.
	BaselinePerHour int
	// ProviderPerSecond caps outbound calls to a shared LLM/embedding
	// provider, applied uniformly across all principals.
	ProviderPerSecond float64
	// CleanupInterval evicts idle principal limiters to bound memory.
	CleanupInterval time.Duration
}

// AccessTier scales the baseline limit by access level (§5: baseline,
// 2x baseline, 0.5x baseline).
type AccessTier func(domain.AccessLevel) float64

// Limiter rate-gates inbound requests per principal and outbound calls
// per provider.
type Limiter struct {
	cfg      Config
	tier     AccessTier
	mu       sync.Mutex
	byUser   map[int64]*limiterEntry
	byProv   map[string]*rate.Limiter
	cleanup  time.Duration
	lastScan time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter constructs a Limiter. tier resolves an access level's
// multiplier over cfg.BaselinePerHour; a nil tier treats every access
// level as baseline.
func NewLimiter(cfg Config, tier AccessTier) *Limiter {
	if cfg.BaselinePerHour <= 0 {
		cfg.BaselinePerHour = 1000
	}
	if cfg.ProviderPerSecond <= 0 {
		cfg.ProviderPerSecond = 5
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if tier == nil {
		tier = func(domain.AccessLevel) float64 { return 1 }
	}
	return &Limiter{
		cfg:     cfg,
		tier:    tier,
		byUser:  make(map[int64]*limiterEntry),
		byProv:  make(map[string]*rate.Limiter),
		cleanup: cfg.CleanupInterval,
	}
}

// AllowPrincipal reports whether userID may proceed now, and if not,
// how long until the bucket has a token.
func (l *Limiter) AllowPrincipal(_ context.Context, userID int64, accessLevel domain.AccessLevel) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictIdleLocked()

	entry, ok := l.byUser[userID]
	if !ok {
		limit := float64(l.cfg.BaselinePerHour) * l.tier(accessLevel) / float64(time.Hour/time.Second)
		burst := l.cfg.BaselinePerHour
		if burst < 1 {
			burst = 1
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(limit), burst)}
		l.byUser[userID] = entry
	}
	entry.lastSeen = time.Now()

	if entry.limiter.Allow() {
		return true, 0
	}
	reservation := entry.limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}

// AllowProvider reports whether an outbound call to the named provider
// may proceed now, sharing one limiter across all goroutines/principals.
func (l *Limiter) AllowProvider(_ context.Context, provider string) bool {
	l.mu.Lock()
	lim, ok := l.byProv[provider]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.cfg.ProviderPerSecond), int(l.cfg.ProviderPerSecond)+1)
		l.byProv[provider] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *Limiter) evictIdleLocked() {
	now := time.Now()
	if now.Sub(l.lastScan) < l.cleanup {
		return
	}
	l.lastScan = now
	for userID, entry := range l.byUser {
		if now.Sub(entry.lastSeen) > l.cleanup {
			delete(l.byUser, userID)
		}
	}
}

// BaselineTier scales limits per the spec's fixed three-tier table
// (§5): an admin-style level gets 2x baseline, an entry-style level
// gets 0.5x, everything else is 1x.
func BaselineTier(admin, entry domain.AccessLevel) AccessTier {
	return func(level domain.AccessLevel) float64 {
		switch level {
		case admin:
			return 2
		case entry:
			return 0.5
		default:
			return 1
		}
	}
}

var _ domain.RateLimiter = (*Limiter)(nil)
