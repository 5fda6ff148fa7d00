package infrastructure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MessageRateLimiter caps how many messages each account may dispatch per minute.
// Accounts without a configured cap are never throttled.
type MessageRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func NewMessageRateLimiter() *MessageRateLimiter {
	return &MessageRateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Configure sets the cap for an account; perMinute <= 0 removes it
func (rl *MessageRateLimiter) Configure(account string, perMinute int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if perMinute <= 0 {
		delete(rl.limiters, account)
		return
	}
	rl.limiters[account] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Wait blocks until the account may send, or ctx is done
func (rl *MessageRateLimiter) Wait(ctx context.Context, account string) error {
	rl.mu.RLock()
	limiter, ok := rl.limiters[account]
	rl.mu.RUnlock()

	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// Allow reports whether the account may send right now without waiting
func (rl *MessageRateLimiter) Allow(account string) bool {
	rl.mu.RLock()
	limiter, ok := rl.limiters[account]
	rl.mu.RUnlock()

	if !ok {
		return true
	}
	return limiter.Allow()
}

// GetStats returns the configured caps in messages per minute
func (rl *MessageRateLimiter) GetStats() map[string]float64 {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	stats := make(map[string]float64, len(rl.limiters))
	for account, limiter := range rl.limiters {
		stats[account] = float64(limiter.Limit()) * 60
	}
	return stats
}
