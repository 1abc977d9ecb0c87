package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	ActionSendMessage         = "send_message"
	ActionCreateRoom          = "create_room"
	ActionRegisterTransaction = "register_transaction"
	ActionToggleLike          = "toggle_like"
	ActionAPIRequest          = "api_request"
)

// Rule describes one bucket: Burst tokens, refilled by Refill every Every.
type Rule struct {
	Burst  int
	Refill int
	Every  time.Duration
}

// DefaultRules are applied per user and action.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		// 30 messages burst, then one every 2 seconds
		ActionSendMessage: {Burst: 30, Refill: 1, Every: 2 * time.Second},
		// 10 new rooms burst, then one a minute
		ActionCreateRoom:          {Burst: 10, Refill: 1, Every: time.Minute},
		ActionRegisterTransaction: {Burst: 5, Refill: 1, Every: time.Minute},
		ActionToggleLike:          {Burst: 30, Refill: 1, Every: time.Second},
		// keyed by client IP
		ActionAPIRequest: {Burst: 60, Refill: 1, Every: time.Second},
	}
}

var defaultRule = Rule{Burst: 20, Refill: 1, Every: 3 * time.Second}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

func NewTokenBucket(maxTokens, refillRate int, refillTime time.Duration, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available. When none is, it reports the wait until the next refill.
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now
	elapsed := now.Sub(tb.lastRefill)
	if intervals := int(elapsed / tb.refillTime); intervals > 0 {
		tb.tokens += intervals * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(intervals) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

func (tb *TokenBucket) Tokens() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.tokens
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.lastUsed
}

// RateLimiter manages rate limiting for different users and actions
type RateLimiter struct {
	buckets map[string]*TokenBucket
	rules   map[string]Rule
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewRateLimiter(rules map[string]Rule) *RateLimiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		rules:   rules,
		now:     time.Now,
	}
}

// Allow checks if a user action is allowed
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			rule, ok := rl.rules[action]
			if !ok {
				rule = defaultRule
			}
			bucket = NewTokenBucket(rule.Burst, rule.Refill, rule.Every, rl.now())
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow(rl.now())
}

// Status returns remaining and maximum tokens for a user action.
func (rl *RateLimiter) Status(userID, action string) (tokens int, maxTokens int) {
	rl.mutex.RLock()
	bucket, exists := rl.buckets[userID+":"+action]
	rl.mutex.RUnlock()

	if !exists {
		return 0, 0
	}
	return bucket.Tokens(), bucket.maxTokens
}

// Cleanup drops buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.idleSince()) > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine prunes idle buckets until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
