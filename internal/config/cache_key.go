package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key holding a login session record.
func (r *CacheKeyStruct) SessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// SessionEventsChannel returns the PubSub channel for session change notifications.
func (r *CacheKeyStruct) SessionEventsChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:events", sessionID)
}

// AttemptKey returns the cache key holding a quiz attempt's state record.
func (r *CacheKeyStruct) AttemptKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s", attemptID)
}

// AttemptAnswersKey returns the hash of questionId -> answer for an attempt.
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// AttemptSubmitLockKey returns the in-flight guard for an attempt submission.
func (r *CacheKeyStruct) AttemptSubmitLockKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:submitting", attemptID)
}

// CheckoutEventsChannel returns the PubSub channel for checkout status changes.
func (r *CacheKeyStruct) CheckoutEventsChannel(checkoutID string) string {
	return fmt.Sprintf("checkout:%s:events", checkoutID)
}

// RateLimitKey returns the request counter for one client in one window.
func (r *CacheKeyStruct) RateLimitKey(scope, clientIP string, windowStart int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, clientIP, windowStart)
}

var CacheKey = NewCacheKeyStruct()
