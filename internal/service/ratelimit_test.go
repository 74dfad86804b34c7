package service

import (
	"testing"
	"time"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	limiter := NewMemoryRateLimiter(50*time.Millisecond, 2)

	if !limiter.Allow("ann@x.com") || !limiter.Allow("ann@x.com") {
		t.Fatal("attempts under the cap were denied")
	}
	if limiter.Allow("ann@x.com") {
		t.Fatal("attempt over the cap was allowed")
	}
	// A different key has its own budget.
	if !limiter.Allow("bob@x.com") {
		t.Fatal("unrelated key was throttled")
	}

	time.Sleep(60 * time.Millisecond)
	if !limiter.Allow("ann@x.com") {
		t.Fatal("budget did not recover after the window passed")
	}
}

func TestMemoryRateLimiterKeyNormalization(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 1)

	if !limiter.Allow("  Ann@X.com ") {
		t.Fatal("first attempt denied")
	}
	if limiter.Allow("ann@x.com") {
		t.Fatal("case and whitespace variants must share one budget")
	}
}

func TestMemoryRateLimiterEmptyKey(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 5)
	if limiter.Allow("") {
		t.Fatal("empty key must be denied")
	}
}
