package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.allow("k") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("k") {
		t.Fatal("request over the limit should be rejected")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	if !rl.allow("a") {
		t.Fatal("first request for a should be allowed")
	}
	if !rl.allow("b") {
		t.Fatal("first request for b should be allowed")
	}
	if rl.allow("a") {
		t.Fatal("second request for a should be rejected")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)
	if !rl.allow("k") {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("k") {
		t.Fatal("second immediate request should be rejected")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.allow("k") {
		t.Fatal("request after the window should be allowed again")
	}
}
