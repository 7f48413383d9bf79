package api

import (
	"testing"
	"time"
)

func TestSiteLimiter(t *testing.T) {
	limiter := newSiteLimiter(time.Hour)

	if ok, _ := limiter.Allow("a"); !ok {
		t.Fatal("Expected first call to be allowed")
	}

	ok, wait := limiter.Allow("a")
	if ok {
		t.Error("Expected second call to be throttled")
	}
	if wait <= 0 || wait > time.Hour {
		t.Errorf("Expected wait in (0, 1h], got %v", wait)
	}

	if ok, _ := limiter.Allow("b"); !ok {
		t.Error("Expected other site to be allowed")
	}

	limiter.Forget("a")
	if ok, _ := limiter.Allow("a"); !ok {
		t.Error("Expected forgotten site to be allowed again")
	}
}

func TestSiteLimiterDisabled(t *testing.T) {
	limiter := newSiteLimiter(0)

	for i := 0; i < 5; i++ {
		if ok, _ := limiter.Allow("a"); !ok {
			t.Fatalf("Expected call %d to be allowed", i+1)
		}
	}

	var nilLimiter *siteLimiter
	if ok, _ := nilLimiter.Allow("a"); !ok {
		t.Error("Expected nil limiter to allow")
	}
}
