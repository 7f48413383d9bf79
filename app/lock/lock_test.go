package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLocker_Exclusive(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, SiteKey("1"), time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := locker.Acquire(ctx, SiteKey("1"), time.Minute); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}

	otherRelease, err := locker.Acquire(ctx, SiteKey("2"), time.Minute)
	if err != nil {
		t.Errorf("Expected other key to be free, got %v", err)
	} else {
		otherRelease()
	}

	release()
	release()

	again, err := locker.Acquire(ctx, SiteKey("1"), time.Minute)
	if err != nil {
		t.Fatalf("Expected lock to be free after release, got %v", err)
	}
	again()
}

func TestLocalLocker_Expiry(t *testing.T) {
	locker := NewLocalLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	now = now.Add(2 * time.Second)
	freshRelease, err := locker.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Expected expired lock to be re-acquirable, got %v", err)
	}

	// Releasing the expired holder must not free the new holder.
	staleRelease()
	if _, err := locker.Acquire(ctx, "k", time.Minute); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked after stale release, got %v", err)
	}
	freshRelease()
}

func TestLocalLocker_Concurrent(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var acquired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := locker.Acquire(ctx, "k", time.Minute); err == nil {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if acquired.Load() != 1 {
		t.Errorf("Expected exactly 1 holder, got %d", acquired.Load())
	}
}

func TestLocalLocker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocalLocker().Acquire(ctx, "k", time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	locker, err := NewRedisLocker(addr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer locker.Close()
	ctx := context.Background()

	key := SiteKey("redis-test-" + time.Now().Format("150405.000000"))
	release, err := locker.Acquire(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := locker.Acquire(ctx, key, 10*time.Second); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}

	release()

	again, err := locker.Acquire(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("Expected lock to be free after release, got %v", err)
	}
	again()
}
