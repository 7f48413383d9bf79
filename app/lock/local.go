package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker holds locks in process memory.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]*entry
	now   func() time.Time
	clock uint64
}

type entry struct {
	owner     uint64
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]*entry),
		now:  time.Now,
	}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.held[key]; ok && now.Before(current.expiresAt) {
		return nil, ErrLocked
	}

	l.clock++
	owner := l.clock
	l.held[key] = &entry{owner: owner, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Leave a lock that expired and was re-acquired by someone else alone.
			if current, ok := l.held[key]; ok && current.owner == owner {
				delete(l.held, key)
			}
		})
	}, nil
}
