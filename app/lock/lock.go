package lock

import (
	"context"
	"errors"
	"time"
)

var ErrLocked = errors.New("lock is held")

// Locker hands out advisory locks keyed by string. A lock expires after ttl
// even if release is never called.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// SiteKey is the lock key serializing publish runs for one site.
func SiteKey(siteID string) string {
	return "site:" + siteID
}
