package billing

import (
	"context"
	"time"
)

// Locker guards in-flight processing of one event key across replicas.
// release must be safe to call once acquired is true.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

func lockKey(eventKey string) string {
	return "webhook:lock:" + eventKey
}
