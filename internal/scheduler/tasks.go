package scheduler

import (
	"context"
	"time"
)

// Pruner removes sessions idle since before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Purger drops expired cache entries.
type Purger interface {
	Purge() int
}

// PruneSessions deletes sessions not updated within maxAge.
func PruneSessions(p Pruner, maxAge time.Duration) Task {
	return pruneSessionsAt(p, maxAge, time.Now)
}

func pruneSessionsAt(p Pruner, maxAge time.Duration, now func() time.Time) Task {
	return func(ctx context.Context) (int, error) {
		return p.Prune(ctx, now().Add(-maxAge))
	}
}

// PurgeCache removes expired classification cache entries.
func PurgeCache(p Purger) Task {
	return func(context.Context) (int, error) {
		return p.Purge(), nil
	}
}
