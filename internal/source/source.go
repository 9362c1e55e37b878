// Package source contains the read-only adapters that supply raw sleep
// sessions from each origin (health platform, manual store). Adapters share
// a uniform Read contract that never fails: a source that is unavailable
// reports the failure through its logger and yields an empty result, so the
// consolidation layer degrades to whatever sources remain.
package source

import (
	"context"
	"time"

	"github.com/blaisecz/sleepsense/internal/domain"
	"github.com/google/uuid"
)

// Source is a single origin of sleep sessions.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Read returns sessions with start times inside [from, to). It never
	// returns an error: total failures resolve to an empty slice and are
	// reported out-of-band, and malformed individual records are skipped
	// while the rest are still returned.
	Read(ctx context.Context, userID uuid.UUID, from, to time.Time) []domain.SleepSession
}
