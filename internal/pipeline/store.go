package pipeline

import (
	"context"
	"time"
)

// Record is one posted alert in durable history. Records are insert-once
// and immutable; they leave the store only through PruneOlderThan.
type Record struct {
	AlertID           string
	HeaderTranslation string
	CreatedAt         time.Time
}

// Store is the persistence interface for posted-alert history.
type Store interface {
	// HasAlertID reports whether a record with this alert_id exists,
	// regardless of age.
	HasAlertID(ctx context.Context, alertID string) (bool, error)

	// HasRecentText reports whether a record with this header
	// translation exists with created_at inside the given window.
	HasRecentText(ctx context.Context, headerTranslation string, window time.Duration) (bool, error)

	// Insert records a posted alert. A uniqueness conflict on alert_id
	// is a benign lost race and returns (false, nil), not an error.
	Insert(ctx context.Context, rec Record) (inserted bool, err error)

	// PruneOlderThan deletes records with created_at strictly older than
	// now minus the retention window, returning how many were removed.
	PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}
