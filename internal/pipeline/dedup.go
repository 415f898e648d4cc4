package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// FailPolicy decides what a duplicate check reports when its storage
// lookup fails.
type FailPolicy string

const (
	// FailClosed treats a lookup error as "is a duplicate", blocking the
	// post. Used for the identity check so a storage fault never causes
	// a double-post.
	FailClosed FailPolicy = "fail-closed"

	// FailOpen treats a lookup error as "not a duplicate". Used for the
	// secondary text check so a slow store does not suppress a
	// legitimately new alert under a fresh identifier.
	FailOpen FailPolicy = "fail-open"
)

// ParseFailPolicy validates a policy string from configuration.
func ParseFailPolicy(s string) (FailPolicy, error) {
	switch FailPolicy(s) {
	case FailClosed, FailOpen:
		return FailPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid fail policy %q (must be %q or %q)", s, FailClosed, FailOpen)
	}
}

// Detector runs the two independent duplicate checks against durable
// history. Both must come back false before an alert is posted.
type Detector struct {
	store      Store
	textWindow time.Duration
	idPolicy   FailPolicy
	textPolicy FailPolicy
	logger     log.Logger
	metrics    *Metrics
}

// NewDetector creates a detector with the given per-check fail policies.
// The default configuration is FailClosed for the identity check and
// FailOpen for the text check.
func NewDetector(store Store, textWindow time.Duration, idPolicy, textPolicy FailPolicy, logger log.Logger, m *Metrics) *Detector {
	if logger == nil {
		logger = log.Nop()
	}
	return &Detector{
		store:      store,
		textWindow: textWindow,
		idPolicy:   idPolicy,
		textPolicy: textPolicy,
		logger:     logger,
		metrics:    m,
	}
}

// IsIDDuplicate reports whether an alert with this identifier was
// already posted, at any age. A lookup failure resolves per the
// configured policy.
func (d *Detector) IsIDDuplicate(ctx context.Context, alertID string) bool {
	found, err := d.store.HasAlertID(ctx, alertID)
	if err != nil {
		d.logger.Error(ctx, err, "id duplicate check failed", "alert_id", alertID, "policy", d.idPolicy)
		if d.metrics != nil {
			d.metrics.DedupFailures.WithLabelValues("id").Inc()
		}
		return d.idPolicy == FailClosed
	}
	return found
}

// IsTextDuplicate reports whether the same header text was posted within
// the recency window, guarding against re-announcements under a new
// identifier. A lookup failure resolves per the configured policy.
func (d *Detector) IsTextDuplicate(ctx context.Context, headerTranslation string) bool {
	found, err := d.store.HasRecentText(ctx, headerTranslation, d.textWindow)
	if err != nil {
		d.logger.Error(ctx, err, "text duplicate check failed", "policy", d.textPolicy)
		if d.metrics != nil {
			d.metrics.DedupFailures.WithLabelValues("text").Inc()
		}
		return d.textPolicy == FailClosed
	}
	return found
}
