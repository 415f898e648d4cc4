// Package pipeline implements the alert admission pipeline: decide which
// feed entities are new, valid, and not duplicates of recently posted
// alerts, post the survivors, and keep a rolling history window for
// dedup and pruning.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/alertbot/internal/alert"
)

// Fetcher retrieves the current feed contents.
type Fetcher interface {
	Fetch(ctx context.Context) ([]alert.Entity, error)
}

// Publisher posts alerts under an established session identity.
type Publisher interface {
	EnsureSession(ctx context.Context) error
	PostAlert(ctx context.Context, a alert.Alert) error
}

// Options are the tunable windows of the pipeline. The window literals
// live in configuration, never in the cycle logic.
type Options struct {
	// Lookback bounds how far back a "new" alert may be backdated by the
	// provider and still be treated as current.
	Lookback time.Duration

	// Retention is the age past which history records are pruned.
	Retention time.Duration

	// SeenCacheSize caps the in-process recency cache of posted IDs.
	SeenCacheSize int
}

// RunResult summarizes one pipeline cycle.
type RunResult struct {
	ID         string        `json:"id"`
	Entities   int           `json:"entities"`
	Posted     int           `json:"posted"`
	Recorded   int           `json:"recorded"`
	Pruned     int64         `json:"pruned"`
	FeedFailed bool          `json:"feed_failed"`
	Duration   time.Duration `json:"-"`
}

// Service orchestrates one polling cycle. It is stateless across
// invocations beyond the durable store and the bounded seen cache, so
// overlapping invocations are safe: the store's uniqueness constraint on
// alert_id is the only concurrency control.
type Service struct {
	fetcher   Fetcher
	publisher Publisher
	store     Store
	detector  *Detector
	opts      Options
	seen      *seenCache
	logger    log.Logger
	metrics   *Metrics

	now func() time.Time
}

// NewService wires the pipeline. metrics may be nil (dev/tests).
func NewService(fetcher Fetcher, publisher Publisher, store Store, detector *Detector, opts Options, logger log.Logger, m *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		fetcher:   fetcher,
		publisher: publisher,
		store:     store,
		detector:  detector,
		opts:      opts,
		seen:      newSeenCache(opts.SeenCacheSize),
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Run executes one cycle: login, fetch, per-entity admission and
// posting in feed order, then retention pruning. A feed failure aborts
// entity processing but not the cycle; pruning runs regardless. Run only
// returns an error when the cycle could not complete at all (no
// session, or an unexpected panic), which the invocation boundary maps
// to a 500.
func (s *Service) Run(ctx context.Context) (res *RunResult, err error) {
	start := s.now()
	res = &RunResult{ID: ulid.Make().String()}
	L := s.logger.With("run_id", res.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			L.Error(ctx, err, "cycle aborted by panic")
		}
		res.Duration = s.now().Sub(start)
		if s.metrics != nil {
			result := "ok"
			if err != nil {
				result = "error"
			}
			s.metrics.RunsTotal.WithLabelValues(result).Inc()
			s.metrics.RunDuration.WithLabelValues(result).Observe(res.Duration.Seconds())
		}
	}()

	if err := s.publisher.EnsureSession(ctx); err != nil {
		return res, fmt.Errorf("establish session: %w", err)
	}

	s.processEntities(ctx, L, res)
	s.prune(ctx, L, res)

	L.Info(ctx, "cycle complete",
		"entities", res.Entities,
		"posted", res.Posted,
		"recorded", res.Recorded,
		"pruned", res.Pruned,
		"feed_failed", res.FeedFailed,
	)
	return res, nil
}

func (s *Service) processEntities(ctx context.Context, L log.Logger, res *RunResult) {
	entities, err := s.fetcher.Fetch(ctx)
	if err != nil {
		// Recoverable: skip this cycle's entities, next tick retries.
		L.Error(ctx, err, "feed fetch failed, aborting entity processing")
		res.FeedFailed = true
		if s.metrics != nil {
			s.metrics.FeedFetchTotal.WithLabelValues("error").Inc()
		}
		return
	}
	if s.metrics != nil {
		s.metrics.FeedFetchTotal.WithLabelValues("ok").Inc()
	}

	res.Entities = len(entities)
	bufferTimestamp := s.now().Add(-s.opts.Lookback).Unix()

	for i := range entities {
		s.processEntity(ctx, L, &entities[i], bufferTimestamp, res)
	}

	if res.Posted == 0 {
		L.Info(ctx, "no new alerts", "entities", res.Entities)
	}
}

// processEntity runs one entity through normalize, admission, both
// duplicate checks, publish, and persist, in that order, short-circuiting
// on the first negative result.
func (s *Service) processEntity(ctx context.Context, L log.Logger, e *alert.Entity, bufferTimestamp int64, res *RunResult) {
	a, ok := alert.Normalize(e)
	if !ok {
		s.countEntity(outcomeNotEnglish)
		return
	}
	if !alert.Admissible(e, bufferTimestamp) {
		s.countEntity(outcomeInadmissible)
		return
	}

	if s.seen.Contains(a.ID) || s.detector.IsIDDuplicate(ctx, a.ID) {
		s.countEntity(outcomeDuplicateID)
		return
	}
	if s.detector.IsTextDuplicate(ctx, a.HeaderTranslation) {
		s.countEntity(outcomeDuplicateText)
		return
	}

	// Publish before persisting: a post whose record fails to write can
	// be posted again later, whereas the reverse ordering can lose a
	// post forever. The cost is a possible duplicate post if the insert
	// fails right after a successful publish.
	if err := s.publisher.PostAlert(ctx, a); err != nil {
		L.Error(ctx, err, "publish failed", "alert_id", a.ID)
		s.countEntity(outcomePublishError)
		return
	}
	res.Posted++
	s.seen.Add(a.ID)
	s.countEntity(outcomePublished)
	if s.metrics != nil {
		s.metrics.PublishedTotal.Inc()
	}

	inserted, err := s.store.Insert(ctx, Record{
		AlertID:           a.ID,
		HeaderTranslation: a.HeaderTranslation,
		CreatedAt:         s.now().UTC(),
	})
	switch {
	case err != nil:
		L.Error(ctx, err, "record insert failed", "alert_id", a.ID)
	case !inserted:
		// Lost the insert race to an overlapping cycle.
		L.Info(ctx, "alert already recorded", "alert_id", a.ID)
	default:
		res.Recorded++
	}
}

// prune is cycle-level housekeeping, independent of admission outcomes.
// Failures are logged, never escalated.
func (s *Service) prune(ctx context.Context, L log.Logger, res *RunResult) {
	n, err := s.store.PruneOlderThan(ctx, s.opts.Retention)
	if err != nil {
		L.Error(ctx, err, "retention pruning failed")
		return
	}
	res.Pruned = n
	if s.metrics != nil {
		s.metrics.PrunedTotal.Add(float64(n))
	}
	if n > 0 {
		L.Info(ctx, "pruned old alert records", "deleted", n)
	}
}

func (s *Service) countEntity(outcome string) {
	if s.metrics != nil {
		s.metrics.EntitiesTotal.WithLabelValues(outcome).Inc()
	}
}
