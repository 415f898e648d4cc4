// Package memstore provides an in-memory implementation of
// pipeline.Store. Suitable for dev/testing.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/alertbot/internal/pipeline"
)

// Store holds posted-alert records in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]pipeline.Record // alert ID -> record
	now     func() time.Time
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records: make(map[string]pipeline.Record),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// HasAlertID reports whether a record with this alert ID exists.
func (s *Store) HasAlertID(_ context.Context, alertID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[alertID]
	return ok, nil
}

// HasRecentText reports whether a record with this header translation
// exists inside the recency window.
func (s *Store) HasRecentText(_ context.Context, headerTranslation string, window time.Duration) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-window)
	for _, rec := range s.records {
		if rec.HeaderTranslation == headerTranslation && !rec.CreatedAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// Insert stores a record, reporting false if the alert ID already
// exists. Matches the unique-constraint semantics of the durable store.
func (s *Store) Insert(_ context.Context, rec pipeline.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.AlertID]; ok {
		return false, nil
	}
	s.records[rec.AlertID] = rec
	return true, nil
}

// PruneOlderThan deletes records strictly older than now minus retention.
func (s *Store) PruneOlderThan(_ context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-retention)
	var deleted int64
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored records. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
