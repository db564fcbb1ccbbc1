package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"dota/internal/domain"
)

// Store owns the active snapshot. Refresh collects a full new fact set
// first and only then publishes it with a single atomic pointer swap,
// so concurrent readers always see either the fully-old or fully-new
// snapshot, never a mixture. A failed refresh leaves the previous
// snapshot untouched.
type Store struct {
	source domain.CatalogSource
	logger *slog.Logger

	current   atomic.Pointer[Snapshot]
	refreshMu sync.Mutex // serializes refreshes; readers never block
	gen       uint64     // guarded by refreshMu
}

// NewStore creates a Store pulling from the given source.
func NewStore(source domain.CatalogSource, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{source: source, logger: logger}
}

// Current returns the active snapshot, or nil if no refresh has
// succeeded yet. The returned snapshot stays valid for the caller even
// if a refresh completes concurrently.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Refresh pulls a full, consistent fact set and atomically replaces the
// active snapshot. On failure the previous snapshot remains fully
// serviceable and the collection error is reported.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	facts, err := s.source.Collect(ctx)
	if err != nil {
		s.logger.Warn("catalog refresh failed; previous snapshot retained",
			"error", err, "generation", s.gen)
		return nil, domain.ErrRefresh(err, "catalog collection failed: %v", err)
	}

	s.gen++
	snap := Build(s.gen, facts)
	s.current.Store(snap)

	c := snap.Counts()
	s.logger.Info("catalog snapshot refreshed",
		"generation", c.Generation,
		"tables", c.Tables,
		"routines", c.Routines,
		"triggers", c.Triggers,
		"dependency_edges", c.DepEdges,
		"jobs", c.Jobs,
	)
	return snap, nil
}
