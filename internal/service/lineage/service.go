// Package lineage orchestrates snapshot lookups, writer detection, and
// topology building into the lineage operations the transport exposes.
package lineage

import (
	"context"
	"log/slog"

	"dota/internal/depindex"
	"dota/internal/domain"
	"dota/internal/resolve"
	"dota/internal/snapshot"
	"dota/internal/topology"
)

// Service answers lineage questions against the current catalog
// snapshot. All results of one call originate from a single snapshot
// generation.
type Service struct {
	store         *snapshot.Store
	idx           *depindex.Index
	defaultSchema string
	maxDepth      int
	logger        *slog.Logger
}

// NewService creates a lineage service. defaultSchema is the schema
// preferred during disambiguation; maxDepth bounds upstream topology
// expansion (clamped to the hard cap).
func NewService(store *snapshot.Store, idx *depindex.Index, defaultSchema string, maxDepth int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultSchema == "" {
		defaultSchema = "dbo"
	}
	if maxDepth < 0 || maxDepth > topology.HardDepthCap {
		maxDepth = topology.DefaultMaxDepth
	}
	return &Service{
		store:         store,
		idx:           idx,
		defaultSchema: defaultSchema,
		maxDepth:      maxDepth,
		logger:        logger,
	}
}

// Refresh pulls a new catalog snapshot and returns its summary counts.
func (s *Service) Refresh(ctx context.Context) (snapshot.Counts, error) {
	snap, err := s.store.Refresh(ctx)
	if err != nil {
		return snapshot.Counts{}, err
	}
	return snap.Counts(), nil
}

// snapshotOrRefresh returns the active snapshot, performing the initial
// refresh on first use.
func (s *Service) snapshotOrRefresh(ctx context.Context) (*snapshot.Snapshot, error) {
	if snap := s.store.Current(); snap != nil {
		return snap, nil
	}
	s.logger.Info("no catalog snapshot yet, refreshing")
	return s.store.Refresh(ctx)
}

// FindTablesWithColumn returns every table containing the named column,
// exact and case-insensitive. With baseOnly set, views and other
// non-base tables are filtered out.
func (s *Service) FindTablesWithColumn(ctx context.Context, column string, baseOnly bool) ([]domain.TableCandidate, error) {
	if column == "" {
		return nil, domain.ErrValidation("column name is required")
	}
	snap, err := s.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.TableCandidate
	for _, t := range snap.TablesWithColumn(column) {
		if baseOnly && !t.IsBaseTable {
			continue
		}
		out = append(out, domain.TableCandidate{
			Table:       t.Ref(),
			IsBaseTable: t.IsBaseTable,
			RowCount:    t.RowCount,
		})
	}
	return out, nil
}

// PopulationRequest carries the inputs of a population query. Table
// optionally pins the target table, skipping disambiguation; MaxDepth
// overrides the configured upstream depth when positive.
type PopulationRequest struct {
	Column   string
	Hint     string
	Table    string
	MaxDepth int
}

// ResolvePopulation answers "where does this column get populated":
// locate candidate tables, disambiguate, gather writers, and build the
// lineage topology.
func (s *Service) ResolvePopulation(ctx context.Context, req PopulationRequest) (*domain.PopulationResult, error) {
	if req.Column == "" {
		return nil, domain.ErrValidation("column name is required")
	}
	snap, err := s.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	tables, err := s.candidateTables(snap, req)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]*domain.DependencyEntry, len(tables))
	candidates := make([]domain.TableCandidate, 0, len(tables))
	for _, t := range tables {
		entry := s.idx.Entry(snap, t, req.Column)
		entries[t.Ref().Qualified()] = entry
		candidates = append(candidates, domain.TableCandidate{
			Table:       t.Ref(),
			IsBaseTable: t.IsBaseTable,
			RowCount:    t.RowCount,
			WriterCount: len(entry.Writers),
			HasTrigger:  entry.HasTriggerWriter(),
		})
	}

	ranking := resolve.Rank(candidates, s.defaultSchema, req.Hint)
	chosen := tableByRef(tables, ranking.Chosen.Table)
	entry := entries[ranking.Chosen.Table.Qualified()]

	depth := s.maxDepth
	if req.MaxDepth > 0 {
		depth = req.MaxDepth
	}
	builder := topology.NewBuilder(snap, s.idx, depth)

	result := &domain.PopulationResult{
		Table:        ranking.Chosen.Table,
		Column:       canonicalColumn(snap, ranking.Chosen.Table, req.Column),
		Generation:   snap.Generation,
		Writers:      entry.Writers,
		Topology:     builder.Build(chosen, entry),
		Alternatives: ranking.Alternatives,
		Ambiguous:    ranking.Ambiguous,
		ScanCapped:   entry.ScanCapped,
		FallbackScan: entry.FallbackScan,
	}
	result.Notes = resultNotes(result)

	s.logger.Debug("population resolved",
		"table", result.Table.Qualified(),
		"column", result.Column,
		"writers", len(result.Writers),
		"ambiguous", result.Ambiguous,
		"generation", result.Generation,
	)
	return result, nil
}

// candidateTables locates the tables to rank: the pinned table when the
// request names one, otherwise every table containing the column.
func (s *Service) candidateTables(snap *snapshot.Snapshot, req PopulationRequest) ([]*domain.Table, error) {
	if req.Table != "" {
		tables := snap.LookupTable(req.Table)
		if len(tables) == 0 {
			return nil, domain.ErrNotFound("table %q not found", req.Table)
		}
		var withColumn []*domain.Table
		for _, t := range tables {
			if _, ok := snap.LookupColumn(t.Ref(), req.Column); ok {
				withColumn = append(withColumn, t)
			}
		}
		if len(withColumn) == 0 {
			return nil, domain.ErrNotFound("column %q not found on table %q", req.Column, req.Table)
		}
		return withColumn, nil
	}
	tables := snap.TablesWithColumn(req.Column)
	if len(tables) == 0 {
		return nil, domain.ErrNotFound("column %q not found in any table", req.Column)
	}
	return tables, nil
}

// DependencyEntry returns the raw index entry for one (table, column).
func (s *Service) DependencyEntry(ctx context.Context, table, column string) (*domain.DependencyEntry, error) {
	if table == "" || column == "" {
		return nil, domain.ErrValidation("table and column names are required")
	}
	snap, err := s.snapshotOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	tables := snap.LookupTable(table)
	if len(tables) == 0 {
		return nil, domain.ErrNotFound("table %q not found", table)
	}
	t := tables[0]
	if _, ok := snap.LookupColumn(t.Ref(), column); !ok {
		return nil, domain.ErrNotFound("column %q not found on table %q", column, table)
	}
	return s.idx.Entry(snap, t, column), nil
}

// JobStatus looks up job metadata captured in the snapshot.
func (s *Service) JobStatus(ctx context.Context, name string) (domain.Job, error) {
	if name == "" {
		return domain.Job{}, domain.ErrValidation("job name is required")
	}
	snap, err := s.snapshotOrRefresh(ctx)
	if err != nil {
		return domain.Job{}, err
	}
	job, ok := snap.Job(name)
	if !ok {
		return domain.Job{}, domain.ErrNotFound("job %q not found", name)
	}
	return job, nil
}

// Ask parses a natural-language lineage question and resolves it.
func (s *Service) Ask(ctx context.Context, prompt string) (*domain.PopulationResult, error) {
	q, err := ParseQuestion(prompt)
	if err != nil {
		return nil, err
	}
	return s.ResolvePopulation(ctx, PopulationRequest{Column: q.Column, Table: q.Table, Hint: prompt})
}

func tableByRef(tables []*domain.Table, ref domain.TableRef) *domain.Table {
	for _, t := range tables {
		if t.Ref().EqualFold(ref) {
			return t
		}
	}
	return nil
}

// canonicalColumn returns the column name with catalog casing.
func canonicalColumn(snap *snapshot.Snapshot, ref domain.TableRef, column string) string {
	if col, ok := snap.LookupColumn(ref, column); ok {
		return col.Name
	}
	return column
}

// resultNotes collects the informational flags a caller should surface:
// ambiguity, capped scans, fallback scans, and dynamic writers.
func resultNotes(r *domain.PopulationResult) []string {
	var notes []string
	if r.Ambiguous {
		notes = append(notes, "multiple tables tied after all tiebreaks; first reported, see alternatives")
	}
	if r.FallbackScan {
		notes = append(notes, "dependency metadata incomplete; results come from a full routine scan")
	}
	if r.ScanCapped {
		notes = append(notes, "routine scan hit its cap; some writers may be missing")
	}
	for i := range r.Writers {
		if r.Writers[i].IsDynamic() {
			notes = append(notes, "dynamic SQL writer detected; manual review required")
			break
		}
	}
	return notes
}
