package domain

import "context"

// CatalogSource pulls a full, point-in-time set of catalog facts from
// the underlying data source. Implementations must be read-only against
// the source database; a reduced-consistency read mode is acceptable
// (lineage facts may be marginally stale) and should be documented by
// the implementation.
type CatalogSource interface {
	Collect(ctx context.Context) (*CatalogFacts, error)
}

// TableCandidate is one table matching a column search, annotated with
// the signals used for disambiguation.
type TableCandidate struct {
	Table       TableRef
	IsBaseTable bool
	RowCount    int64
	WriterCount int
	HasTrigger  bool
}

// PopulationResult is the full answer to "where does this column get
// populated": the chosen table, its writers, the topology graph, and
// any ranked alternatives. All fields originate from one snapshot
// generation.
type PopulationResult struct {
	Table      TableRef
	Column     string
	Generation uint64
	Writers    []Writer
	Topology   *Topology
	// Alternatives lists the remaining ranked candidates when the
	// column matched more than one table.
	Alternatives []TableCandidate
	// Ambiguous is set when two or more candidates remained exactly
	// tied after every tiebreak; the first is still reported as Table
	// but callers should treat the choice as unresolved.
	Ambiguous bool
	// ScanCapped / FallbackScan surface the index entry's cap and
	// fallback flags; never silently absorbed.
	ScanCapped   bool
	FallbackScan bool
	Notes        []string
}
