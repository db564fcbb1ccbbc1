package domain

// WriterKind classifies how a statement or constraint sets a column's value.
type WriterKind string

// Writer kinds, ordered roughly by detection certainty.
const (
	WriterUpdate       WriterKind = "UPDATE"
	WriterInsertSelect WriterKind = "INSERT_SELECT"
	WriterInsertValues WriterKind = "INSERT_VALUES"
	WriterMergeUpdate  WriterKind = "MERGE_UPDATE"
	WriterMergeInsert  WriterKind = "MERGE_INSERT"
	WriterTrigger      WriterKind = "TRIGGER"
	WriterComputed     WriterKind = "COMPUTED"
	WriterDefault      WriterKind = "DEFAULT"
	WriterDynamic      WriterKind = "DYNAMIC"
)

// Writer is a detected statement or constraint that writes one
// (table, column). Writers are immutable once produced and belong to
// exactly one snapshot generation.
type Writer struct {
	Table  TableRef
	Column string
	Kind   WriterKind
	// Routine is the source routine or trigger. Nil for COMPUTED and
	// DEFAULT writers, which come from column metadata.
	Routine *RoutineRef
	// Expression is the assignment right-hand side (or the computed /
	// default definition). Nil for DYNAMIC writers, whose embedded SQL
	// text is not parsed.
	Expression *string
	// Excerpt is a short multi-line slice of the routine text around
	// the match, for human review.
	Excerpt string
	// Statement is the full statement text the write came from. Upstream
	// expansion scans it for source tables; the excerpt alone can cut
	// off a long FROM clause. Empty for metadata and dynamic writers.
	Statement  string
	Confidence float64
	// Note carries informational flags such as the manual-review
	// warning attached to DYNAMIC writers.
	Note string
}

// IsDynamic reports whether this writer came from the dynamic-SQL
// heuristic and needs manual review.
func (w *Writer) IsDynamic() bool {
	return w.Kind == WriterDynamic
}

// DependencyEntry is the reverse dependency index entry for one
// (table, column) at one snapshot generation. Entries are built lazily,
// cached by key, and discarded (never mutated) when a new generation
// appears.
type DependencyEntry struct {
	Table      TableRef
	Column     string
	Writers    []Writer
	Generation uint64
	// ScanCapped is set when the fallback full scan hit its routine cap
	// before exhausting the search space.
	ScanCapped bool
	// FallbackScan is set when dependency metadata was absent or
	// incomplete and a full routine scan was used instead.
	FallbackScan bool
}

// HasTriggerWriter reports whether any writer in the entry is a trigger.
func (e *DependencyEntry) HasTriggerWriter() bool {
	for i := range e.Writers {
		if e.Writers[i].Kind == WriterTrigger {
			return true
		}
	}
	return false
}
