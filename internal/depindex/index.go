// Package depindex builds and caches reverse dependency index entries:
// for one (table, column), every detected writer across routines,
// triggers, computed columns, and default constraints.
package depindex

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"dota/internal/domain"
	"dota/internal/snapshot"
	"dota/internal/tsqlscan"
)

// DefaultMaxRoutineScan caps the fallback full scan when dependency
// metadata is absent or incomplete.
const DefaultMaxRoutineScan = 500

// Confidence for writer kinds resolved outside the scanner.
const (
	confidenceTrigger  = 0.8
	confidenceMetadata = 1.0 // COMPUTED and DEFAULT come straight from catalog metadata
)

// Index caches dependency entries keyed by (table, column, generation).
// Entries are built lazily on first request; a new generation
// invalidates by key, never by mutation. Builds for distinct keys never
// serialize each other.
type Index struct {
	maxScan int

	cache   sync.Map // string -> *domain.DependencyEntry
	group   singleflight.Group
	lastGen atomic.Uint64
}

// New creates an Index with the given fallback scan cap. A cap of zero
// or less uses DefaultMaxRoutineScan.
func New(maxScan int) *Index {
	if maxScan <= 0 {
		maxScan = DefaultMaxRoutineScan
	}
	return &Index{maxScan: maxScan}
}

// Entry returns the dependency entry for (table, column) at the
// snapshot's generation, building and caching it on first use.
func (x *Index) Entry(snap *snapshot.Snapshot, table *domain.Table, column string) *domain.DependencyEntry {
	x.evictStale(snap.Generation)

	key := fmt.Sprintf("%d|%s|%s|%s",
		snap.Generation,
		strings.ToLower(table.Schema),
		strings.ToLower(table.Name),
		strings.ToLower(column),
	)
	if v, ok := x.cache.Load(key); ok {
		return v.(*domain.DependencyEntry)
	}
	v, _, _ := x.group.Do(key, func() (interface{}, error) {
		entry := x.build(snap, table, column)
		x.cache.Store(key, entry)
		return entry, nil
	})
	return v.(*domain.DependencyEntry)
}

// evictStale discards every cached entry from generations older than
// the one now being served.
func (x *Index) evictStale(generation uint64) {
	for {
		last := x.lastGen.Load()
		if generation <= last {
			return
		}
		if !x.lastGen.CompareAndSwap(last, generation) {
			continue
		}
		prefix := fmt.Sprintf("%d|", generation)
		x.cache.Range(func(k, _ interface{}) bool {
			if !strings.HasPrefix(k.(string), prefix) {
				x.cache.Delete(k)
			}
			return true
		})
		return
	}
}

// build assembles the entry: routine writers from dependency edges
// (fallback: capped full scan), trigger writers, and metadata writers
// for computed columns and default constraints.
func (x *Index) build(snap *snapshot.Snapshot, table *domain.Table, column string) *domain.DependencyEntry {
	ref := table.Ref()
	entry := &domain.DependencyEntry{
		Table:      ref,
		Column:     column,
		Generation: snap.Generation,
	}

	target := tsqlscan.Target{
		Schema:  table.Schema,
		Table:   table.Name,
		Column:  column,
		Aliases: snap.SynonymNamesFor(ref),
	}

	// Triggers show up in dependency metadata too; they are scanned via
	// TriggersOn below so their matches surface once, as TRIGGER writers.
	candidates := snap.RoutinesReferencing(ref)
	scanned := make(map[*domain.Routine]struct{}, len(candidates))
	for _, r := range candidates {
		if r.Kind == domain.RoutineTrigger {
			continue
		}
		scanned[r] = struct{}{}
		entry.Writers = append(entry.Writers, routineWriters(r, ref, column, target)...)
	}

	// Fallback: when the dependency edges produced nothing, scan all
	// procedures up to the cap. Hitting the cap is reported, never
	// silently absorbed.
	if len(entry.Writers) == 0 {
		entry.FallbackScan = true
		examined := 0
		for _, r := range snap.Procedures() {
			if _, done := scanned[r]; done {
				continue
			}
			if examined >= x.maxScan {
				entry.ScanCapped = true
				break
			}
			examined++
			entry.Writers = append(entry.Writers, routineWriters(r, ref, column, target)...)
		}
	}

	for _, trig := range snap.TriggersOn(ref) {
		for _, w := range tsqlscan.DetectWrites(trig.Definition, target) {
			entry.Writers = append(entry.Writers, triggerWriter(trig, ref, column, w))
		}
	}

	if col, ok := snap.LookupColumn(ref, column); ok {
		if col.ComputedDefinition != "" {
			entry.Writers = append(entry.Writers, metadataWriter(ref, column, domain.WriterComputed, col.ComputedDefinition))
		}
		if col.DefaultDefinition != "" {
			entry.Writers = append(entry.Writers, metadataWriter(ref, column, domain.WriterDefault, col.DefaultDefinition))
		}
	}

	return entry
}

// routineWriters converts scanner output for one routine into Writers.
func routineWriters(r *domain.Routine, ref domain.TableRef, column string, target tsqlscan.Target) []domain.Writer {
	writes := tsqlscan.DetectWrites(r.Definition, target)
	if len(writes) == 0 {
		return nil
	}
	routineRef := r.Ref()
	out := make([]domain.Writer, 0, len(writes))
	for _, w := range writes {
		writer := domain.Writer{
			Table:      ref,
			Column:     column,
			Kind:       domain.WriterKind(w.Kind),
			Routine:    &routineRef,
			Excerpt:    w.Excerpt,
			Statement:  w.Source,
			Confidence: w.Confidence,
			Note:       w.Note,
		}
		if w.HasExpr {
			expr := w.Expression
			writer.Expression = &expr
		}
		out = append(out, writer)
	}
	return out
}

// triggerWriter wraps one scanner match from a trigger body. All
// trigger matches surface as TRIGGER-kind writers regardless of the
// underlying statement shape.
func triggerWriter(trig *domain.Routine, ref domain.TableRef, column string, w tsqlscan.Write) domain.Writer {
	routineRef := trig.Ref()
	writer := domain.Writer{
		Table:      ref,
		Column:     column,
		Kind:       domain.WriterTrigger,
		Routine:    &routineRef,
		Excerpt:    w.Excerpt,
		Statement:  w.Source,
		Confidence: confidenceTrigger,
		Note:       w.Note,
	}
	if w.HasExpr {
		expr := w.Expression
		writer.Expression = &expr
	}
	return writer
}

// metadataWriter builds a COMPUTED or DEFAULT writer from column
// metadata. These carry no source routine.
func metadataWriter(ref domain.TableRef, column string, kind domain.WriterKind, definition string) domain.Writer {
	expr := definition
	return domain.Writer{
		Table:      ref,
		Column:     column,
		Kind:       kind,
		Expression: &expr,
		Excerpt:    definition,
		Confidence: confidenceMetadata,
	}
}
