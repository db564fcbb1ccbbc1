// Package snapshot holds an immutable, versioned in-memory copy of
// catalog facts and the store that refreshes it atomically.
package snapshot

import (
	"sort"
	"strings"
	"time"

	"dota/internal/domain"
)

// Snapshot is an immutable point-in-time view of the source catalog.
// All lookups are pure reads; a snapshot is never mutated after Build.
type Snapshot struct {
	Generation  uint64
	CollectedAt time.Time

	tables     []*domain.Table
	routines   []*domain.Routine
	procedures []*domain.Routine

	byQualified map[string]*domain.Table   // "schema.name" (lower) -> table
	byBareName  map[string][]*domain.Table // bare name (lower) -> tables
	byColumn    map[string][]*domain.Table // column name (lower) -> tables

	routineByName  map[string]*domain.Routine   // "schema.name" (lower) -> routine
	triggersOn     map[string][]*domain.Routine // table key (lower) -> triggers
	referencing    map[string][]*domain.Routine // table key (lower) -> routines with dependency edges
	hasDepMetadata bool

	synonymsByBase map[string][]domain.Synonym
	synonymByName  map[string]domain.Synonym

	jobs map[string]domain.Job
}

// Build indexes a set of collected catalog facts into a snapshot for
// the given generation. The facts are copied by reference and must not
// be mutated by the caller afterwards.
func Build(generation uint64, facts *domain.CatalogFacts) *Snapshot {
	s := &Snapshot{
		Generation:     generation,
		CollectedAt:    facts.CollectedAt,
		byQualified:    make(map[string]*domain.Table),
		byBareName:     make(map[string][]*domain.Table),
		byColumn:       make(map[string][]*domain.Table),
		routineByName:  make(map[string]*domain.Routine),
		triggersOn:     make(map[string][]*domain.Routine),
		referencing:    make(map[string][]*domain.Routine),
		synonymsByBase: make(map[string][]domain.Synonym),
		synonymByName:  make(map[string]domain.Synonym),
		jobs:           make(map[string]domain.Job),
	}

	for i := range facts.Tables {
		t := &facts.Tables[i]
		s.tables = append(s.tables, t)
		s.byQualified[tableKey(t.Schema, t.Name)] = t
		bare := strings.ToLower(t.Name)
		s.byBareName[bare] = append(s.byBareName[bare], t)
		seen := make(map[string]struct{}, len(t.Columns))
		for j := range t.Columns {
			col := strings.ToLower(t.Columns[j].Name)
			if _, dup := seen[col]; dup {
				continue
			}
			seen[col] = struct{}{}
			s.byColumn[col] = append(s.byColumn[col], t)
		}
	}

	for i := range facts.Routines {
		r := &facts.Routines[i]
		s.routines = append(s.routines, r)
		s.routineByName[tableKey(r.Schema, r.Name)] = r
		switch r.Kind {
		case domain.RoutineTrigger:
			if r.ParentTable != nil {
				key := tableKey(r.ParentTable.Schema, r.ParentTable.Name)
				s.triggersOn[key] = append(s.triggersOn[key], r)
			}
		case domain.RoutineProcedure:
			s.procedures = append(s.procedures, r)
		}
	}

	for _, d := range facts.Dependencies {
		r, ok := s.routineByName[tableKey(d.RoutineSchema, d.RoutineName)]
		if !ok {
			continue
		}
		key := tableKey(d.ReferencedSchema, d.ReferencedName)
		s.referencing[key] = append(s.referencing[key], r)
		s.hasDepMetadata = true
	}

	for _, syn := range facts.Synonyms {
		s.synonymByName[tableKey(syn.Schema, syn.Name)] = syn
		s.synonymByName[strings.ToLower(syn.Name)] = syn
		baseKey := tableKey(syn.Base.Schema, syn.Base.Name)
		s.synonymsByBase[baseKey] = append(s.synonymsByBase[baseKey], syn)
	}

	for _, j := range facts.Jobs {
		s.jobs[strings.ToLower(j.Name)] = j
	}

	// Deterministic ordering for every list a request can observe.
	sortTables(s.tables)
	for _, list := range s.byColumn {
		sortTables(list)
	}
	for _, list := range s.byBareName {
		sortTables(list)
	}
	sortRoutines(s.procedures)
	for _, list := range s.referencing {
		sortRoutines(list)
	}
	for _, list := range s.triggersOn {
		sortRoutines(list)
	}

	return s
}

func tableKey(schema, name string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}

func sortTables(ts []*domain.Table) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Schema != ts[j].Schema {
			return ts[i].Schema < ts[j].Schema
		}
		return ts[i].Name < ts[j].Name
	})
}

func sortRoutines(rs []*domain.Routine) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Schema != rs[j].Schema {
			return rs[i].Schema < rs[j].Schema
		}
		return rs[i].Name < rs[j].Name
	})
}

// LookupTable resolves a bare or schema-qualified table name, following
// synonyms when no table matches directly. Matching is case-insensitive
// and exact; bare names matching multiple schemas return all of them.
func (s *Snapshot) LookupTable(name string) []*domain.Table {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	if schema, bare, ok := strings.Cut(lower, "."); ok {
		if t, found := s.byQualified[schema+"."+bare]; found {
			return []*domain.Table{t}
		}
	} else if list := s.byBareName[lower]; len(list) > 0 {
		out := make([]*domain.Table, len(list))
		copy(out, list)
		return out
	}
	// Synonym fallback: resolve alias to its base table.
	if syn, ok := s.synonymByName[lower]; ok {
		if t, found := s.byQualified[tableKey(syn.Base.Schema, syn.Base.Name)]; found {
			return []*domain.Table{t}
		}
	}
	return nil
}

// LookupColumn finds a column on a table, case-insensitively.
func (s *Snapshot) LookupColumn(ref domain.TableRef, column string) (*domain.Column, bool) {
	t, ok := s.byQualified[tableKey(ref.Schema, ref.Name)]
	if !ok {
		return nil, false
	}
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, column) {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// TablesWithColumn returns every table containing a column with the
// given name (exact, case-insensitive; no fuzzy matching), ordered by
// (schema, name).
func (s *Snapshot) TablesWithColumn(column string) []*domain.Table {
	list := s.byColumn[strings.ToLower(strings.TrimSpace(column))]
	out := make([]*domain.Table, len(list))
	copy(out, list)
	return out
}

// RoutinesReferencing returns the routines the dependency metadata
// links to a table, in deterministic order.
func (s *Snapshot) RoutinesReferencing(ref domain.TableRef) []*domain.Routine {
	return s.referencing[tableKey(ref.Schema, ref.Name)]
}

// HasDependencyMetadata reports whether the source catalog supplied any
// dependency edges at all. When false, index builds fall back to a
// capped full scan.
func (s *Snapshot) HasDependencyMetadata() bool {
	return s.hasDepMetadata
}

// Procedures returns all stored procedures, for fallback scanning.
func (s *Snapshot) Procedures() []*domain.Routine {
	return s.procedures
}

// TriggersOn returns the triggers bound to a table.
func (s *Snapshot) TriggersOn(ref domain.TableRef) []*domain.Routine {
	return s.triggersOn[tableKey(ref.Schema, ref.Name)]
}

// SynonymNamesFor returns the synonym alias names pointing at a table,
// used so the writer detector also matches writes through synonyms.
func (s *Snapshot) SynonymNamesFor(ref domain.TableRef) []string {
	syns := s.synonymsByBase[tableKey(ref.Schema, ref.Name)]
	names := make([]string, 0, len(syns))
	for _, syn := range syns {
		names = append(names, syn.Name)
	}
	sort.Strings(names)
	return names
}

// Job looks up job metadata by name, case-insensitively.
func (s *Snapshot) Job(name string) (domain.Job, bool) {
	j, ok := s.jobs[strings.ToLower(strings.TrimSpace(name))]
	return j, ok
}

// Counts summarizes the snapshot's contents for refresh reporting.
type Counts struct {
	Tables     int
	Routines   int
	Triggers   int
	Synonyms   int
	Jobs       int
	DepEdges   int
	Generation uint64
}

// Counts returns summary counts for the snapshot.
func (s *Snapshot) Counts() Counts {
	trig := 0
	for _, list := range s.triggersOn {
		trig += len(list)
	}
	deps := 0
	for _, list := range s.referencing {
		deps += len(list)
	}
	return Counts{
		Tables:     len(s.tables),
		Routines:   len(s.routines),
		Triggers:   trig,
		Synonyms:   len(s.synonymsByBase),
		Jobs:       len(s.jobs),
		DepEdges:   deps,
		Generation: s.Generation,
	}
}
