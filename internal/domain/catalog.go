// Package domain defines core types, interfaces, and errors for the
// column population lineage engine.
package domain

import (
	"strings"
	"time"
)

// TableRef identifies a table by schema and name.
type TableRef struct {
	Schema string
	Name   string
}

// Qualified returns the schema-qualified "schema.name" form.
func (r TableRef) Qualified() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// EqualFold reports whether two refs name the same table, ignoring case.
func (r TableRef) EqualFold(other TableRef) bool {
	return strings.EqualFold(r.Schema, other.Schema) && strings.EqualFold(r.Name, other.Name)
}

// Table is a catalog table as captured at snapshot time.
type Table struct {
	Schema      string
	Name        string
	IsBaseTable bool
	RowCount    int64 // estimate, used only for disambiguation tiebreaks
	Columns     []Column
}

// Ref returns the table's identity.
func (t *Table) Ref() TableRef {
	return TableRef{Schema: t.Schema, Name: t.Name}
}

// Column is a column of a catalog table.
type Column struct {
	Table              TableRef
	Name               string
	DataType           string
	Nullable           bool
	DefaultDefinition  string // default-constraint text, "" when absent
	ComputedDefinition string // computed-column expression, "" when absent
}

// RoutineKind classifies a stored routine.
type RoutineKind string

// Routine kinds as collected from the source catalog.
const (
	RoutineProcedure RoutineKind = "procedure"
	RoutineView      RoutineKind = "view"
	RoutineFunction  RoutineKind = "function"
	RoutineTrigger   RoutineKind = "trigger"
)

// Routine is a stored routine (procedure, view, function, or trigger)
// with its full source text.
type Routine struct {
	Schema     string
	Name       string
	Kind       RoutineKind
	Definition string
	// ParentTable is the owning table for triggers, nil otherwise.
	ParentTable *TableRef
}

// Ref returns the routine's identity.
func (r *Routine) Ref() RoutineRef {
	return RoutineRef{Schema: r.Schema, Name: r.Name, Kind: r.Kind}
}

// RoutineRef identifies a routine without carrying its source text.
type RoutineRef struct {
	Schema string
	Name   string
	Kind   RoutineKind
}

// Qualified returns the schema-qualified "schema.name" form.
func (r RoutineRef) Qualified() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// DependencyEdge records that a routine references an object, as
// reported by the source catalog's dependency metadata.
type DependencyEdge struct {
	RoutineSchema    string
	RoutineName      string
	ReferencedSchema string
	ReferencedName   string
}

// Synonym maps an alias name onto a base table.
type Synonym struct {
	Schema string
	Name   string
	Base   TableRef
}

// Job is source-database job metadata, kept in the snapshot for simple
// status lookups.
type Job struct {
	Name          string
	LastRunStatus string
	LastRunAt     time.Time
}

// CatalogFacts is the full point-in-time pull consumed by a snapshot
// refresh. It must be internally consistent: every column belongs to a
// listed table, every trigger's parent is a listed table.
type CatalogFacts struct {
	CollectedAt  time.Time
	Tables       []Table
	Routines     []Routine
	Dependencies []DependencyEdge
	Synonyms     []Synonym
	Jobs         []Job
}
