// Package sqlitesrc implements the catalog source against a SQLite
// mirror database: a local copy of the source server's catalog rows,
// refreshed out-of-band. Reads are plain SELECTs with no transaction,
// so facts may be marginally stale relative to the mirror writer; that
// tradeoff is accepted to never block it.
package sqlitesrc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"dota/internal/domain"
)

// Source collects catalog facts from a SQLite mirror database.
type Source struct {
	db *sql.DB
}

// Open opens the mirror database at path.
func Open(path string) (*Source, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open catalog mirror: %w", err)
	}
	return &Source{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Source {
	return &Source{db: db}
}

// Close closes the underlying database handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// Collect pulls every fact family concurrently and assembles a
// consistent CatalogFacts value.
func (s *Source) Collect(ctx context.Context) (*domain.CatalogFacts, error) {
	var (
		tables  []domain.Table
		columns []domain.Column
		facts   = &domain.CatalogFacts{CollectedAt: time.Now().UTC()}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { tables, err = s.collectTables(ctx); return })
	g.Go(func() (err error) { columns, err = s.collectColumns(ctx); return })
	g.Go(func() (err error) { facts.Routines, err = s.collectRoutines(ctx); return })
	g.Go(func() (err error) { facts.Dependencies, err = s.collectDependencies(ctx); return })
	g.Go(func() (err error) { facts.Synonyms, err = s.collectSynonyms(ctx); return })
	g.Go(func() (err error) { facts.Jobs, err = s.collectJobs(ctx); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	facts.Tables = attachColumns(tables, columns)
	return facts, nil
}

func (s *Source) collectTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, table_name, is_base_table, row_count
		FROM catalog_tables
		ORDER BY schema_name, table_name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.IsBaseTable, &t.RowCount); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Source) collectColumns(ctx context.Context) ([]domain.Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, table_name, column_name, data_type, is_nullable,
		       COALESCE(default_definition, ''), COALESCE(computed_definition, '')
		FROM catalog_columns
		ORDER BY schema_name, table_name, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var out []domain.Column
	for rows.Next() {
		var c domain.Column
		if err := rows.Scan(&c.Table.Schema, &c.Table.Name, &c.Name, &c.DataType,
			&c.Nullable, &c.DefaultDefinition, &c.ComputedDefinition); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Source) collectRoutines(ctx context.Context) ([]domain.Routine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, routine_name, kind, definition,
		       COALESCE(parent_schema, ''), COALESCE(parent_table, '')
		FROM catalog_routines
		ORDER BY schema_name, routine_name`)
	if err != nil {
		return nil, fmt.Errorf("query routines: %w", err)
	}
	defer rows.Close()

	var out []domain.Routine
	for rows.Next() {
		var (
			r                        domain.Routine
			kind                     string
			parentSchema, parentName string
		)
		if err := rows.Scan(&r.Schema, &r.Name, &kind, &r.Definition, &parentSchema, &parentName); err != nil {
			return nil, fmt.Errorf("scan routine row: %w", err)
		}
		r.Kind = domain.RoutineKind(strings.ToLower(kind))
		if parentName != "" {
			r.ParentTable = &domain.TableRef{Schema: parentSchema, Name: parentName}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Source) collectDependencies(ctx context.Context) ([]domain.DependencyEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT routine_schema, routine_name, referenced_schema, referenced_name
		FROM catalog_dependencies`)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var out []domain.DependencyEdge
	for rows.Next() {
		var d domain.DependencyEdge
		if err := rows.Scan(&d.RoutineSchema, &d.RoutineName, &d.ReferencedSchema, &d.ReferencedName); err != nil {
			return nil, fmt.Errorf("scan dependency row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Source) collectSynonyms(ctx context.Context) ([]domain.Synonym, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, synonym_name, base_schema, base_table
		FROM catalog_synonyms`)
	if err != nil {
		return nil, fmt.Errorf("query synonyms: %w", err)
	}
	defer rows.Close()

	var out []domain.Synonym
	for rows.Next() {
		var syn domain.Synonym
		if err := rows.Scan(&syn.Schema, &syn.Name, &syn.Base.Schema, &syn.Base.Name); err != nil {
			return nil, fmt.Errorf("scan synonym row: %w", err)
		}
		out = append(out, syn)
	}
	return out, rows.Err()
}

func (s *Source) collectJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_name, COALESCE(last_run_status, ''), COALESCE(last_run_at, '')
		FROM catalog_jobs`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		var (
			j      domain.Job
			lastAt string
		)
		if err := rows.Scan(&j.Name, &j.LastRunStatus, &lastAt); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		if lastAt != "" {
			if ts, perr := time.Parse(time.RFC3339, lastAt); perr == nil {
				j.LastRunAt = ts
			}
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// attachColumns merges the column family into its owning tables.
func attachColumns(tables []domain.Table, columns []domain.Column) []domain.Table {
	byKey := make(map[string]int, len(tables))
	for i := range tables {
		byKey[tableKey(tables[i].Schema, tables[i].Name)] = i
	}
	for _, c := range columns {
		if i, ok := byKey[tableKey(c.Table.Schema, c.Table.Name)]; ok {
			tables[i].Columns = append(tables[i].Columns, c)
		}
	}
	return tables
}

func tableKey(schema, name string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}
