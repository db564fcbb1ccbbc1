package sqlitesrc

import (
	"context"
	"database/sql"
	"fmt"
)

// DDL creates the catalog mirror tables. The mirror is populated by an
// out-of-band sync job; this schema only needs to exist before the
// first Collect.
const DDL = `
CREATE TABLE IF NOT EXISTS catalog_tables (
	schema_name   TEXT NOT NULL,
	table_name    TEXT NOT NULL,
	is_base_table INTEGER NOT NULL DEFAULT 1,
	row_count     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (schema_name, table_name)
);

CREATE TABLE IF NOT EXISTS catalog_columns (
	schema_name         TEXT NOT NULL,
	table_name          TEXT NOT NULL,
	column_name         TEXT NOT NULL,
	ordinal             INTEGER NOT NULL DEFAULT 0,
	data_type           TEXT NOT NULL DEFAULT '',
	is_nullable         INTEGER NOT NULL DEFAULT 0,
	default_definition  TEXT,
	computed_definition TEXT,
	PRIMARY KEY (schema_name, table_name, column_name)
);

CREATE TABLE IF NOT EXISTS catalog_routines (
	schema_name   TEXT NOT NULL,
	routine_name  TEXT NOT NULL,
	kind          TEXT NOT NULL,
	definition    TEXT NOT NULL DEFAULT '',
	parent_schema TEXT,
	parent_table  TEXT,
	PRIMARY KEY (schema_name, routine_name)
);

CREATE TABLE IF NOT EXISTS catalog_dependencies (
	routine_schema    TEXT NOT NULL,
	routine_name      TEXT NOT NULL,
	referenced_schema TEXT NOT NULL,
	referenced_name   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_synonyms (
	schema_name  TEXT NOT NULL,
	synonym_name TEXT NOT NULL,
	base_schema  TEXT NOT NULL,
	base_table   TEXT NOT NULL,
	PRIMARY KEY (schema_name, synonym_name)
);

CREATE TABLE IF NOT EXISTS catalog_jobs (
	job_name        TEXT NOT NULL PRIMARY KEY,
	last_run_status TEXT,
	last_run_at     TEXT
);
`

// EnsureSchema creates the mirror tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, DDL); err != nil {
		return fmt.Errorf("create catalog mirror schema: %w", err)
	}
	return nil
}
