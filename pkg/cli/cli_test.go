package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dota/internal/source/sqlitesrc"
)

func seedMirror(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqlitesrc.EnsureSchema(context.Background(), db))

	stmts := []string{
		`INSERT INTO catalog_tables VALUES ('dbo', 'Employees', 1, 5000)`,
		`INSERT INTO catalog_columns VALUES ('dbo', 'Employees', 'Id', 1, 'int', 0, NULL, NULL)`,
		`INSERT INTO catalog_columns VALUES ('dbo', 'Employees', 'Salary', 2, 'decimal(18,2)', 1, NULL, NULL)`,
		`INSERT INTO catalog_routines VALUES ('dbo', 'usp_PaySalaries', 'PROCEDURE', 'UPDATE dbo.Employees SET Salary = @x WHERE Id = @y', NULL, NULL)`,
		`INSERT INTO catalog_dependencies VALUES ('dbo', 'usp_PaySalaries', 'dbo', 'Employees')`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Refresh(t *testing.T) {
	path := seedMirror(t)

	out, err := runCommand(t, "refresh", "--catalog-db", path)
	require.NoError(t, err)

	var counts struct {
		Generation uint64 `json:"Generation"`
		Tables     int    `json:"Tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, uint64(1), counts.Generation)
	assert.Equal(t, 1, counts.Tables)
}

func TestCLI_Find(t *testing.T) {
	path := seedMirror(t)

	out, err := runCommand(t, "find", "Salary", "--catalog-db", path)
	require.NoError(t, err)

	var tables []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	require.Len(t, tables, 1)
}

func TestCLI_Resolve(t *testing.T) {
	path := seedMirror(t)

	out, err := runCommand(t, "resolve", "Salary", "--catalog-db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "usp_PaySalaries")
	assert.Contains(t, out, "UPDATE")
}

func TestCLI_ResolveUnknownColumn(t *testing.T) {
	path := seedMirror(t)

	_, err := runCommand(t, "resolve", "Bogus", "--catalog-db", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCLI_Init(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.db")

	out, err := runCommand(t, "init", "--catalog-db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "catalog mirror ready")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM catalog_tables`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestCLI_Ask(t *testing.T) {
	path := seedMirror(t)

	out, err := runCommand(t, "ask", "how is Salary populated in dbo.Employees", "--catalog-db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Employees")
}
