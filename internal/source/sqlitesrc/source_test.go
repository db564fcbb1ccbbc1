package sqlitesrc

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dota/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func seed(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestSource_Collect(t *testing.T) {
	db := openTestDB(t)
	seed(t, db,
		`INSERT INTO catalog_tables VALUES ('dbo', 'Employees', 1, 5000)`,
		`INSERT INTO catalog_tables VALUES ('dbo', 'vw_Salaries', 0, 0)`,
		`INSERT INTO catalog_columns VALUES ('dbo', 'Employees', 'Id', 1, 'int', 0, NULL, NULL)`,
		`INSERT INTO catalog_columns VALUES ('dbo', 'Employees', 'Salary', 2, 'decimal(18,2)', 1, NULL, NULL)`,
		`INSERT INTO catalog_columns VALUES ('dbo', 'Employees', 'UpdatedAt', 3, 'datetime2', 0, '(getutcdate())', NULL)`,
		`INSERT INTO catalog_routines VALUES ('dbo', 'usp_PaySalaries', 'PROCEDURE', 'UPDATE dbo.Employees SET Salary = @x', NULL, NULL)`,
		`INSERT INTO catalog_routines VALUES ('dbo', 'trg_Audit', 'TRIGGER', 'UPDATE dbo.Employees SET UpdatedAt = GETUTCDATE()', 'dbo', 'Employees')`,
		`INSERT INTO catalog_dependencies VALUES ('dbo', 'usp_PaySalaries', 'dbo', 'Employees')`,
		`INSERT INTO catalog_synonyms VALUES ('dbo', 'EmpSyn', 'dbo', 'Employees')`,
		`INSERT INTO catalog_jobs VALUES ('NightlyPayroll', 'Succeeded', '2026-08-01T03:00:00Z')`,
	)

	facts, err := New(db).Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, facts.Tables, 2)
	emp := facts.Tables[0]
	assert.Equal(t, "Employees", emp.Name)
	assert.True(t, emp.IsBaseTable)
	assert.Equal(t, int64(5000), emp.RowCount)
	require.Len(t, emp.Columns, 3)
	assert.Equal(t, "(getutcdate())", emp.Columns[2].DefaultDefinition)
	assert.True(t, emp.Columns[1].Nullable)
	assert.False(t, facts.Tables[1].IsBaseTable)

	require.Len(t, facts.Routines, 2)
	assert.Equal(t, domain.RoutineTrigger, facts.Routines[0].Kind)
	require.NotNil(t, facts.Routines[0].ParentTable)
	assert.Equal(t, "dbo.Employees", facts.Routines[0].ParentTable.Qualified())
	assert.Equal(t, domain.RoutineProcedure, facts.Routines[1].Kind)
	assert.Nil(t, facts.Routines[1].ParentTable)

	require.Len(t, facts.Dependencies, 1)
	require.Len(t, facts.Synonyms, 1)
	assert.Equal(t, "dbo.Employees", facts.Synonyms[0].Base.Qualified())

	require.Len(t, facts.Jobs, 1)
	assert.Equal(t, "Succeeded", facts.Jobs[0].LastRunStatus)
	assert.Equal(t, time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC), facts.Jobs[0].LastRunAt)

	assert.False(t, facts.CollectedAt.IsZero())
}

func TestSource_CollectEmptyMirror(t *testing.T) {
	db := openTestDB(t)

	facts, err := New(db).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, facts.Tables)
	assert.Empty(t, facts.Routines)
	assert.Empty(t, facts.Jobs)
}

func TestSource_CollectMissingSchema(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = New(db).Collect(context.Background())
	assert.Error(t, err)
}
