package depindex

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dota/internal/domain"
	"dota/internal/snapshot"
)

func payrollFacts() *domain.CatalogFacts {
	emp := domain.TableRef{Schema: "dbo", Name: "Employees"}
	return &domain.CatalogFacts{
		CollectedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Tables: []domain.Table{
			{
				Schema: "dbo", Name: "Employees", IsBaseTable: true, RowCount: 5000,
				Columns: []domain.Column{
					{Table: emp, Name: "Id", DataType: "int"},
					{Table: emp, Name: "Salary", DataType: "decimal(18,2)", Nullable: true},
					{Table: emp, Name: "UpdatedAt", DataType: "datetime2", DefaultDefinition: "(getutcdate())"},
					{Table: emp, Name: "FullName", DataType: "nvarchar(200)", ComputedDefinition: "([FirstName]+' '+[LastName])"},
				},
			},
		},
		Routines: []domain.Routine{
			{
				Schema: "dbo", Name: "usp_PaySalaries", Kind: domain.RoutineProcedure,
				Definition: "UPDATE dbo.Employees SET Salary = Base * @factor WHERE Active = 1",
			},
			{
				Schema: "dbo", Name: "usp_Unrelated", Kind: domain.RoutineProcedure,
				Definition: "SELECT 1",
			},
			{
				Schema: "dbo", Name: "trg_EmployeeAudit", Kind: domain.RoutineTrigger,
				Definition:  "UPDATE dbo.Employees SET Salary = Salary WHERE Id IN (SELECT Id FROM inserted)",
				ParentTable: &emp,
			},
		},
		Dependencies: []domain.DependencyEdge{
			{RoutineSchema: "dbo", RoutineName: "usp_PaySalaries", ReferencedSchema: "dbo", ReferencedName: "Employees"},
		},
		Synonyms: []domain.Synonym{
			{Schema: "dbo", Name: "EmpSyn", Base: emp},
		},
	}
}

func tableNamed(t *testing.T, snap *snapshot.Snapshot, name string) *domain.Table {
	t.Helper()
	tables := snap.LookupTable(name)
	require.Len(t, tables, 1)
	return tables[0]
}

func writersOfKind(entry *domain.DependencyEntry, kind domain.WriterKind) []domain.Writer {
	var out []domain.Writer
	for _, w := range entry.Writers {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func TestIndex_Entry(t *testing.T) {
	t.Run("routine_writer_from_dependency_edges", func(t *testing.T) {
		snap := snapshot.Build(1, payrollFacts())
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "Salary")

		assert.False(t, entry.FallbackScan)
		assert.False(t, entry.ScanCapped)
		assert.Equal(t, uint64(1), entry.Generation)

		updates := writersOfKind(entry, domain.WriterUpdate)
		require.Len(t, updates, 1)
		w := updates[0]
		require.NotNil(t, w.Routine)
		assert.Equal(t, "usp_PaySalaries", w.Routine.Name)
		require.NotNil(t, w.Expression)
		assert.Equal(t, "Base * @factor", *w.Expression)
		assert.InDelta(t, 0.9, w.Confidence, 1e-9)
	})

	t.Run("trigger_writer", func(t *testing.T) {
		snap := snapshot.Build(1, payrollFacts())
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "Salary")

		trigs := writersOfKind(entry, domain.WriterTrigger)
		require.Len(t, trigs, 1)
		require.NotNil(t, trigs[0].Routine)
		assert.Equal(t, "trg_EmployeeAudit", trigs[0].Routine.Name)
		assert.InDelta(t, 0.8, trigs[0].Confidence, 1e-9)
		assert.True(t, entry.HasTriggerWriter())
	})

	t.Run("default_constraint_writer", func(t *testing.T) {
		snap := snapshot.Build(1, payrollFacts())
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "UpdatedAt")

		defaults := writersOfKind(entry, domain.WriterDefault)
		require.Len(t, defaults, 1)
		require.NotNil(t, defaults[0].Expression)
		assert.Equal(t, "(getutcdate())", *defaults[0].Expression)
		assert.InDelta(t, 1.0, defaults[0].Confidence, 1e-9)
		assert.Nil(t, defaults[0].Routine)
	})

	t.Run("computed_column_writer", func(t *testing.T) {
		snap := snapshot.Build(1, payrollFacts())
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "FullName")

		computed := writersOfKind(entry, domain.WriterComputed)
		require.Len(t, computed, 1)
		require.NotNil(t, computed[0].Expression)
		assert.Equal(t, "([FirstName]+' '+[LastName])", *computed[0].Expression)
		assert.InDelta(t, 1.0, computed[0].Confidence, 1e-9)
	})

	t.Run("trigger_in_dependency_edges_surfaces_once", func(t *testing.T) {
		// Dependency metadata lists triggers alongside procedures; the
		// trigger's statement must surface only as a TRIGGER writer, not
		// additionally as an UPDATE writer from the candidate scan.
		facts := payrollFacts()
		facts.Dependencies = append(facts.Dependencies, domain.DependencyEdge{
			RoutineSchema: "dbo", RoutineName: "trg_EmployeeAudit",
			ReferencedSchema: "dbo", ReferencedName: "Employees",
		})
		snap := snapshot.Build(1, facts)
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "Salary")

		require.Len(t, entry.Writers, 2)
		trigs := writersOfKind(entry, domain.WriterTrigger)
		require.Len(t, trigs, 1)
		assert.Equal(t, "trg_EmployeeAudit", trigs[0].Routine.Name)
		updates := writersOfKind(entry, domain.WriterUpdate)
		require.Len(t, updates, 1)
		assert.Equal(t, "usp_PaySalaries", updates[0].Routine.Name)
	})

	t.Run("synonym_alias_writes_detected", func(t *testing.T) {
		facts := payrollFacts()
		facts.Routines[0].Definition = "UPDATE EmpSyn SET Salary = @amount WHERE Id = @id"
		snap := snapshot.Build(1, facts)
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "Salary")

		updates := writersOfKind(entry, domain.WriterUpdate)
		require.Len(t, updates, 1)
		assert.Equal(t, "@amount", *updates[0].Expression)
	})
}

func TestIndex_FallbackScan(t *testing.T) {
	t.Run("no_dependency_metadata_scans_all_procedures", func(t *testing.T) {
		facts := payrollFacts()
		facts.Dependencies = nil
		snap := snapshot.Build(1, facts)
		idx := New(0)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "Salary")

		assert.True(t, entry.FallbackScan)
		assert.False(t, entry.ScanCapped)
		updates := writersOfKind(entry, domain.WriterUpdate)
		require.Len(t, updates, 1)
		assert.Equal(t, "usp_PaySalaries", updates[0].Routine.Name)
	})

	t.Run("cap_reported_when_exceeded", func(t *testing.T) {
		facts := payrollFacts()
		facts.Dependencies = nil
		// Procedures scan in (schema, name) order; the writing procedure
		// sorts behind the padding and falls past the cap.
		for i := 0; i < 3; i++ {
			facts.Routines = append(facts.Routines, domain.Routine{
				Schema: "dbo", Name: fmt.Sprintf("usp_Aux%02d", i), Kind: domain.RoutineProcedure,
				Definition: "SELECT 1",
			})
		}
		snap := snapshot.Build(1, facts)
		idx := New(2)

		entry := idx.Entry(snap, tableNamed(t, snap, "Employees"), "Salary")

		assert.True(t, entry.FallbackScan)
		assert.True(t, entry.ScanCapped)
		assert.Empty(t, writersOfKind(entry, domain.WriterUpdate))
	})
}

func TestIndex_Caching(t *testing.T) {
	t.Run("same_generation_returns_cached_entry", func(t *testing.T) {
		snap := snapshot.Build(1, payrollFacts())
		idx := New(0)
		table := tableNamed(t, snap, "Employees")

		first := idx.Entry(snap, table, "Salary")
		second := idx.Entry(snap, table, "Salary")
		assert.Same(t, first, second)
	})

	t.Run("new_generation_rebuilds", func(t *testing.T) {
		idx := New(0)

		snap1 := snapshot.Build(1, payrollFacts())
		table1 := tableNamed(t, snap1, "Employees")
		first := idx.Entry(snap1, table1, "Salary")

		snap2 := snapshot.Build(2, payrollFacts())
		table2 := tableNamed(t, snap2, "Employees")
		second := idx.Entry(snap2, table2, "Salary")

		assert.NotSame(t, first, second)
		assert.Equal(t, uint64(1), first.Generation)
		assert.Equal(t, uint64(2), second.Generation)
	})
}
