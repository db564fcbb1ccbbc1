package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dota/internal/domain"
)

func cand(schema, name string, writers int, trigger bool, rows int64) domain.TableCandidate {
	return domain.TableCandidate{
		Table:       domain.TableRef{Schema: schema, Name: name},
		IsBaseTable: true,
		RowCount:    rows,
		WriterCount: writers,
		HasTrigger:  trigger,
	}
}

func TestRank(t *testing.T) {
	t.Run("writer_count_wins", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("arc", "ArchivedEmployees", 0, false, 120000),
			cand("dbo", "Employees", 2, false, 5000),
		}, "dbo", "")

		assert.Equal(t, "Employees", r.Chosen.Table.Name)
		require.Len(t, r.Alternatives, 1)
		assert.Equal(t, "ArchivedEmployees", r.Alternatives[0].Table.Name)
		assert.False(t, r.Ambiguous)
	})

	t.Run("trigger_breaks_writer_tie", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("sales", "Orders", 1, false, 100),
			cand("audit", "Orders", 1, true, 10),
		}, "dbo", "")

		assert.Equal(t, "audit", r.Chosen.Table.Schema)
		assert.False(t, r.Ambiguous)
	})

	t.Run("default_schema_preferred", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("archive", "Accounts", 1, false, 100),
			cand("dbo", "Accounts", 1, false, 100),
		}, "dbo", "")

		assert.Equal(t, "dbo", r.Chosen.Table.Schema)
	})

	t.Run("alphabetical_schema_when_neither_default", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("sales", "Accounts", 0, false, 100),
			cand("billing", "Accounts", 0, false, 100),
		}, "dbo", "")

		assert.Equal(t, "billing", r.Chosen.Table.Schema)
		assert.False(t, r.Ambiguous)
	})

	t.Run("hint_overlap_breaks_same_schema_tie", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("dbo", "Customer_Archive", 0, false, 100),
			cand("dbo", "Customer_Orders", 0, false, 100),
		}, "dbo", "the orders table")

		assert.Equal(t, "Customer_Orders", r.Chosen.Table.Name)
		assert.False(t, r.Ambiguous)
	})

	t.Run("row_count_breaks_remaining_tie", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("dbo", "EventsSmall", 0, false, 10),
			cand("dbo", "EventsLarge", 0, false, 1000),
		}, "dbo", "")

		assert.Equal(t, "EventsLarge", r.Chosen.Table.Name)
	})

	t.Run("exact_tie_reports_ambiguous", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{
			cand("dbo", "A", 0, false, 100),
			cand("dbo", "B", 0, false, 100),
		}, "dbo", "")

		assert.True(t, r.Ambiguous)
		require.Len(t, r.Alternatives, 1)
	})

	t.Run("deterministic_across_calls", func(t *testing.T) {
		in := []domain.TableCandidate{
			cand("arc", "ArchivedEmployees", 0, false, 120000),
			cand("dbo", "Employees", 2, true, 5000),
			cand("hr", "Employees", 2, false, 9000),
		}
		first := Rank(in, "dbo", "payroll employees")
		second := Rank(in, "dbo", "payroll employees")
		assert.Equal(t, first, second)
	})

	t.Run("single_candidate", func(t *testing.T) {
		r := Rank([]domain.TableCandidate{cand("dbo", "Solo", 0, false, 1)}, "dbo", "")
		assert.Equal(t, "Solo", r.Chosen.Table.Name)
		assert.Empty(t, r.Alternatives)
		assert.False(t, r.Ambiguous)
	})

	t.Run("empty_candidates", func(t *testing.T) {
		r := Rank(nil, "dbo", "")
		assert.Empty(t, r.Chosen.Table.Name)
		assert.False(t, r.Ambiguous)
	})
}

func TestTokenize(t *testing.T) {
	toks := tokenize("dbo.Customer_Orders-2024")
	assert.Equal(t, map[string]struct{}{
		"dbo": {}, "customer": {}, "orders": {}, "2024": {},
	}, toks)
}
