package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dota/internal/domain"
)

type mockSource struct {
	CollectFn func(ctx context.Context) (*domain.CatalogFacts, error)
}

func (m *mockSource) Collect(ctx context.Context) (*domain.CatalogFacts, error) {
	return m.CollectFn(ctx)
}

func TestStore_Refresh(t *testing.T) {
	t.Run("advances_generation", func(t *testing.T) {
		src := &mockSource{CollectFn: func(context.Context) (*domain.CatalogFacts, error) {
			return testFacts(), nil
		}}
		store := NewStore(src, nil)

		assert.Nil(t, store.Current())

		snap1, err := store.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), snap1.Generation)

		snap2, err := store.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(2), snap2.Generation)
		assert.Same(t, snap2, store.Current())
	})

	t.Run("failure_keeps_previous_snapshot", func(t *testing.T) {
		facts := testFacts()
		fail := false
		src := &mockSource{CollectFn: func(context.Context) (*domain.CatalogFacts, error) {
			if fail {
				return nil, errors.New("connection reset")
			}
			return facts, nil
		}}
		store := NewStore(src, nil)

		snap1, err := store.Refresh(context.Background())
		require.NoError(t, err)

		fail = true
		_, err = store.Refresh(context.Background())
		require.Error(t, err)

		var refreshErr *domain.RefreshError
		assert.ErrorAs(t, err, &refreshErr)

		// Previous snapshot fully serviceable, generation unchanged.
		cur := store.Current()
		assert.Same(t, snap1, cur)
		assert.Equal(t, uint64(1), cur.Generation)

		// Next successful refresh continues the sequence.
		fail = false
		snap2, err := store.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(2), snap2.Generation)
	})

	t.Run("old_reference_stays_valid_across_refresh", func(t *testing.T) {
		facts := testFacts()
		src := &mockSource{CollectFn: func(context.Context) (*domain.CatalogFacts, error) {
			return facts, nil
		}}
		store := NewStore(src, nil)

		snap1, err := store.Refresh(context.Background())
		require.NoError(t, err)
		before := snap1.TablesWithColumn("Salary")
		require.Len(t, before, 2)

		// Second generation drops a table; the held reference must not
		// observe the change.
		shrunk := testFacts()
		shrunk.Tables = shrunk.Tables[:1]
		src.CollectFn = func(context.Context) (*domain.CatalogFacts, error) {
			return shrunk, nil
		}
		_, err = store.Refresh(context.Background())
		require.NoError(t, err)

		after := snap1.TablesWithColumn("Salary")
		assert.Len(t, after, 2, "reader holding generation 1 must still see both tables")
		assert.Len(t, store.Current().TablesWithColumn("Salary"), 1)
	})
}
