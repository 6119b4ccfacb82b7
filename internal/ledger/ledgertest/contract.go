// Package ledgertest holds behaviour checks shared by every ledger.Store.
package ledgertest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
)

// Run exercises a fresh store from newStore against the ledger contract.
func Run(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	t.Helper()
	ctx := context.Background()
	d1 := core.NewDate(2025, 1, 1)
	d2 := core.NewDate(2025, 1, 2)

	t.Run("append keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddExpense(ctx, d1, core.CategoryFood, decimal.RequireFromString("10.50")))
		require.NoError(t, s.AddExpense(ctx, d1, core.CategoryHousing, decimal.RequireFromString("25")))
		require.NoError(t, s.AddExpense(ctx, d2, core.CategoryFood, decimal.RequireFromString("0")))

		got, err := s.ExpensesFor(ctx, d1)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, core.CategoryFood, got[0].Category)
		assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("10.5")))
		assert.Equal(t, core.CategoryHousing, got[1].Category)
	})

	t.Run("unknown date is empty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.ExpensesFor(ctx, d2)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("rejected records leave store unchanged", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddExpense(ctx, d1, core.CategoryFood, decimal.RequireFromString("5")))

		bad := []struct {
			date     core.Date
			category core.Category
			amount   string
		}{
			{d1, core.CategoryFood, "-0.01"},
			{d1, core.Category("Comida"), "1"},
			{core.NewDate(2019, 12, 31), core.CategoryFood, "1"},
			{core.NewDate(2031, 1, 1), core.CategoryFood, "1"},
		}
		for _, b := range bad {
			err := s.AddExpense(ctx, b.date, b.category, decimal.RequireFromString(b.amount))
			assert.True(t, core.IsValidation(err), "%v", err)
		}

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Len())
	})

	t.Run("snapshot aggregates", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddExpense(ctx, d1, core.CategoryFood, decimal.RequireFromString("50")))
		require.NoError(t, s.AddExpense(ctx, d1, core.CategoryTransportation, decimal.RequireFromString("25")))
		require.NoError(t, s.AddExpense(ctx, d2, core.CategoryFood, decimal.RequireFromString("100")))

		snap, err := s.Snapshot(ctx)
		require.NoError(t, err)
		byDate := snap.TotalsByDate()
		assert.True(t, byDate[d1].Equal(decimal.NewFromInt(75)))
		assert.True(t, byDate[d2].Equal(decimal.NewFromInt(100)))
		assert.True(t, snap.TotalsByCategory()[core.CategoryFood].Equal(decimal.NewFromInt(150)))

		// mutating the snapshot does not touch the store
		require.NoError(t, snap.AddExpense(d1, core.CategoryOther, decimal.NewFromInt(1)))
		again, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Len())
	})

	t.Run("closed store refuses work", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		assert.ErrorIs(t, s.AddExpense(ctx, d1, core.CategoryFood, decimal.NewFromInt(1)), ledger.ErrClosed)
		_, err := s.ExpensesFor(ctx, d1)
		assert.ErrorIs(t, err, ledger.ErrClosed)
		_, err = s.Snapshot(ctx)
		assert.ErrorIs(t, err, ledger.ErrClosed)
	})
}
