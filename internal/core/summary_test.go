package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalsByDate_Example(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryFood, dec("10")))
	require.NoError(t, l.AddExpense(day("2024-01-02"), CategoryTransportation, dec("30")))

	totals := l.TotalsByDate()
	require.Len(t, totals, 2)
	assert.True(t, totals[day("2024-01-01")].Equal(dec("10")))
	assert.True(t, totals[day("2024-01-02")].Equal(dec("30")))
}

func TestParetoSeries_Example(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryFood, dec("10")))
	require.NoError(t, l.AddExpense(day("2024-01-02"), CategoryTransportation, dec("30")))

	series := l.ParetoSeries()
	require.Len(t, series, 2)

	assert.Equal(t, day("2024-01-02"), series[0].Date)
	assert.True(t, series[0].Total.Equal(dec("30")))
	assert.True(t, series[0].Cumulative.Equal(dec("75")), "got %s", series[0].Cumulative)

	assert.Equal(t, day("2024-01-01"), series[1].Date)
	assert.True(t, series[1].Total.Equal(dec("10")))
	assert.True(t, series[1].Cumulative.Equal(dec("100")), "got %s", series[1].Cumulative)
}

func TestTotalsByCategory_SameDateSameCategory(t *testing.T) {
	l := NewLedger()
	d := day("2024-02-01")
	require.NoError(t, l.AddExpense(d, CategoryFood, dec("5")))
	require.NoError(t, l.AddExpense(d, CategoryFood, dec("5")))

	totals := l.TotalsByCategory()
	require.Len(t, totals, 1)
	assert.True(t, totals[CategoryFood].Equal(dec("10")))
}

func TestParetoSeries_EmptyLedger(t *testing.T) {
	series := NewLedger().ParetoSeries()
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestParetoSeries_AllZeroAmounts(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryFood, decimal.Zero))
	require.NoError(t, l.AddExpense(day("2024-01-02"), CategoryOther, decimal.Zero))

	assert.NotPanics(t, func() {
		assert.Empty(t, l.ParetoSeries())
	})
}

func TestParetoSeries_SingleDate(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-06-01"), CategoryFood, dec("7.10")))
	require.NoError(t, l.AddExpense(day("2024-06-01"), CategoryShopping, dec("2.90")))

	series := l.ParetoSeries()
	require.Len(t, series, 1)
	assert.True(t, series[0].Total.Equal(dec("10")))
	assert.True(t, series[0].Cumulative.Equal(dec("100")))
}

func TestParetoSeries_TiesBrokenByDateAscending(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-01-03"), CategoryFood, dec("10")))
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryFood, dec("10")))
	require.NoError(t, l.AddExpense(day("2024-01-02"), CategoryFood, dec("20")))

	series := l.ParetoSeries()
	require.Len(t, series, 3)
	assert.Equal(t, "2024-01-02", series[0].Date.String())
	assert.Equal(t, "2024-01-01", series[1].Date.String())
	assert.Equal(t, "2024-01-03", series[2].Date.String())
	assert.True(t, series[0].Cumulative.Equal(dec("50")))
	assert.True(t, series[1].Cumulative.Equal(dec("75")))
	assert.True(t, series[2].Cumulative.Equal(dec("100")))
}

func TestParetoSeries_LastPointIsHundredAndMonotonic(t *testing.T) {
	l := NewLedger()
	amounts := []string{"3.33", "0", "17.01", "8.5", "0.01", "42", "3.33"}
	for i, a := range amounts {
		require.NoError(t, l.AddExpense(NewDate(2025, 4, i+1), CategoryUtilities, dec(a)))
	}

	series := l.ParetoSeries()
	require.Len(t, series, len(amounts))
	assert.True(t, series[len(series)-1].Cumulative.Equal(dec("100")))
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i].Total.LessThanOrEqual(series[i-1].Total))
		assert.True(t, series[i].Cumulative.GreaterThanOrEqual(series[i-1].Cumulative))
	}
}

func TestParetoSeries_RoundsToPresentationPrecision(t *testing.T) {
	l := NewLedger()
	for i := 1; i <= 3; i++ {
		require.NoError(t, l.AddExpense(NewDate(2024, 1, i), CategoryFood, dec("1")))
	}
	series := l.ParetoSeries()
	require.Len(t, series, 3)
	assert.Equal(t, "33.33", series[0].Cumulative.StringFixed(2))
	assert.Equal(t, "66.67", series[1].Cumulative.StringFixed(2))
	assert.True(t, series[2].Cumulative.Equal(dec("100")))
}

func TestTotals_Idempotent(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryFood, dec("1.5")))
	require.NoError(t, l.AddExpense(day("2024-01-09"), CategoryHousing, dec("900")))

	assert.Equal(t, l.TotalsByDate(), l.TotalsByDate())
	assert.Equal(t, l.TotalsByCategory(), l.TotalsByCategory())
	assert.Equal(t, l.ParetoSeries(), l.ParetoSeries())
}

func TestCategoryTotals_EnumerationOrder(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryOther, dec("1")))
	require.NoError(t, l.AddExpense(day("2024-01-01"), CategoryFood, dec("2")))
	require.NoError(t, l.AddExpense(day("2024-01-02"), CategoryUtilities, dec("3")))

	got := l.CategoryTotals()
	require.Len(t, got, 3)
	assert.Equal(t, CategoryFood, got[0].Category)
	assert.Equal(t, CategoryUtilities, got[1].Category)
	assert.Equal(t, CategoryOther, got[2].Category)
	assert.True(t, l.GrandTotal().Equal(dec("6")))
}
