package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/events"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger/memory"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/metrics"
)

func TestExpenseService_AddExpense(t *testing.T) {
	rec := &events.Recorder{}
	reg := metrics.New(false)
	svc := NewExpenseService(rec, reg, nil)
	store := memory.New()
	ctx := context.Background()
	day := core.NewDate(2024, 2, 1)

	require.NoError(t, svc.AddExpense(ctx, store, "s1", day, core.CategoryFood, decimal.NewFromInt(5)))
	require.NoError(t, svc.AddExpense(ctx, store, "s1", day, core.CategoryFood, decimal.NewFromInt(5)))
	require.NoError(t, svc.Close())

	l, err := svc.Summary(ctx, store)
	require.NoError(t, err)
	assert.True(t, l.TotalsByCategory()[core.CategoryFood].Equal(decimal.NewFromInt(10)))

	records, err := svc.ExpensesFor(ctx, store, day)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	assert.Len(t, rec.Events(), 2)
	assert.Equal(t, "s1", rec.Events()[0].SessionID)
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.ExpensesAdded.WithLabelValues("food")))
}

func TestExpenseService_RejectsAndCounts(t *testing.T) {
	rec := &events.Recorder{}
	reg := metrics.New(false)
	svc := NewExpenseService(rec, reg, nil)
	store := memory.New()
	ctx := context.Background()

	err := svc.AddExpense(ctx, store, "s1", core.NewDate(2024, 1, 1), core.CategoryFood, decimal.RequireFromString("-0.01"))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	err = svc.AddExpense(ctx, store, "s1", core.NewDate(2019, 1, 1), core.CategoryFood, decimal.NewFromInt(1))
	require.Error(t, err)
	require.NoError(t, svc.Close())

	assert.Empty(t, rec.Events())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ExpenseRejections.WithLabelValues(ReasonNegativeAmount)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ExpenseRejections.WithLabelValues(ReasonDateOutOfRange)))

	l, err := svc.Summary(ctx, store)
	require.NoError(t, err)
	assert.True(t, l.IsEmpty())
}

func TestExpenseService_PublishFailureDoesNotFail(t *testing.T) {
	rec := &events.Recorder{Err: errors.New("broker down")}
	reg := metrics.New(false)
	svc := NewExpenseService(rec, reg, nil)

	err := svc.AddExpense(context.Background(), memory.New(), "s1", core.NewDate(2024, 1, 1), core.CategoryOther, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.NoError(t, svc.Close())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.EventPublishErrors))
}

func TestExpenseService_ClosedStore(t *testing.T) {
	svc := NewExpenseService(nil, nil, nil)
	store := memory.New()
	require.NoError(t, store.Close())

	err := svc.AddExpense(context.Background(), store, "s1", core.NewDate(2024, 1, 1), core.CategoryOther, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.False(t, core.IsValidation(err))
}

func TestRejectionReason(t *testing.T) {
	l := core.NewLedger()
	err := l.AddExpense(core.NewDate(2024, 1, 1), core.Category("bogus"), decimal.NewFromInt(1))
	assert.Equal(t, ReasonUnknownCategory, RejectionReason(err))
	assert.Equal(t, ReasonOther, RejectionReason(errors.New("x")))
}
