package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/metrics"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest"
)

func totals() map[core.Category]decimal.Decimal {
	return map[core.Category]decimal.Decimal{
		core.CategoryFood:    decimal.NewFromInt(300),
		core.CategoryHousing: decimal.NewFromInt(900),
	}
}

func TestStrategyService_SendsCategorySum(t *testing.T) {
	var got suggest.Request
	s := suggest.SuggesterFunc(func(_ context.Context, req suggest.Request) (string, error) {
		got = req
		return "1. Cook at home.", nil
	})
	reg := metrics.New(false)
	svc := NewStrategyService(s, reg, nil)

	text, err := svc.Strategies(context.Background(), decimal.NewFromInt(2500), decimal.NewFromInt(5000), totals(), core.LanguageSpanish)
	require.NoError(t, err)
	assert.Equal(t, "1. Cook at home.", text)
	assert.True(t, got.Expenses.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, core.LanguageSpanish, got.Language)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Suggestions.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestStrategyService_EmptyLedgerSendsZero(t *testing.T) {
	var got suggest.Request
	s := suggest.SuggesterFunc(func(_ context.Context, req suggest.Request) (string, error) {
		got = req
		return "ok", nil
	})

	_, err := NewStrategyService(s, nil, nil).Strategies(context.Background(), decimal.Zero, decimal.Zero, nil, core.LanguageEnglish)
	require.NoError(t, err)
	assert.True(t, got.Expenses.IsZero())
}

func TestStrategyService_CollapsesConcurrentCalls(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	s := suggest.SuggesterFunc(func(context.Context, suggest.Request) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	})
	svc := NewStrategyService(s, nil, nil)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Strategies(context.Background(), decimal.NewFromInt(1), decimal.NewFromInt(2), totals(), core.LanguageEnglish)
		}(i)
	}
	// let the goroutines join the flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestStrategyService_Unavailable(t *testing.T) {
	s := suggest.SuggesterFunc(func(context.Context, suggest.Request) (string, error) {
		return "", errors.Join(suggest.ErrUnavailable, errors.New("quota"))
	})
	reg := metrics.New(false)

	_, err := NewStrategyService(s, reg, nil).Strategies(context.Background(), decimal.Zero, decimal.Zero, nil, core.LanguageEnglish)
	assert.ErrorIs(t, err, suggest.ErrUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Suggestions.WithLabelValues(metrics.OutcomeUnavailable)))
}

func TestStrategyService_Disabled(t *testing.T) {
	reg := metrics.New(false)
	_, err := NewStrategyService(nil, reg, nil).Strategies(context.Background(), decimal.Zero, decimal.Zero, nil, core.LanguageEnglish)
	assert.ErrorIs(t, err, suggest.ErrDisabled)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Suggestions.WithLabelValues(metrics.OutcomeDisabled)))
}

func TestStrategyService_InvalidInput(t *testing.T) {
	svc := NewStrategyService(suggest.SuggesterFunc(func(context.Context, suggest.Request) (string, error) {
		t.Fatal("must not be called")
		return "", nil
	}), nil, nil)

	_, err := svc.Strategies(context.Background(), decimal.NewFromInt(-1), decimal.Zero, nil, core.LanguageEnglish)
	assert.True(t, core.IsValidation(err))
}

func TestStrategyService_CallerCancels(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	svc := NewStrategyService(suggest.SuggesterFunc(func(context.Context, suggest.Request) (string, error) {
		<-block
		return "late", nil
	}), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Strategies(ctx, decimal.Zero, decimal.Zero, nil, core.LanguageEnglish)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
