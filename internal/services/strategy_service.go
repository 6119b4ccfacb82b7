package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/metrics"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest"
)

// StrategyService asks the model for savings strategies. Identical requests
// in flight at the same time share one upstream call.
type StrategyService struct {
	suggester suggest.Suggester
	metrics   *metrics.Registry
	logger    *log.Logger
	group     singleflight.Group
	now       func() time.Time
}

func NewStrategyService(s suggest.Suggester, reg *metrics.Registry, logger *log.Logger) *StrategyService {
	if s == nil {
		s = suggest.Disabled{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &StrategyService{
		suggester: s,
		metrics:   reg,
		logger:    logger.WithComponent(log.ComponentSuggest),
		now:       time.Now,
	}
}

// TotalExpenses sums category totals; that sum is all the model ever sees of
// the ledger.
func TotalExpenses(totals map[core.Category]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}
	return sum
}

// Strategies returns the model's text for the given profile and ledger
// totals. Errors are suggest.ErrUnavailable, suggest.ErrDisabled, a
// validation error or the caller's context error.
func (s *StrategyService) Strategies(ctx context.Context, income, savingsGoal decimal.Decimal, totals map[core.Category]decimal.Decimal, lang core.Language) (string, error) {
	req := suggest.Request{
		Income:      income,
		Expenses:    TotalExpenses(totals),
		SavingsGoal: savingsGoal,
		Language:    lang,
	}
	if err := req.Validate(); err != nil {
		s.observe(metrics.OutcomeInvalid, 0)
		return "", err
	}

	start := s.now()
	ch := s.group.DoChan(req.Key(), func() (interface{}, error) {
		// detached so one impatient caller does not fail the others
		return s.suggester.Suggest(context.WithoutCancel(ctx), req)
	})

	select {
	case <-ctx.Done():
		s.observe(metrics.OutcomeCanceled, 0)
		return "", ctx.Err()
	case res := <-ch:
		took := s.now().Sub(start)
		if res.Err != nil {
			outcome := metrics.OutcomeUnavailable
			switch {
			case errors.Is(res.Err, suggest.ErrDisabled):
				outcome = metrics.OutcomeDisabled
			case core.IsValidation(res.Err):
				outcome = metrics.OutcomeInvalid
			}
			s.observe(outcome, took)
			s.logger.WarnContext(ctx, "Savings strategies unavailable",
				log.FieldLanguage, lang.String(),
				log.FieldError, res.Err.Error(),
				"shared", res.Shared)
			return "", res.Err
		}
		s.observe(metrics.OutcomeSuccess, took)
		s.logger.InfoContext(ctx, "Savings strategies generated",
			log.FieldLanguage, lang.String(),
			log.FieldDuration, took.Milliseconds(),
			"shared", res.Shared)
		return res.Val.(string), nil
	}
}

func (s *StrategyService) observe(outcome string, took time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSuggestion(outcome, took)
	}
}
