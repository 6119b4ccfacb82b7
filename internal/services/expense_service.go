package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/events"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/metrics"
)

const publishTimeout = 10 * time.Second

// Rejection reasons reported on ahorro_expense_rejections_total.
const (
	ReasonNegativeAmount  = "negative_amount"
	ReasonInvalidAmount   = "invalid_amount"
	ReasonDateOutOfRange  = "date_out_of_range"
	ReasonInvalidDate     = "invalid_date"
	ReasonUnknownCategory = "unknown_category"
	ReasonOther           = "other"
)

// ExpenseService records expenses in a session ledger and announces them.
type ExpenseService struct {
	publisher events.Publisher
	metrics   *metrics.Registry
	logger    *log.Logger
	sl        *log.StructuredLogger

	// in-flight publishes, waited for by Close
	wg sync.WaitGroup
}

func NewExpenseService(publisher events.Publisher, reg *metrics.Registry, logger *log.Logger) *ExpenseService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &ExpenseService{
		publisher: publisher,
		metrics:   reg,
		logger:    logger,
		sl:        log.NewStructuredLogger(logger),
	}
}

// AddExpense validates and appends one record. The event is published in the
// background; a broker failure is logged and never fails the call.
func (s *ExpenseService) AddExpense(ctx context.Context, store ledger.Store, sessionID string, date core.Date, category core.Category, amount decimal.Decimal) error {
	if err := store.AddExpense(ctx, date, category, amount); err != nil {
		if core.IsValidation(err) {
			reason := RejectionReason(err)
			if s.metrics != nil {
				s.metrics.ExpenseRejections.WithLabelValues(reason).Inc()
			}
			s.logger.InfoContext(ctx, "Expense rejected",
				log.FieldSessionID, sessionID,
				log.FieldErrorType, log.ErrorTypeValidation,
				"reason", reason)
			return err
		}
		s.sl.LogError(ctx, "Failed to record expense", err, log.OpAddExpense, log.NewFields().WithSession(sessionID))
		return fmt.Errorf("add expense: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ExpensesAdded.WithLabelValues(category.String()).Inc()
	}
	s.sl.LogExpenseAdded(ctx, sessionID, date.String(), category.String(), amount.String())

	s.publish(ctx, events.NewExpenseAdded(sessionID, date, category, amount))
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, msg *events.ExpenseAdded) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishExpenseAdded(pctx, msg); err != nil {
			if s.metrics != nil {
				s.metrics.EventPublishErrors.Inc()
			}
			s.logger.ErrorContext(pctx, "Failed to publish expense event",
				log.FieldSessionID, msg.SessionID,
				log.FieldOperation, log.OpPublish,
				log.FieldError, err.Error())
		}
	}()
}

// ExpensesFor lists one day's records in insertion order.
func (s *ExpenseService) ExpensesFor(ctx context.Context, store ledger.Store, date core.Date) ([]core.ExpenseRecord, error) {
	records, err := store.ExpensesFor(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", date, err)
	}
	return records, nil
}

// Summary returns a snapshot for aggregation.
func (s *ExpenseService) Summary(ctx context.Context, store ledger.Store) (*core.Ledger, error) {
	l, err := store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot ledger: %w", err)
	}
	return l, nil
}

// Close waits for pending publishes and closes the publisher.
func (s *ExpenseService) Close() error {
	s.wg.Wait()
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}

// RejectionReason maps a validation error to a metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, core.ErrNegativeAmount):
		return ReasonNegativeAmount
	case errors.Is(err, core.ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(err, core.ErrDateOutOfRange):
		return ReasonDateOutOfRange
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrZeroDate):
		return ReasonInvalidDate
	case errors.Is(err, core.ErrUnknownCategory):
		return ReasonUnknownCategory
	default:
		return ReasonOther
	}
}
