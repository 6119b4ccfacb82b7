package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps a session ledger in process memory.
type Store struct {
	mu     sync.RWMutex
	ledger *core.Ledger
	closed bool
}

func New() *Store {
	return &Store{ledger: core.NewLedger()}
}

func (s *Store) AddExpense(_ context.Context, date core.Date, category core.Category, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ledger.ErrClosed
	}
	return s.ledger.AddExpense(date, category, amount)
}

func (s *Store) ExpensesFor(_ context.Context, date core.Date) ([]core.ExpenseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ledger.ErrClosed
	}
	return s.ledger.ExpensesFor(date), nil
}

// Snapshot returns a copy that the caller may aggregate without holding locks.
func (s *Store) Snapshot(_ context.Context) (*core.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ledger.ErrClosed
	}
	return s.ledger.Clone(), nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ledger = core.NewLedger()
	return nil
}
