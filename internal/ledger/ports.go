package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("ledger store closed")

// Ports for ledger storage adapters.
type (
	ExpenseWriter interface {
		// AddExpense validates and appends one record. A rejected record leaves
		// the store unchanged.
		AddExpense(ctx context.Context, date core.Date, category core.Category, amount decimal.Decimal) error
	}

	ExpenseLister interface {
		// ExpensesFor returns the records of one date in insertion order.
		ExpensesFor(ctx context.Context, date core.Date) ([]core.ExpenseRecord, error)
	}

	// Snapshotter exposes the whole ledger for aggregation.
	Snapshotter interface {
		Snapshot(ctx context.Context) (*core.Ledger, error)
	}

	// Store is one session's ledger.
	Store interface {
		ExpenseWriter
		ExpenseLister
		Snapshotter
		Close() error
	}
)
