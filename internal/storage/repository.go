package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/ledger"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// SQLiteRepository is a session ledger kept in a private in-memory SQLite
// database. The data disappears on Close.
type SQLiteRepository struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteRepository opens a fresh in-memory database and migrates it.
func NewSQLiteRepository(ctx context.Context, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// every new connection to :memory: is a new empty database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *SQLiteRepository) conn() (*sql.DB, error) {
	if r.db == nil {
		return nil, ledger.ErrClosed
	}
	return r.db, nil
}

// AddExpense implements ledger.ExpenseWriter
func (r *SQLiteRepository) AddExpense(ctx context.Context, date core.Date, category core.Category, amount decimal.Decimal) error {
	if err := core.ValidateExpense(date, category, amount); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	db, err := r.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO expenses (day, category, amount) VALUES (?, ?, ?)`,
		date.String(), string(category), amount.String())
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	id, _ := res.LastInsertId()
	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		"id", id,
		log.FieldDate, date.String(),
		log.FieldCategory, string(category),
		log.FieldAmount, amount.String())
	return nil
}

// ExpensesFor implements ledger.ExpenseLister
func (r *SQLiteRepository) ExpensesFor(ctx context.Context, date core.Date) ([]core.ExpenseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT category, amount FROM expenses WHERE day = ? ORDER BY id`, date.String())
	if err != nil {
		return nil, fmt.Errorf("query expenses for %s: %w", date, err)
	}
	defer rows.Close()

	records := []core.ExpenseRecord{}
	for rows.Next() {
		var category, amount string
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		rec, err := toRecord(category, amount)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return records, nil
}

// Snapshot implements ledger.Snapshotter by replaying every row in insertion
// order into a core.Ledger.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (*core.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT day, category, amount FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	l := core.NewLedger()
	for rows.Next() {
		var day, category, amount string
		if err := rows.Scan(&day, &category, &amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		date, err := core.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", day, err)
		}
		rec, err := toRecord(category, amount)
		if err != nil {
			return nil, err
		}
		if err := l.AddExpense(date, rec.Category, rec.Amount); err != nil {
			return nil, fmt.Errorf("replay expense: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return l, nil
}

func toRecord(category, amount string) (core.ExpenseRecord, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("stored amount %q: %w", amount, err)
	}
	return core.ExpenseRecord{Category: core.Category(category), Amount: d}, nil
}
