package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ExpenseRecord is one logged expense. Records are values; the ledger only
// hands out copies.
type ExpenseRecord struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Ledger maps each day to the expenses logged on it, in insertion order.
// The zero value is an empty ledger ready to use.
type Ledger struct {
	days  map[Date][]ExpenseRecord
	count int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{days: make(map[Date][]ExpenseRecord)}
}

// ValidateExpense checks an expense without touching any ledger.
func ValidateExpense(date Date, category Category, amount decimal.Decimal) error {
	if err := date.Validate(); err != nil {
		return invalid("date", err)
	}
	if !category.IsValid() {
		return invalid("category", ErrUnknownCategory)
	}
	if amount.IsNegative() {
		return invalid("amount", ErrNegativeAmount)
	}
	return nil
}

// AddExpense appends a record to date's sequence, creating it if needed.
// On a validation error the ledger is left unchanged.
func (l *Ledger) AddExpense(date Date, category Category, amount decimal.Decimal) error {
	if err := ValidateExpense(date, category, amount); err != nil {
		return err
	}
	if l.days == nil {
		l.days = make(map[Date][]ExpenseRecord)
	}
	l.days[date] = append(l.days[date], ExpenseRecord{Category: category, Amount: amount})
	l.count++
	return nil
}

// ExpensesFor returns the records for one day in insertion order.
func (l *Ledger) ExpensesFor(date Date) []ExpenseRecord {
	records := l.days[date]
	out := make([]ExpenseRecord, len(records))
	copy(out, records)
	return out
}

// Dates returns the days holding at least one record, ascending.
func (l *Ledger) Dates() []Date {
	dates := make([]Date, 0, len(l.days))
	for d := range l.days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j].Time) })
	return dates
}

// Len is the number of records across all days.
func (l *Ledger) Len() int {
	return l.count
}

// IsEmpty reports whether no expense has been recorded.
func (l *Ledger) IsEmpty() bool {
	return l.count == 0
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{days: make(map[Date][]ExpenseRecord, len(l.days)), count: l.count}
	for d, records := range l.days {
		c.days[d] = append([]ExpenseRecord(nil), records...)
	}
	return c
}
