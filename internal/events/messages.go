package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
)

// ExpenseAdded is published after a record is appended to a session ledger.
type ExpenseAdded struct {
	SessionID string          `json:"session_id"`
	Date      core.Date       `json:"date"`
	Category  core.Category   `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewExpenseAdded stamps the event with the current time.
func NewExpenseAdded(sessionID string, date core.Date, category core.Category, amount decimal.Decimal) *ExpenseAdded {
	return &ExpenseAdded{
		SessionID: sessionID,
		Date:      date,
		Category:  category,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseAdded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseAddedFromJSON decodes a published message.
func ExpenseAddedFromJSON(data []byte) (*ExpenseAdded, error) {
	var msg ExpenseAdded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
