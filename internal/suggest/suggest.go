// Package suggest asks a language model for personalised savings strategies.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
)

var (
	// ErrUnavailable means no suggestion could be produced right now. The
	// caller should show a retry-later message; the session is unaffected.
	ErrUnavailable = errors.New("suggestions unavailable")

	// ErrEmptyResponse is returned when the model answered without text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrDisabled is returned by Disabled.
	ErrDisabled = errors.New("suggestions are not configured")
)

// Request is the only data that leaves the process: three totals and the
// language name. Per-record detail is never sent.
type Request struct {
	Income      decimal.Decimal
	Expenses    decimal.Decimal
	SavingsGoal decimal.Decimal
	Language    core.Language
}

// Suggester produces free-form strategy text.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (string, error)
}

// SuggesterFunc adapts a function to Suggester.
type SuggesterFunc func(ctx context.Context, req Request) (string, error)

func (f SuggesterFunc) Suggest(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Disabled is used when no model is configured.
type Disabled struct{}

func (Disabled) Suggest(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

func (r Request) Validate() error {
	if r.Income.IsNegative() {
		return core.NewValidationError("income", core.ErrNegativeAmount)
	}
	if r.Expenses.IsNegative() {
		return core.NewValidationError("expenses", core.ErrNegativeAmount)
	}
	if r.SavingsGoal.IsNegative() {
		return core.NewValidationError("savings_goal", core.ErrNegativeAmount)
	}
	if !r.Language.IsValid() {
		return core.NewValidationError("language", core.ErrUnknownLanguage)
	}
	return nil
}

// Key identifies requests that must produce the same answer.
func (r Request) Key() string {
	return strings.Join([]string{
		r.Income.String(), r.Expenses.String(), r.SavingsGoal.String(), r.Language.String(),
	}, "|")
}

const promptTemplate = `I am a personal finance assistant. My user has the following financial situation:
    - Monthly Income: $%s
    - Monthly Expenses: $%s
    - Savings Goal: $%s

Based on this information, provide 3 personalized savings strategies in %s language.
Each strategy should be concise and actionable.
`

// BuildPrompt renders the model prompt. Amounts keep two decimals.
func BuildPrompt(r Request) string {
	return fmt.Sprintf(promptTemplate,
		r.Income.StringFixed(2),
		r.Expenses.StringFixed(2),
		r.SavingsGoal.StringFixed(2),
		r.Language.Name())
}

// StatusError carries the HTTP status of a failed model call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model returned status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the call may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}
