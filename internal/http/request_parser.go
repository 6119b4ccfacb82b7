// Package http provides HTTP server and handler implementations.
//
// This file turns request bodies and query strings into domain values. Every
// failure is a core.ValidationError so handlers can answer 422 uniformly.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/i18n"
)

// maxBodyBytes caps form and JSON bodies.
const maxBodyBytes = 64 << 10

// ExpenseInput is a parsed POST /expenses body.
type ExpenseInput struct {
	Date     core.Date
	Category core.Category
	Amount   decimal.Decimal
}

// ParseExpenseInput reads date, category and amount. A missing date means
// today; the category may be an id or a label in any language.
func ParseExpenseInput(p *RequestBodyParser, tr *i18n.Translator, today core.Date) (ExpenseInput, error) {
	var in ExpenseInput
	var err error

	in.Date = today
	if v := p.Get("date"); v != "" {
		if in.Date, err = core.ParseDate(v); err != nil {
			return in, core.NewValidationError("date", err)
		}
	}
	if err := in.Date.Validate(); err != nil {
		return in, core.NewValidationError("date", err)
	}

	if in.Category, err = tr.ParseCategory(p.Get("category")); err != nil {
		return in, err
	}

	if in.Amount, err = core.ParseAmount(p.Get("amount")); err != nil {
		return in, core.NewValidationError("amount", err)
	}
	return in, nil
}

// ParseProfileInput reads the savings-goal form. Blank fields are zero and a
// blank timeframe is one month.
func ParseProfileInput(p *RequestBodyParser) (core.Profile, error) {
	profile := core.DefaultProfile()

	amounts := []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"savings_goal", &profile.SavingsGoal},
		{"monthly_income", &profile.MonthlyIncome},
		{"monthly_expenses", &profile.MonthlyExpenses},
	}
	for _, a := range amounts {
		v := p.Get(a.field)
		if v == "" {
			continue
		}
		d, err := core.ParseAmount(v)
		if err != nil {
			return profile, core.NewValidationError(a.field, err)
		}
		*a.dst = d
	}

	if v := p.Get("timeframe_months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return profile, core.NewValidationError("timeframe_months", core.ErrInvalidTimeframe)
		}
		profile.TimeframeMonths = n
	}
	return profile, profile.Validate()
}

// ParseDateQuery reads ?date=, defaulting to today.
func ParseDateQuery(query url.Values, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		return today, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return d, core.NewValidationError("date", err)
	}
	if err := d.Validate(); err != nil {
		return d, core.NewValidationError("date", err)
	}
	return d, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed, sanitized value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
