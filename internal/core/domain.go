package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryHousing        Category = "housing"
	CategoryEntertainment  Category = "entertainment"
	CategoryUtilities      Category = "utilities"
	CategoryShopping       Category = "shopping"
	CategoryOther          Category = "other"
)

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

const dateLayout = "2006-01-02"

type (
	// Category identifies one of the fixed expense categories.
	Category string

	// Language is one of the two supported UI languages.
	Language string

	// Date is a calendar day. Values built with NewDate or ParseDate are
	// normalised to UTC midnight, so they compare with == and work as map keys.
	Date struct {
		time.Time
	}
)

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrDateOutOfRange   = errors.New("date out of allowed range")
	ErrInvalidDate      = errors.New("invalid date")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownLanguage  = errors.New("unknown language")
	ErrInvalidTimeframe = errors.New("timeframe must be at least one month")
)

var (
	MinDate = NewDate(2020, 1, 1)
	MaxDate = NewDate(2030, 12, 31)
)

var categories = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryHousing,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryShopping,
	CategoryOther,
}

// ValidationError reports which input was rejected. It unwraps to one of the
// package sentinel errors.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewValidationError tags err as a rejected input for field.
func NewValidationError(field string, err error) error {
	return invalid(field, err)
}

// IsValidation reports whether err was produced by input validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Categories returns every category in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts a category identifier, case-insensitively.
// Localised labels are resolved by the i18n package.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Languages returns the supported languages, primary first.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguageSpanish}
}

func (l Language) String() string {
	return string(l)
}

func (l Language) IsValid() bool {
	return l == LanguageEnglish || l == LanguageSpanish
}

// Name is the human readable language name, in that language.
func (l Language) Name() string {
	switch l {
	case LanguageSpanish:
		return "Español"
	default:
		return "English"
	}
}

// ParseLanguage accepts a language code or its name.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return LanguageEnglish, nil
	case "es", "español", "espanol", "spanish":
		return LanguageSpanish, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Validate checks the date is set and inside [MinDate, MaxDate].
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	if d.Before(MinDate.Time) || d.After(MaxDate.Time) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrDateOutOfRange, d, MinDate, MaxDate)
	}
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding so dates travel as
// plain YYYY-MM-DD strings.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}
