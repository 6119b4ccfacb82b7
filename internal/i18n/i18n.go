// Package i18n holds the English and Spanish message tables and turns
// localised category labels back into category identifiers.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// maxSuggestDistance bounds how far a typo may be from a known label before
// we stop offering it as a correction.
const maxSuggestDistance = 2

type table struct {
	Name       string                   `yaml:"name"`
	Messages   map[string]string        `yaml:"messages"`
	Categories map[core.Category]string `yaml:"categories"`
}

// Translator resolves message keys per language. It is read-only after New
// and safe for concurrent use.
type Translator struct {
	tables map[core.Language]*table
	// slugged label or id -> category
	index map[string]core.Category
	// slugged label or id -> label shown in corrections
	labels map[string]string
}

// UnknownCategoryError carries the closest known label, if any.
type UnknownCategoryError struct {
	Input      string
	Suggestion string
}

func (e *UnknownCategoryError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown category %q (did you mean %q?)", e.Input, e.Suggestion)
	}
	return fmt.Sprintf("unknown category %q", e.Input)
}

func (e *UnknownCategoryError) Unwrap() error {
	return core.ErrUnknownCategory
}

// New loads the embedded tables.
func New() (*Translator, error) {
	t := &Translator{
		tables: make(map[core.Language]*table),
		index:  make(map[string]core.Category),
		labels: make(map[string]string),
	}
	for _, lang := range core.Languages() {
		raw, err := localesFS.ReadFile("locales/" + lang.String() + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read %s table: %w", lang, err)
		}
		var tb table
		if err := yaml.Unmarshal(raw, &tb); err != nil {
			return nil, fmt.Errorf("parse %s table: %w", lang, err)
		}
		t.tables[lang] = &tb
	}

	if err := t.check(); err != nil {
		return nil, err
	}

	for _, c := range core.Categories() {
		t.add(c.String(), t.tables[core.LanguageEnglish].Categories[c], c)
		for _, lang := range core.Languages() {
			label := t.tables[lang].Categories[c]
			t.add(label, label, c)
		}
	}
	return t, nil
}

// MustNew is New for package-level initialisation.
func MustNew() *Translator {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Translator) add(name, label string, c core.Category) {
	key := slug.Make(name)
	t.index[key] = c
	if _, ok := t.labels[key]; !ok {
		t.labels[key] = label
	}
}

func (t *Translator) check() error {
	en := t.tables[core.LanguageEnglish]
	for lang, tb := range t.tables {
		for key := range en.Messages {
			if _, ok := tb.Messages[key]; !ok {
				return fmt.Errorf("%s table is missing message %q", lang, key)
			}
		}
		for key := range tb.Messages {
			if _, ok := en.Messages[key]; !ok {
				return fmt.Errorf("%s table has extra message %q", lang, key)
			}
		}
		for _, c := range core.Categories() {
			if strings.TrimSpace(tb.Categories[c]) == "" {
				return fmt.Errorf("%s table has no label for category %q", lang, c)
			}
		}
	}
	return nil
}

func (t *Translator) table(lang core.Language) *table {
	if tb, ok := t.tables[lang]; ok {
		return tb
	}
	return t.tables[core.LanguageEnglish]
}

// T returns the message for key, falling back to English and then to the key.
func (t *Translator) T(lang core.Language, key string) string {
	if msg, ok := t.table(lang).Messages[key]; ok {
		return msg
	}
	if msg, ok := t.tables[core.LanguageEnglish].Messages[key]; ok {
		return msg
	}
	return key
}

// Format fills a templated message with fmt verbs.
func (t *Translator) Format(lang core.Language, key string, args ...any) string {
	return fmt.Sprintf(t.T(lang, key), args...)
}

// Category returns the localised label for c.
func (t *Translator) Category(lang core.Language, c core.Category) string {
	if label, ok := t.table(lang).Categories[c]; ok {
		return label
	}
	return c.String()
}

// Name returns the language's own name as listed in its table.
func (t *Translator) Name(lang core.Language) string {
	return t.table(lang).Name
}

// Keys lists the message keys of lang, sorted.
func (t *Translator) Keys(lang core.Language) []string {
	msgs := t.table(lang).Messages
	keys := make([]string, 0, len(msgs))
	for k := range msgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseCategory accepts a category id or a label in any language, ignoring
// case and accents. Unknown input yields a validation error wrapping an
// *UnknownCategoryError.
func (t *Translator) ParseCategory(input string) (core.Category, error) {
	key := slug.Make(input)
	if c, ok := t.index[key]; ok && key != "" {
		return c, nil
	}

	best, bestDist := "", maxSuggestDistance+1
	for candidate := range t.index {
		if d := levenshtein.ComputeDistance(key, candidate); d < bestDist || (d == bestDist && candidate < best) {
			best, bestDist = candidate, d
		}
	}

	err := &UnknownCategoryError{Input: input}
	if best != "" && key != "" {
		err.Suggestion = t.labels[best]
	}
	return "", core.NewValidationError("category", err)
}

// Error maps a validation failure to a localised message.
func (t *Translator) Error(lang core.Language, err error) string {
	var uc *UnknownCategoryError
	switch {
	case errors.As(err, &uc) && uc.Suggestion != "":
		return t.T(lang, "err_unknown_category") + " " + t.Format(lang, "did_you_mean", uc.Suggestion)
	case errors.Is(err, core.ErrNegativeAmount):
		return t.T(lang, "err_negative_amount")
	case errors.Is(err, core.ErrInvalidAmount):
		return t.T(lang, "err_invalid_amount")
	case errors.Is(err, core.ErrDateOutOfRange):
		return t.T(lang, "err_date_range")
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrZeroDate):
		return t.T(lang, "err_invalid_date")
	case errors.Is(err, core.ErrUnknownCategory):
		return t.T(lang, "err_unknown_category")
	case errors.Is(err, core.ErrInvalidTimeframe):
		return t.T(lang, "err_timeframe")
	default:
		return t.T(lang, "err_generic")
	}
}
