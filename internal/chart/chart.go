// Package chart shapes ledger aggregates into the JSON payloads the dashboard
// feeds to Chart.js.
package chart

import (
	"github.com/shopspring/decimal"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/i18n"
)

// SharePrecision is the number of decimals on pie slice percentages.
const SharePrecision = 1

type (
	// ParetoData drives a bar chart of daily totals with a cumulative
	// percentage line on a second axis fixed to [0, 100].
	ParetoData struct {
		Title           string    `json:"title"`
		TotalLabel      string    `json:"totalLabel"`
		CumulativeLabel string    `json:"cumulativeLabel"`
		Labels          []string  `json:"labels"`
		Totals          []float64 `json:"totals"`
		Cumulative      []float64 `json:"cumulative"`
		PercentAxis     [2]int    `json:"percentAxis"`
		Empty           bool      `json:"empty"`
	}

	// CategoryData drives a pie chart of category totals.
	CategoryData struct {
		Title       string    `json:"title"`
		Categories  []string  `json:"categories"`
		Labels      []string  `json:"labels"`
		Values      []float64 `json:"values"`
		Percentages []float64 `json:"percentages"`
		Empty       bool      `json:"empty"`
	}
)

// Pareto converts a Pareto series into chart data.
func Pareto(series []core.ParetoPoint, tr *i18n.Translator, lang core.Language) ParetoData {
	out := ParetoData{
		Title:           tr.T(lang, "pareto_chart_title"),
		TotalLabel:      tr.T(lang, "total"),
		CumulativeLabel: tr.T(lang, "cumulative_percent"),
		Labels:          make([]string, 0, len(series)),
		Totals:          make([]float64, 0, len(series)),
		Cumulative:      make([]float64, 0, len(series)),
		PercentAxis:     [2]int{0, 100},
		Empty:           len(series) == 0,
	}
	for _, p := range series {
		out.Labels = append(out.Labels, p.Date.String())
		out.Totals = append(out.Totals, p.Total.InexactFloat64())
		out.Cumulative = append(out.Cumulative, p.Cumulative.InexactFloat64())
	}
	return out
}

// Categories converts category totals into pie data. Slices keep the order of
// totals; a zero grand total yields zero shares.
func Categories(totals []core.CategoryTotal, tr *i18n.Translator, lang core.Language) CategoryData {
	out := CategoryData{
		Title:       tr.T(lang, "pie_chart_title"),
		Categories:  make([]string, 0, len(totals)),
		Labels:      make([]string, 0, len(totals)),
		Values:      make([]float64, 0, len(totals)),
		Percentages: make([]float64, 0, len(totals)),
		Empty:       len(totals) == 0,
	}

	grand := decimal.Zero
	for _, ct := range totals {
		grand = grand.Add(ct.Total)
	}

	for _, ct := range totals {
		share := decimal.Zero
		if !grand.IsZero() {
			share = ct.Total.Mul(decimal.NewFromInt(100)).Div(grand).Round(SharePrecision)
		}
		out.Categories = append(out.Categories, ct.Category.String())
		out.Labels = append(out.Labels, tr.Category(lang, ct.Category))
		out.Values = append(out.Values, ct.Total.InexactFloat64())
		out.Percentages = append(out.Percentages, share.InexactFloat64())
	}
	return out
}
