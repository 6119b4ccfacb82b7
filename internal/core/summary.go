package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ParetoPrecision is the number of decimal places kept on cumulative percentages.
const ParetoPrecision = 2

var hundred = decimal.NewFromInt(100)

type (
	// DateTotal is the sum of one day's records.
	DateTotal struct {
		Date  Date            `json:"date"`
		Total decimal.Decimal `json:"total"`
	}

	// CategoryTotal is the sum of one category across all days.
	CategoryTotal struct {
		Category Category        `json:"category"`
		Total    decimal.Decimal `json:"total"`
	}

	// ParetoPoint is one bar of the Pareto chart with its cumulative share
	// of the grand total, in percent.
	ParetoPoint struct {
		Date       Date            `json:"date"`
		Total      decimal.Decimal `json:"total"`
		Cumulative decimal.Decimal `json:"cumulative_percent"`
	}
)

// TotalsByDate sums amounts per day.
func (l *Ledger) TotalsByDate() map[Date]decimal.Decimal {
	out := make(map[Date]decimal.Decimal, len(l.days))
	for d, records := range l.days {
		out[d] = sum(records)
	}
	return out
}

// TotalsByCategory sums amounts per category over the whole ledger.
func (l *Ledger) TotalsByCategory() map[Category]decimal.Decimal {
	out := make(map[Category]decimal.Decimal)
	for _, records := range l.days {
		for _, r := range records {
			out[r.Category] = out[r.Category].Add(r.Amount)
		}
	}
	return out
}

// DateTotals lists per-day totals in ascending date order.
func (l *Ledger) DateTotals() []DateTotal {
	dates := l.Dates()
	out := make([]DateTotal, 0, len(dates))
	for _, d := range dates {
		out = append(out, DateTotal{Date: d, Total: sum(l.days[d])})
	}
	return out
}

// CategoryTotals lists the categories that have records, in Categories() order.
func (l *Ledger) CategoryTotals() []CategoryTotal {
	totals := l.TotalsByCategory()
	out := make([]CategoryTotal, 0, len(totals))
	for _, c := range categories {
		if t, ok := totals[c]; ok {
			out = append(out, CategoryTotal{Category: c, Total: t})
		}
	}
	return out
}

// GrandTotal is the sum of every recorded amount.
func (l *Ledger) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, records := range l.days {
		total = total.Add(sum(records))
	}
	return total
}

// ParetoSeries ranks days by total, largest first (ties by earlier date), and
// annotates each with the running percentage of the grand total.
// An empty ledger, or one whose amounts are all zero, yields an empty series.
func (l *Ledger) ParetoSeries() []ParetoPoint {
	totals := l.DateTotals()
	grand := decimal.Zero
	for _, t := range totals {
		grand = grand.Add(t.Total)
	}
	if len(totals) == 0 || grand.IsZero() {
		return []ParetoPoint{}
	}

	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Date.Before(totals[j].Date.Time)
	})

	out := make([]ParetoPoint, 0, len(totals))
	running := decimal.Zero
	for _, t := range totals {
		running = running.Add(t.Total)
		out = append(out, ParetoPoint{
			Date:       t.Date,
			Total:      t.Total,
			Cumulative: running.Mul(hundred).Div(grand).Round(ParetoPrecision),
		})
	}
	return out
}

func sum(records []ExpenseRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
