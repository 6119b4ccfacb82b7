package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/i18n"
)

type paretoReport struct {
	Pareto     []core.ParetoPoint   `json:"pareto"`
	Categories []core.CategoryTotal `json:"categories"`
	Total      decimal.Decimal      `json:"total"`
}

func newParetoCommand() *cobra.Command {
	var (
		file   string
		lang   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "pareto",
		Short: "Summarise a CSV of expenses",
		Long: `Read date,category,amount rows and print the daily Pareto series and
the totals per category. A leading header row is skipped. Categories may be
given by id or by their English or Spanish label.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			language, err := core.ParseLanguage(lang)
			if err != nil {
				return err
			}
			tr, err := i18n.New()
			if err != nil {
				return fmt.Errorf("load translations: %w", err)
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open expenses: %w", err)
			}
			defer f.Close()

			ledger, err := ReadExpensesCSV(f, tr)
			if err != nil {
				return err
			}
			report := paretoReport{
				Pareto:     ledger.ParetoSeries(),
				Categories: ledger.CategoryTotals(),
				Total:      ledger.GrandTotal(),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printParetoReport(cmd.OutOrStdout(), report, tr, language)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file with date,category,amount rows")
	cmd.Flags().StringVar(&lang, "lang", "en", "Output language (en or es)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// ReadExpensesCSV loads date,category,amount rows into a fresh ledger.
// Errors name the offending line.
func ReadExpensesCSV(r io.Reader, tr *i18n.Translator) (*core.Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	ledger := core.NewLedger()
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read expenses: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}

		date, err := core.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		category, err := tr.ParseCategory(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := core.ParseAmount(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := ledger.AddExpense(date, category, amount); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return ledger, nil
}

func isHeader(rec []string) bool {
	switch strings.ToLower(strings.TrimSpace(rec[0])) {
	case "date", "fecha":
		return true
	}
	return false
}

func printParetoReport(out io.Writer, report paretoReport, tr *i18n.Translator, lang core.Language) error {
	if len(report.Pareto) == 0 {
		_, err := fmt.Fprintln(out, tr.T(lang, "no_expenses"))
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\t%s\t%s\t\n", tr.T(lang, "date"), tr.T(lang, "total"), tr.T(lang, "cumulative_percent"))
	for _, p := range report.Pareto {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", p.Date, core.FormatAmount(p.Total), p.Cumulative.StringFixed(core.ParetoPrecision))
	}
	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintf(w, "%s\t%s\t\t\n", tr.T(lang, "category"), tr.T(lang, "amount"))
	for _, ct := range report.Categories {
		fmt.Fprintf(w, "%s\t%s\t\t\n", tr.Category(lang, ct.Category), core.FormatAmount(ct.Total))
	}
	fmt.Fprintf(w, "%s\t%s\t\t\n", tr.T(lang, "total"), core.FormatAmount(report.Total))
	return w.Flush()
}
