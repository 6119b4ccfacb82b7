package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/suggest"
)

func newSuggestCommand(opts *rootOptions) *cobra.Command {
	var income, expenses, goal, lang string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask for savings strategies from monthly totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := parseSuggestRequest(income, expenses, goal, lang)
			if err != nil {
				return err
			}

			cfg, err := LoadAndValidateConfig(opts.envFile)
			if err != nil {
				return err
			}
			logger, err := SetupLogger(cfg)
			if err != nil {
				return err
			}
			s, err := NewSuggester(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			text, err := s.Suggest(cmd.Context(), req)
			if errors.Is(err, suggest.ErrDisabled) {
				return fmt.Errorf("%w: set GEMINI_API_KEY", err)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(text))
			return err
		},
	}
	cmd.Flags().StringVar(&income, "income", "0", "Monthly income")
	cmd.Flags().StringVar(&expenses, "expenses", "0", "Monthly expenses")
	cmd.Flags().StringVar(&goal, "goal", "0", "Savings goal")
	cmd.Flags().StringVar(&lang, "lang", "en", "Answer language (en or es)")
	return cmd
}

func parseSuggestRequest(income, expenses, goal, lang string) (suggest.Request, error) {
	var req suggest.Request
	var err error
	if req.Income, err = core.ParseAmount(income); err != nil {
		return req, core.NewValidationError("income", err)
	}
	if req.Expenses, err = core.ParseAmount(expenses); err != nil {
		return req, core.NewValidationError("expenses", err)
	}
	if req.SavingsGoal, err = core.ParseAmount(goal); err != nil {
		return req, core.NewValidationError("savings_goal", err)
	}
	if req.Language, err = core.ParseLanguage(lang); err != nil {
		return req, err
	}
	return req, req.Validate()
}
