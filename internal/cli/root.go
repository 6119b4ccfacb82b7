package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFile string
}

// NewRootCommand builds the ahorro command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ahorro",
		Short: "Personal savings assistant",
		Long: `ahorro tracks daily expenses per category, charts where the money goes
and asks a language model for savings strategies.

Examples:
  ahorro serve
  ahorro pareto --file expenses.csv --lang es
  ahorro suggest --income 2500 --expenses 1800 --goal 5000`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")

	root.AddCommand(
		newServeCommand(opts),
		newParetoCommand(),
		newSuggestCommand(opts),
	)
	return root
}
