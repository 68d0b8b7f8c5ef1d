package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/autolysis/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the built-in model catalog used for context budgeting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current := ""
		if cfg != nil {
			current = cfg.Model
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tIN $/1K\tOUT $/1K\t")
		for _, m := range ai.Catalog() {
			name := m.Name
			if name == current {
				name += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%.5f\t%.5f\t\n", m.Provider, name, m.ContextTokens, m.InputPerK, m.OutputPerK)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
