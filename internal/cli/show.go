package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"solscreener/internal/app"
)

var (
	showRuns int
	showRun  string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display stored screening runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showRuns <= 0 {
			return fmt.Errorf("--runs must be greater than zero")
		}

		opts := app.ShowOptions{
			Runs: showRuns,
		}

		if showRun != "" {
			runAt, err := time.Parse(time.RFC3339, showRun)
			if err != nil {
				return fmt.Errorf("invalid --run value: %w", err)
			}
			opts.RunAt = &runAt
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showRuns, "runs", 20, "Number of recent runs to display")
	showCmd.Flags().StringVar(&showRun, "run", "", "Show candidates of one run (RFC3339 timestamp)")
}
