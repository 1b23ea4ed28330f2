package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/optimizer-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored optimization runs",
}

var runsListFlags struct {
	testModel string
	limit     int
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		summaries, err := st.ListRuns(cmd.Context(), store.RunFilter{
			TestModel: runsListFlags.testModel,
			Limit:     runsListFlags.limit,
		})
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("no runs stored")
			return nil
		}
		for _, rs := range summaries {
			fmt.Printf("%s  %s  fields=%d improved=%d converged=%d  %s  %s\n",
				rs.RunID, rs.TestModel, rs.Fields, rs.Improved, rs.Converged,
				rs.StartedAt.Format("2006-01-02 15:04"), rs.Duration.Round(1e9))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored run report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func init() {
	runsListCmd.Flags().StringVar(&runsListFlags.testModel, "model", "", "filter by test model")
	runsListCmd.Flags().IntVar(&runsListFlags.limit, "limit", 20, "max runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
