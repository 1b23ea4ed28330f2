package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/optimizer-cli/internal/registry"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Inspect field definitions and prompt history",
}

var fieldsListFlags struct {
	fieldsFile string
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List field definitions from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.LoadFields(fieldsListFlags.fieldsFile)
		if err != nil {
			return err
		}
		for _, f := range reg.Fields {
			hasPrompt := "no prompt"
			if f.Prompt != "" {
				hasPrompt = fmt.Sprintf("%d chars", len(f.Prompt))
			}
			fmt.Printf("%-30s %-10s %-18s %s\n", f.Key, f.FieldType, f.Compare.CompareType, hasPrompt)
		}
		return nil
	},
}

var fieldsHistoryFlags struct {
	limit int
}

var fieldsHistoryCmd = &cobra.Command{
	Use:   "history <field-key>",
	Short: "Show stored prompt history for a field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		fieldKey := args[0]

		best, err := st.BestPrompt(cmd.Context(), fieldKey)
		if err != nil {
			return err
		}
		if best != nil {
			fmt.Printf("best (%.0f%%, run %s):\n%s\n\n", best.Accuracy*100, best.RunID, best.Prompt)
		}

		records, err := st.PromptHistory(cmd.Context(), fieldKey, fieldsHistoryFlags.limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no history stored")
			return nil
		}
		for _, pr := range records {
			adopted := ""
			if pr.Improved {
				adopted = " adopted"
			}
			fmt.Printf("%s  %.0f%%%s  run %s\n", pr.CreatedAt.Format("2006-01-02 15:04"), pr.Accuracy*100, adopted, pr.RunID)
		}
		return nil
	},
}

func init() {
	fieldsListCmd.Flags().StringVar(&fieldsListFlags.fieldsFile, "fields", "fields.yaml", "path to field definitions YAML")
	fieldsHistoryCmd.Flags().IntVar(&fieldsHistoryFlags.limit, "limit", 20, "max history entries")
	fieldsCmd.AddCommand(fieldsListCmd)
	fieldsCmd.AddCommand(fieldsHistoryCmd)
	rootCmd.AddCommand(fieldsCmd)
}
