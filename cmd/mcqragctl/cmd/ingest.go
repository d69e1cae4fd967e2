package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mcqrag/internal/engine"
)

func newIngestCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest questions from a JSON payload into the bank",
		Long: `Reads a JSON file shaped like engine.IngestionInput — {"questions": [...],
"files": [...]} — normalizes every row, flags exact and near duplicates
against the existing bank, stores new questions, and rewrites the bank
file with the result.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runIngest(c, inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a JSON IngestionInput payload (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runIngest(c *cobra.Command, inputPath string) error {
	st := resolveStyles(noColor)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var payload engine.IngestionInput
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	e, _, cleanup, err := loadEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	results := e.Ingest(payload)

	var newCount, exactCount, nearCount int
	for _, r := range results {
		switch r.Status {
		case engine.StatusNew:
			newCount++
		case engine.StatusExactDuplicate:
			exactCount++
		case engine.StatusNearDuplicate:
			nearCount++
		}
	}

	if _, err := e.SaveLocalBank(bankPath); err != nil {
		return fmt.Errorf("save bank: %w", err)
	}

	out := c.OutOrStdout()
	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("Ingested %d rows", len(results))))
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf("  new: %d", newCount)))
	if exactCount > 0 {
		fmt.Fprintln(out, st.Dim.Render(fmt.Sprintf("  exact duplicates: %d", exactCount)))
	}
	if nearCount > 0 {
		fmt.Fprintln(out, st.Warning.Render(fmt.Sprintf("  near duplicates: %d", nearCount)))
	}
	return nil
}
