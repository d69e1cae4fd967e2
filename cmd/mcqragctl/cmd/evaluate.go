package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mcqrag/internal/engine"
)

func newEvaluateCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compute retrieval metrics against a labeled query set",
		Long: `Reads a JSON file containing an array of EvalRecord objects
({"queryQid": "...", "relevantQids": ["..."]}), retrieves each query
against the current bank, and reports recall@200, MRR@10, and nDCG@20.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runEvaluate(c, inputPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "path to a JSON array of EvalRecord rows (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runEvaluate(c *cobra.Command, inputPath string) error {
	st := resolveStyles(noColor)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var records []engine.EvalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	e, _, cleanup, err := loadEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	metrics := e.Evaluate(records)

	out := c.OutOrStdout()
	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("Evaluated %d queries", len(records))))
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf("  recall@200: %.4f", metrics.RecallAtK)))
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf("  mrr@10:     %.4f", metrics.MRRAt10)))
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf("  ndcg@20:    %.4f", metrics.NDCGAt20)))
	return nil
}
