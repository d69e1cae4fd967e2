package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print summary counts for the loaded bank",
		Long: `Loads the bank and reports the total question count, how many distinct
exact-hash and template-hash fingerprints it holds, and how many
questions carry at least one image.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runStats(c)
		},
	}
	return cmd
}

type statsDoc struct {
	QID          string            `json:"qid"`
	Images       []json.RawMessage `json:"images"`
	Fingerprints map[string]string `json:"fingerprints"`
}

func runStats(c *cobra.Command) error {
	st := resolveStyles(noColor)

	e, _, cleanup, err := loadEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	raw, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("render bank: %w", err)
	}

	var snapshot struct {
		Docs []statsDoc `json:"docs"`
	}
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return fmt.Errorf("decode bank snapshot: %w", err)
	}

	exactHashes := make(map[string]struct{})
	templateHashes := make(map[string]struct{})
	withImages := 0
	for _, doc := range snapshot.Docs {
		if h := doc.Fingerprints["exact_hash"]; h != "" {
			exactHashes[h] = struct{}{}
		}
		if h := doc.Fingerprints["template_hash"]; h != "" {
			templateHashes[h] = struct{}{}
		}
		if len(doc.Images) > 0 {
			withImages++
		}
	}

	out := c.OutOrStdout()
	fmt.Fprintln(out, st.Header.Render("Bank stats"))
	fmt.Fprintln(out, st.Success.Render(fmt.Sprintf("  questions:          %d", len(snapshot.Docs))))
	fmt.Fprintln(out, st.Dim.Render(fmt.Sprintf("  distinct exact hash: %d", len(exactHashes))))
	fmt.Fprintln(out, st.Dim.Render(fmt.Sprintf("  distinct templates:  %d", len(templateHashes))))
	fmt.Fprintln(out, st.Dim.Render(fmt.Sprintf("  with images:         %d", withImages)))
	return nil
}
