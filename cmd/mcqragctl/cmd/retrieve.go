package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mcqrag/internal/engine"
)

func newRetrieveCmd() *cobra.Command {
	var (
		questionID string
		filterArgs []string
		topK       int
		topM       int
		topN       int
		format     string
	)

	cmd := &cobra.Command{
		Use:   "retrieve [query text]",
		Short: "Run a hybrid retrieval against the bank",
		Long: `Runs the sparse, dense, and image channels against the loaded bank,
fuses and reranks the candidates, and prints the ranked results.

Query text can come from positional args or --question-id, which resolves
to the stem of an existing question in the bank.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(c *cobra.Command, args []string) error {
			filters, err := parseFilters(filterArgs)
			if err != nil {
				return err
			}
			query := engine.QueryInput{
				Text:       strings.Join(args, " "),
				QuestionID: questionID,
				Filters:    filters,
				TopK:       topK,
				TopM:       topM,
				TopN:       topN,
			}
			return runRetrieve(c, query, format)
		},
	}

	cmd.Flags().StringVar(&questionID, "question-id", "", "resolve query text from an existing question's stem")
	cmd.Flags().StringArrayVar(&filterArgs, "filter", nil, "metadata filter as key=value, repeatable")
	cmd.Flags().IntVar(&topK, "top-k", 0, "per-channel candidate budget (0 = use config default)")
	cmd.Flags().IntVar(&topM, "top-m", 0, "candidates kept for reranking (0 = use config default)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "final result count (0 = use config default)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")

	return cmd
}

func parseFilters(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --filter %q, expected key=value", arg)
		}
		filters[key] = value
	}
	return filters, nil
}

func runRetrieve(c *cobra.Command, query engine.QueryInput, format string) error {
	st := resolveStyles(noColor)

	e, _, cleanup, err := loadEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	resp := e.Retrieve(query)

	out := c.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("%d results (%dms)", len(resp.Results), resp.TookMS)))
	for i, r := range resp.Results {
		line := fmt.Sprintf("%2d. [%s] %s  rerank=%.3f", i+1, r.DuplicateClass, r.QID, r.RerankScore)
		switch r.DuplicateClass {
		case engine.ClassDuplicate:
			fmt.Fprintln(out, st.Error.Render(line))
		case engine.ClassNearDuplicate:
			fmt.Fprintln(out, st.Warning.Render(line))
		default:
			fmt.Fprintln(out, st.Success.Render(line))
		}
		fmt.Fprintln(out, st.Dim.Render("    "+r.Question.Stem))
		fmt.Fprintln(out, st.Dim.Render("    "+r.Reason))
	}
	return nil
}
