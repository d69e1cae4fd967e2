package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mcqrag/internal/watch"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the bank file and keep the in-memory index in sync",
		Long: `Loads the bank and then blocks, reloading it from disk whenever the
bank file changes — useful when another process (the extractor pipeline,
a second mcqragctl ingest) writes to --bank while this one serves
queries. Exits on SIGINT/SIGTERM.`,
		RunE: func(c *cobra.Command, args []string) error {
			return runServe(c)
		},
	}
	return cmd
}

func runServe(c *cobra.Command) error {
	st := resolveStyles(noColor)

	e, logger, cleanup, err := loadEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	out := c.OutOrStdout()
	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("Serving bank %s", bankPath)))

	stop, err := watch.Watch(bankPath, func() {
		count, err := e.LoadLocalBank(bankPath)
		if err != nil {
			logger.Error("reload bank on change", "path", bankPath, "error", err)
			return
		}
		logger.Info("reloaded bank on change", "path", bankPath, "count", count)
	})
	if err != nil {
		return fmt.Errorf("watch bank %s: %w", bankPath, err)
	}
	defer stop()

	ctx, stopSignal := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignal()

	fmt.Fprintln(out, st.Dim.Render("  watching for changes, press Ctrl+C to stop"))
	<-ctx.Done()
	fmt.Fprintln(out, st.Success.Render("shutting down"))
	return nil
}
