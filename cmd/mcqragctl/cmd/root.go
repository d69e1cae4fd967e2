// Package cmd provides the CLI commands for mcqragctl.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/mcqrag/internal/config"
	"github.com/Aman-CERP/mcqrag/internal/engine"
	"github.com/Aman-CERP/mcqrag/internal/rlog"
)

var (
	bankPath   string
	configPath string
	noColor    bool
	logLevel   string
)

// NewRootCmd creates the root command for the mcqragctl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcqragctl",
		Short: "Hybrid MCQ retrieval and deduplication engine",
		Long: `mcqragctl operates a local, in-memory hybrid question bank: BM25 keyword
search, dense embedding search, and image similarity search fused into a
single ranking, with exact and near duplicate detection on ingest.

The bank lives entirely in memory for the duration of one command; state
persists between invocations only through the JSONL bank file (--bank).`,
	}

	root.PersistentFlags().StringVar(&bankPath, "bank", "bank.jsonl", "path to the JSONL question bank")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable styled output")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newRetrieveCmd())
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newServeCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadEngine builds an Engine from the resolved config and loads the bank
// file if it exists; a missing bank file starts from an empty engine.
func loadEngine() (*engine.Engine, *slog.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := rlog.Default()
	logCfg.Level = logLevel
	logger, cleanup, err := rlog.Setup(logCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup logging: %w", err)
	}

	e := engine.New(engine.WithConfig(cfg), engine.WithLogger(logger))
	if _, err := e.LoadLocalBank(bankPath); err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("load bank %s: %w", bankPath, err)
	}
	return e, logger, cleanup, nil
}
