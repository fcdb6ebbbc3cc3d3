package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cordonhq/cordon/internal/config"
	"github.com/cordonhq/cordon/internal/logging"
	"github.com/cordonhq/cordon/internal/models"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <action.json>",
	Short: "Evaluate one proposed action and print the verdict",
	Long:  `Evaluate reads a proposed action from a JSON file, runs it through the decision engine against the configured reference datasets, and prints the verdict as JSON. No server is started and nothing is recorded.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEvaluate(args[0])
	},
}

func runEvaluate(path string) error {
	// Evaluation output goes to stdout; keep logs quiet on stderr.
	logging.Init(logging.Config{
		Format:    "console",
		Level:     "warn",
		Component: "cordon",
	})
	defer logging.Shutdown()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var action models.ProposedAction
	if err := json.Unmarshal(data, &action); err != nil {
		return fmt.Errorf("invalid action file %s: %w", path, err)
	}

	ds, err := loadDatasets(cfg)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg, ds)
	if err != nil {
		return err
	}

	verdict, err := eng.Evaluate(context.Background(), action)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(verdict)
}
