package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cordonhq/cordon/internal/agents"
	"github.com/cordonhq/cordon/internal/api"
	"github.com/cordonhq/cordon/internal/audit"
	"github.com/cordonhq/cordon/internal/config"
	"github.com/cordonhq/cordon/internal/engine"
	"github.com/cordonhq/cordon/internal/incidents"
	"github.com/cordonhq/cordon/internal/logging"
	"github.com/cordonhq/cordon/internal/mock"
	"github.com/cordonhq/cordon/internal/mockmode"
	"github.com/cordonhq/cordon/internal/narrative"
	"github.com/cordonhq/cordon/internal/policies"
	"github.com/cordonhq/cordon/internal/topology"
	"github.com/cordonhq/cordon/internal/websocket"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "cordon",
	Short:   "Cordon - governance gate for agent-proposed infrastructure changes",
	Long:    `Cordon evaluates proposed infrastructure changes across blast radius, policy, incident history, and cost, and returns an approve, escalate, or deny verdict.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(mockCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Cordon %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// datasets bundles one consistent load of the three reference files.
type datasets struct {
	graph   *topology.Snapshot
	rules   []policies.Rule
	history []incidents.Record
}

func loadDatasets(cfg *config.Config) (*datasets, error) {
	if cfg.MockMode || mockmode.IsEnabled() {
		graph, err := mock.Graph()
		if err != nil {
			return nil, fmt.Errorf("mock graph: %w", err)
		}
		rules, err := mock.Rules()
		if err != nil {
			return nil, fmt.Errorf("mock policies: %w", err)
		}
		history, err := mock.Incidents()
		if err != nil {
			return nil, fmt.Errorf("mock incidents: %w", err)
		}
		return &datasets{graph: graph, rules: rules, history: history}, nil
	}

	graph, err := topology.LoadFile(cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("resource graph %s: %w", cfg.GraphPath, err)
	}
	rules, err := policies.LoadFile(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("policies %s: %w", cfg.PolicyPath, err)
	}
	history, err := incidents.LoadFile(cfg.IncidentPath)
	if err != nil {
		return nil, fmt.Errorf("incidents %s: %w", cfg.IncidentPath, err)
	}
	return &datasets{graph: graph, rules: rules, history: history}, nil
}

func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.AutoApproveThreshold = cfg.AutoApproveThreshold
	ec.HumanReviewThreshold = cfg.HumanReviewThreshold
	ec.Weights = engine.Weights{
		Infrastructure: cfg.WeightInfrastructure,
		Policy:         cfg.WeightPolicy,
		Historical:     cfg.WeightHistorical,
		Cost:           cfg.WeightCost,
	}
	ec.Financial.ScaleDownFactor = cfg.ScaleDownFactor
	ec.Financial.ScaleUpFactor = cfg.ScaleUpFactor
	return ec
}

func buildAugmenter(cfg *config.Config) narrative.Augmenter {
	if cfg.Narrative.Provider == "openai" {
		return narrative.NewOpenAIClient(cfg.Narrative.APIKey, cfg.Narrative.Model, cfg.Narrative.BaseURL)
	}
	return narrative.Noop{}
}

func buildEngine(cfg *config.Config, ds *datasets) (*engine.Engine, error) {
	return engine.New(engineConfig(cfg), ds.graph, ds.rules, ds.history,
		engine.WithAugmenter(buildAugmenter(cfg)))
}

func runServer() {
	// Baseline logger for early startup; reconfigured below from config.
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "cordon",
	})
	defer logging.Shutdown()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "cordon",
		FilePath:  cfg.LogFile,
	})

	log.Info().Str("version", Version).Bool("mockMode", cfg.MockMode || mockmode.IsEnabled()).Msg("Starting Cordon governance server")

	ds, err := loadDatasets(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load reference datasets")
	}
	eng, err := buildEngine(cfg, ds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build decision engine")
	}

	// The engine and graph are replaced wholesale on dataset reload; readers
	// only ever see a fully built snapshot.
	var mu sync.RWMutex
	getEngine := func() *engine.Engine {
		mu.RLock()
		defer mu.RUnlock()
		return eng
	}
	getGraph := func() *topology.Snapshot {
		mu.RLock()
		defer mu.RUnlock()
		return ds.graph
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to create data directory")
	}
	recorder, err := audit.NewSQLiteRecorder(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit store")
	}
	defer recorder.Close()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Shutdown()

	if !cfg.MockMode && !mockmode.IsEnabled() {
		watcher, err := config.NewDatasetWatcher(cfg, func() {
			fresh, err := loadDatasets(cfg)
			if err != nil {
				log.Error().Err(err).Msg("Dataset reload failed; keeping previous snapshot")
				return
			}
			rebuilt, err := buildEngine(cfg, fresh)
			if err != nil {
				log.Error().Err(err).Msg("Engine rebuild failed; keeping previous snapshot")
				return
			}
			mu.Lock()
			ds, eng = fresh, rebuilt
			mu.Unlock()
			log.Info().Int("resources", fresh.graph.Len()).Int("policies", len(fresh.rules)).Int("incidents", len(fresh.history)).Msg("Reference datasets reloaded")
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create dataset watcher; file changes will require restart")
		} else {
			if err := watcher.Start(); err != nil {
				log.Warn().Err(err).Msg("Failed to start dataset watcher")
			}
			defer watcher.Stop()
		}
	}

	if cfg.AgentsEnabled {
		runner := agents.NewRunner(agents.DefaultProposers(), getEngine, getGraph, recorder, hub, cfg.AgentInterval)
		go runner.Run(ctx)
	}

	router := api.NewRouter(api.Deps{
		Engine:   getEngine,
		Recorder: recorder,
		Hub:      hub,
		Version:  Version,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
}
