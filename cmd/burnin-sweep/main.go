// Package main provides the burn-in sweep driver: the CLI that loads a
// test manifest and status store, drives undecided tests through the SPRT
// engine, and handles stable-test regressions and deflake requests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/svdh2/burnin-orchestrator/internal/audit"
	"github.com/svdh2/burnin-orchestrator/internal/authz"
	"github.com/svdh2/burnin-orchestrator/internal/burnin"
	"github.com/svdh2/burnin-orchestrator/internal/config"
	"github.com/svdh2/burnin-orchestrator/internal/dag"
	"github.com/svdh2/burnin-orchestrator/internal/label"
	"github.com/svdh2/burnin-orchestrator/internal/lifecycle"
	"github.com/svdh2/burnin-orchestrator/internal/publish"
	"github.com/svdh2/burnin-orchestrator/internal/status"
)

const (
	version = "1.0.0-dev"
	name    = "burnin-sweep"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	cfg := loadDriverConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	graph, manifestBytes, err := dag.LoadManifest(cfg.ManifestPath)
	if err != nil {
		log.Fatalf("failed to load manifest: %v", err)
	}

	store := status.Open(cfg.StatusPath)

	fingerprint := label.Fingerprint(manifestBytes)
	if store.CheckManifestDrift(fingerprint) {
		logger.Warn("manifest changed since the status store was last saved",
			"manifest_path", cfg.ManifestPath)
	}

	store.SetManifestFingerprint(fingerprint)

	publisher := buildPublisher(cfg, logger)
	if closer, ok := publisher.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	auditSink := buildAuditSink(cfg, logger)
	if closer, ok := auditSink.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	sweep := burnin.New(graph, store, burnin.NewProcessExecutor(cfg.ExecuteTimeout), logger)
	sweep.MaxIterations = cfg.MaxIterations
	sweep.Publisher = publisher
	sweep.AuditSink = auditSink

	if cfg.SpawnRatePerS > 0 {
		sweep.Throttle = rate.NewLimiter(rate.Limit(cfg.SpawnRatePerS), 1)
	}

	command := "sweep"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx := context.Background()

	switch command {
	case "sweep":
		runSweep(ctx, sweep, store, logger)
	case "demote":
		runDemote(ctx, sweep, os.Args[2:], cfg.MaxReruns, logger)
	case "deflake":
		runDeflake(store, cfg, os.Args[2:], logger)
	default:
		log.Fatalf("unknown command: %s", command)
	}
}

func runSweep(ctx context.Context, sweep *burnin.Sweep, store *status.Store, logger *slog.Logger) {
	result, err := sweep.Run(ctx, nil)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}

	logger.Info("sweep complete", "iterations", result.Iterations, "decided", len(result.Decided))

	remaining := store.GetTestsByState(status.StateBurningIn)
	if len(remaining) > 0 {
		logger.Warn("sweep stopped with undecided tests remaining", "count", len(remaining))
		os.Exit(1)
	}
}

func runDemote(ctx context.Context, sweep *burnin.Sweep, args []string, maxReruns int, logger *slog.Logger) {
	if len(args) < 1 {
		log.Fatalf("usage: %s demote <label>", name)
	}

	decision, err := sweep.HandleStableFailure(ctx, args[0], maxReruns)
	if err != nil {
		log.Fatalf("demotion handler failed: %v", err)
	}

	logger.Info("stable failure handled", "label", args[0], "decision", decision)
}

func runDeflake(store *status.Store, cfg driverConfig, args []string, logger *slog.Logger) {
	if len(args) < 1 {
		log.Fatalf("usage: %s deflake <label> [token]", name)
	}

	target := args[0]

	token := ""
	if len(args) > 1 {
		token = args[1]
	}

	if !authz.Authorized(cfg.DeflakeTokenHash, token) {
		logger.Warn("deflake rejected: unauthorized", "label", target)
		os.Exit(1)
	}

	current, ok := store.GetTestState(target)
	if !ok {
		current = status.StateStable
	}

	if err := lifecycle.Validate(current, status.StateBurningIn); err != nil {
		log.Fatalf("deflake rejected: %v", err)
	}

	zero := 0
	if err := store.SetTestState(target, status.StateBurningIn, &zero, &zero); err != nil {
		log.Fatalf("deflake failed: %v", err)
	}

	if err := store.Save(); err != nil {
		log.Fatalf("deflake failed to save: %v", err)
	}

	logger.Info("deflake applied, counters cleared", "label", target)
}

func buildPublisher(cfg driverConfig, logger *slog.Logger) publish.TransitionPublisher {
	if cfg.KafkaBrokers == "" {
		return publish.NoopPublisher{}
	}

	brokers := config.ParseCommaSeparatedList(cfg.KafkaBrokers)

	return publish.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
}

func buildAuditSink(cfg driverConfig, logger *slog.Logger) audit.Sink {
	if cfg.AuditDatabaseURL == "" {
		return audit.NoopSink{}
	}

	sink, err := audit.Open(cfg.AuditDatabaseURL, logger)
	if err != nil {
		logger.Warn("failed to open audit database, continuing without the mirror", "error", err.Error())

		return audit.NoopSink{}
	}

	return sink
}
