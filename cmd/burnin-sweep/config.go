package main

import (
	"log/slog"
	"time"

	"github.com/svdh2/burnin-orchestrator/internal/config"
)

// driverConfig holds every environment-sourced setting the sweep driver
// needs to start.
type driverConfig struct {
	ManifestPath   string
	StatusPath     string
	MaxIterations  int
	MaxReruns      int
	ExecuteTimeout time.Duration
	SpawnRatePerS  float64

	AuditDatabaseURL string
	KafkaBrokers     string
	KafkaTopic       string
	DeflakeTokenHash string

	LogLevel slog.Level
}

func loadDriverConfig() driverConfig {
	return driverConfig{
		ManifestPath:   config.GetEnvStr("BURNIN_MANIFEST_PATH", "./manifest.yaml"),
		StatusPath:     config.GetEnvStr("BURNIN_STATUS_PATH", "./burnin-status.json"),
		MaxIterations:  config.GetEnvInt("BURNIN_MAX_ITERATIONS", 1000),
		MaxReruns:      config.GetEnvInt("BURNIN_MAX_RERUNS", 20),
		ExecuteTimeout: config.GetEnvDuration("BURNIN_EXECUTE_TIMEOUT", 5*time.Minute),
		SpawnRatePerS:  config.GetEnvFloat("BURNIN_SPAWN_RATE_PER_SECOND", 0),

		AuditDatabaseURL: config.GetEnvStr("BURNIN_AUDIT_DATABASE_URL", ""),
		KafkaBrokers:     config.GetEnvStr("BURNIN_KAFKA_BROKERS", ""),
		KafkaTopic:       config.GetEnvStr("BURNIN_KAFKA_TOPIC", "burnin.transitions"),
		DeflakeTokenHash: config.GetEnvStr("BURNIN_DEFLAKE_TOKEN_HASH", ""),

		LogLevel: config.GetEnvLogLevel("BURNIN_LOG_LEVEL", slog.LevelInfo),
	}
}
