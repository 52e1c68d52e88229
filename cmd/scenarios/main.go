// Command scenarios runs every proxy scenario once and logs the reports.
package main

import (
	"context"
	"fmt"
	"os"

	"txproxy/internal/app"
	"txproxy/internal/config"
	"txproxy/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Defaults()
	if path := getEnv("PROXY_CONFIG", ""); path != "" {
		if cfg, err = config.Load(path); err != nil {
			log.Fatalw("failed to load proxy config", "path", path, "error", err)
		}
	}

	ctx := logger.WithLogger(context.Background(), log)
	runner := app.NewRunner(cfg, nil)

	names := os.Args[1:]
	if len(names) == 0 {
		names = app.Scenarios()
	}

	failed := false
	for _, name := range names {
		report, err := runner.Run(ctx, name)
		if err != nil {
			log.Errorw("scenario not run", "scenario", name, "error", err)
			failed = true
			continue
		}
		for _, obs := range report.Observations {
			log.Infow("observation",
				"scenario", name,
				"method", obs.Method,
				"tx_active", obs.TxActive,
				"tx_read_only", obs.ReadOnly,
				"tx_depth", obs.Depth,
			)
		}
		log.Infow("report",
			"scenario", name,
			"active_after", report.ActiveAfter,
			"error", report.Error,
		)
	}
	if failed {
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
