// Package milestone parses command flags and launches the engine runtime.
package milestone

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	entrypoint "github.com/wergy/milestone/internal/platform/cmd"

	"github.com/wergy/milestone/internal/app"
	"github.com/wergy/milestone/internal/platform/config"
)

// Config holds milestone command configuration.
type Config struct {
	DefinitionsPath string        `env:"MILESTONE_DEFINITIONS_PATH" envDefault:"data/definitions.yaml"`
	DBPath          string        `env:"MILESTONE_DB_PATH" envDefault:"data/milestone.db"`
	EventsPath      string        `env:"MILESTONE_EVENTS_PATH"`
	TickInterval    time.Duration `env:"MILESTONE_TICK_INTERVAL" envDefault:"1s"`
	FlushInterval   time.Duration `env:"MILESTONE_FLUSH_INTERVAL" envDefault:"1s"`
	LogLevel        string        `env:"MILESTONE_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DefinitionsPath, "definitions", cfg.DefinitionsPath, "Criteria definition YAML path")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite snapshot database path")
	fs.StringVar(&cfg.EventsPath, "events", cfg.EventsPath, "JSONL event feed path")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "Timed challenge expiry scan interval")
	fs.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "Journal flush interval")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the engine runtime with tracing around the run loop.
func Run(ctx context.Context, cfg Config) error {
	level := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMilestone, func(ctx context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			DefinitionsPath: cfg.DefinitionsPath,
			DBPath:          cfg.DBPath,
			EventsPath:      cfg.EventsPath,
			TickInterval:    cfg.TickInterval,
			FlushInterval:   cfg.FlushInterval,
			Logger:          logger,
		})
	})
}
