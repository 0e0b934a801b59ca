// Package app provides the shared entry point for the tgrelay binary: it
// loads configuration, builds the logger and tracing, provisions the
// modules, wires Telegram to IRC and runs until the context is cancelled.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/metrics"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/internal/tracing"

	// Modules register themselves with core in init.
	_ "github.com/flemzord/tgrelay/internal/gateway"
	_ "github.com/flemzord/tgrelay/modules/channel/irc"
	_ "github.com/flemzord/tgrelay/modules/channel/telegram"
)

const tracingFlushTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Find searches the standard locations.
	ConfigPath string

	// EnvFile is a dotenv file loaded before the configuration is expanded.
	// If empty, a .env beside the configuration or in the working directory
	// is loaded when present.
	EnvFile string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Run starts the relay and blocks until SIGINT or SIGTERM.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext starts the relay and blocks until ctx is done, then stops every
// module in reverse start order.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, err := config.Load(config.Options{Path: params.ConfigPath, EnvFile: params.EnvFile})
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	redactor := security.NewRedactor()
	logger := NewLogger(params.LogOutput, params.LogLevel, redactor)

	var tracingCfg tracing.Config
	if cfg.Tracing != nil {
		tracingCfg = *cfg.Tracing
	}
	shutdownTracing, err := tracing.Setup(ctx, tracingCfg, params.Version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(security.ServiceName, redactor)
	appCtx.RegisterService(metrics.ServiceName, metrics.New(prometheus.NewRegistry()).WithRuntimeCollectors())

	logger.Info("tgrelay starting",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfg.Path,
		"data_dir", dataDir,
	)

	ids, err := config.Resolve(cfg)
	if err != nil {
		return err
	}
	application := core.NewApp(appCtx)
	if err := application.LoadModules(ids); err != nil {
		return err
	}

	// Wire between LoadModules and Start: the relay modules only meet here.
	if err := wireRelay(application); err != nil {
		return err
	}
	if err := wireScheduler(application, logger); err != nil {
		return err
	}

	return application.Run(ctx)
}

// NewLogger builds the text logger used by every module, with secrets known
// to redactor stripped from messages and attributes.
func NewLogger(w io.Writer, level slog.Level, redactor *security.Redactor) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/tgrelay if set, otherwise ~/.local/share/tgrelay.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "tgrelay")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tgrelay")
}
