// Package main is the entry point for the tgrelay CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgrelay/internal/config"
	"github.com/flemzord/tgrelay/internal/core"
	"github.com/flemzord/tgrelay/internal/security"
	"github.com/flemzord/tgrelay/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tgrelay",
		Short:         "Relay between Telegram groups and IRC channels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), initCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tgrelay %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

// runFlags are shared by start and the service commands.
type runFlags struct {
	config   string
	envFile  string
	logLevel string
	dataDir  string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&f.envFile, "env-file", "", "Dotenv file loaded before the configuration (default ./.env when present)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Persistent data directory (default $XDG_DATA_HOME/tgrelay)")
}

func (f *runFlags) params() (app.RunParams, error) {
	level, err := parseLogLevel(f.logLevel)
	if err != nil {
		return app.RunParams{}, err
	}
	return app.RunParams{
		ConfigPath: f.config,
		EnvFile:    f.envFile,
		Version:    version,
		Commit:     commit,
		Date:       date,
		DataDir:    f.dataDir,
		LogLevel:   level,
	}, nil
}

// args renders the flags back into a command line, for service definitions.
func (f *runFlags) args() []string {
	var out []string
	if f.config != "" {
		out = append(out, "--config", f.config)
	}
	if f.envFile != "" {
		out = append(out, "--env-file", f.envFile)
	}
	if f.logLevel != "" {
		out = append(out, "--log-level", f.logLevel)
	}
	if f.dataDir != "" {
		out = append(out, "--data-dir", f.dataDir)
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func startCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay with all configured modules",
		RunE: func(_ *cobra.Command, _ []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}
			return app.Run(params)
		},
	}
	flags.register(cmd)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configShowCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision every module without connecting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args, envFile)
			if err != nil {
				return err
			}
			return checkConfig(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Dotenv file loaded before the configuration")
	return cmd
}

func configShowCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print the expanded configuration with secrets redacted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args, envFile)
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "Dotenv file loaded before the configuration")
	return cmd
}

// loadConfig loads the config at args[0], or the first file found in the
// standard locations, after applying envFile.
func loadConfig(args []string, envFile string) (*config.Config, error) {
	opts := config.Options{EnvFile: envFile}
	if len(args) > 0 {
		opts.Path = args[0]
	}
	return config.Load(opts)
}

// checkConfig validates cfg and provisions every module in a throwaway data
// directory, which runs each module's own validation.
func checkConfig(w io.Writer, cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}

	dataDir, err := os.MkdirTemp("", "tgrelay-check-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dataDir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, dataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	ids, err := config.Resolve(cfg)
	if err != nil {
		return err
	}
	application := core.NewApp(appCtx)
	if err := application.LoadModules(ids); err != nil {
		return err
	}
	defer application.Stop()

	fmt.Fprintf(w, "Configuration OK: %s (%d modules)\n", cfg.Path, len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

// showConfig prints cfg as YAML with secret-looking values redacted.
func showConfig(w io.Writer, cfg *config.Config) error {
	redactor := security.NewRedactor()

	modules := make(map[string]any, len(cfg.Modules))
	for id, node := range cfg.Modules {
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("decoding module %s: %w", id, err)
		}
		if m == nil {
			m = map[string]any{}
		}
		redactor.RedactMap(m)
		modules[id] = m
	}

	out := map[string]any{
		"version": cfg.Version,
		"modules": modules,
	}
	if cfg.Tracing != nil {
		out["tracing"] = cfg.Tracing
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
