package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/varqopt/internal/config"
)

var (
	logLevel   string
	configPath string
	dataDir    string
	logger     *slog.Logger

	// cfg is loaded before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "varqopt",
	Short: "Variational quantum optimization on simulated and device backends",
	Long: `varqopt solves quadratic binary problems with Pauli-correlation encoding
and QAOA, estimates Hamiltonian ground states with VQE, and partitions
large graphs spectrally. Runs are stored on disk and can be served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if dataDir != "" {
			loaded.DataDir = dataDir
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		setupLogger(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Base directory for stored runs; overrides the config file")
}

func setupLogger(name string) {
	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// results go to stdout, logs to stderr
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func displayID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

func bitstring(x []bool) string {
	b := make([]byte, len(x))
	for i, v := range x {
		b[i] = '0'
		if v {
			b[i] = '1'
		}
	}
	return string(b)
}
