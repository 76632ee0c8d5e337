package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

// Set by -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "doctranslate",
	Short: "Translate subtitle and localization files through LLM and translation APIs",
	Long: `doctranslate translates structured documents (SRT, WebVTT, plain text, CSV,
JSON and YAML) block by block while keeping their structure, timing and line
counts intact. It runs as an HTTP service, as a watch folder, or once from the
command line.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "doctranslate %s (commit %s, built %s)\n", version, commit, date)
	},
}

// loadConfig reads the dotenv file and the environment, then installs the
// configured logger. The returned cleanup closes the log file, if any.
func loadConfig(opts ...config.Option) (*config.Config, func(), error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	level := log.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		log.InitLogger(level)
		return cfg, func() {}, nil
	}

	fileLogger, err := log.NewFileLogger(cfg.Log.File, level)
	if err != nil {
		return nil, nil, err
	}
	log.SetLogger(fileLogger.Logger)
	return cfg, func() { _ = fileLogger.Close() }, nil
}
