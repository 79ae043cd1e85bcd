// Package cli implements the logtrail command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dimasfr/logtrail/internal/config"
	"github.com/dimasfr/logtrail/internal/logger"
	"github.com/dimasfr/logtrail/pkg/sessionlog"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "logtrail",
	Short: "Logtrail - shell session recorder",
	Long: `Logtrail records shell-command executions as identified log sessions.
Each session is a JSONL file of entries; sessions are indexed, archived
when idle, expired by retention, and exportable as JSON fixtures.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.logtrail/logtrail.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		Console:    cfg.Logging.Console,
		Pretty:     cfg.Logging.Pretty,
		Redaction:  cfg.Logging.Redaction,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}
	if logLevel != "" {
		logCfg.Level = logLevel
	}

	lg, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return cfg, lg, nil
}

// openStore opens the session store for the configured directory.
func openStore(cfg *config.Config) (*sessionlog.Store, error) {
	dir, err := cfg.SessionsDir()
	if err != nil {
		return nil, err
	}
	return sessionlog.NewStore(sessionlog.Config{
		Dir:        dir,
		MaxEntries: cfg.Sessions.MaxEntries,
	})
}
