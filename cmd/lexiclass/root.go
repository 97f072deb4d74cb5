// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lexiclass/lexiclass/internal/config"
	"github.com/lexiclass/lexiclass/internal/logging"
)

// serviceName is reported in every log line.
const serviceName = "lexiclass"

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	envFile    string
}

// NewRootCmd creates the root command for the LexiClass CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil, nil, nil)
}

// newRootCmd builds the command tree with injectable subcommand
// dependencies. nil means defaults.
func newRootCmd(serveDeps *ServeDeps, migrateDeps *MigrateDeps, userDeps *UserDeps) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lexiclass",
		Short: "LexiClass - vocabulary practice for classrooms",
		Long: `LexiClass serves the classroom vocabulary API: student login,
per-round practice progress and the teachers' offline test ledger.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/lexiclass/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(opts, serveDeps))
	cmd.AddCommand(NewMigrateCmd(opts, migrateDeps))
	cmd.AddCommand(NewUserCmd(opts, userDeps))

	return cmd
}

// loadConfig reads the layered configuration for cmd. Explicitly set
// flags override the file.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	//nolint:wrapcheck // config errors are already coded
	return config.Load(config.LoadOptions{
		Path:    o.configFile,
		EnvFile: o.envFile,
		Flags:   cmd.Flags(),
	})
}

// newLogger builds the process logger from cfg writing to w. The level was
// checked by Config.ValidateStorage.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
	}, w)
}
