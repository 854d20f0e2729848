// Command findme runs the lost-and-found API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/config"
	"github.com/erazemk/findme/internal/logging"
)

// app carries what the subcommands share once the root command has run.
type app struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
	closeLog   func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "findme",
		Short: "Lost and found backend",
		Long: `findme serves a JSON API where users post lost items, report items
they found and administrators moderate users and follow activity.

Configuration is read from an optional YAML file and the environment:

` + config.Usage(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	pf.StringP("db", "d", "", "SQLite database path (overrides FINDME_DB)")
	pf.StringP("log", "l", "", "log file path (overrides FINDME_LOG)")
	pf.String("log-level", "", "log level (overrides FINDME_LOG_LEVEL)")

	root.AddCommand(newServeCmd(a), newInitCmd(a), newCheckAdminCmd(a))
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("db", &cfg.DBPath)
	override("log", &cfg.LogPath)
	override("log-level", &cfg.LogLevel)
	override("addr", &cfg.Addr)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Path:   cfg.LogPath,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}

	a.cfg, a.log, a.closeLog = cfg, log, closeLog
	return nil
}
