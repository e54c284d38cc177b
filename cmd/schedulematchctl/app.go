package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"schedulematch/internal/config"
	"schedulematch/pkg/schedulematch"
)

// app carries what every subcommand shares: output streams, the global flags
// and the way a client is built from settings.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	storeKind  string
	dbPath     string
	exportsDir string
	logLevel   string

	// newClient defaults to schedulematch.New; tests swap in a shared client.
	newClient func(config.Settings, *slog.Logger) (*schedulematch.Client, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "schedulematchctl",
		Short:         "Match scheduled events to observed doses with a genetic search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML or JSON settings file")
	flags.StringVar(&a.storeKind, "store", "", "run store backend: memory|sqlite")
	flags.StringVar(&a.dbPath, "db-path", "", "sqlite database path")
	flags.StringVar(&a.exportsDir, "exports-dir", "", "directory for exported run artifacts")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")

	root.AddCommand(
		newMatchCmd(a),
		newRunsCmd(a),
		newHistoryCmd(a),
		newDiagnosticsCmd(a),
		newExportCmd(a),
	)
	return root
}

// settings loads file and environment settings and applies the global flags
// that were set explicitly.
func (a *app) settings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.Load(a.configPath)
	if err != nil {
		return s, err
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		s.Store = a.storeKind
	}
	if flags.Changed("db-path") {
		s.DBPath = a.dbPath
	}
	if flags.Changed("exports-dir") {
		s.ExportsDir = a.exportsDir
	}
	if flags.Changed("log-level") {
		s.LogLevel = a.logLevel
	}
	return s, s.Validate()
}

func (a *app) logger(s config.Settings) *slog.Logger {
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: s.SlogLevel()}))
}

func (a *app) client(s config.Settings) (*schedulematch.Client, error) {
	logger := a.logger(s)
	if a.newClient != nil {
		return a.newClient(s, logger)
	}
	return schedulematch.New(schedulematch.Options{
		StoreKind:  s.Store,
		DBPath:     s.DBPath,
		ExportsDir: s.ExportsDir,
		Logger:     logger,
	})
}

// runRefFlags adds --run-id and --latest to a command.
func runRefFlags(cmd *cobra.Command, ref *schedulematch.RunRef) {
	cmd.Flags().StringVar(&ref.RunID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&ref.Latest, "latest", false, "use the most recent run")
	cmd.MarkFlagsMutuallyExclusive("run-id", "latest")
	cmd.MarkFlagsOneRequired("run-id", "latest")
}
