// Package cli implements the cardiowatch command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/loader"
	"github.com/xtxerr/cardiowatch/internal/logging"
)

// DefaultConfigPath is read when --config is not given. A missing file
// means defaults.
const DefaultConfigPath = "cardiowatch.yaml"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode extracts the exit code from an error returned by a command.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.IsValidation(err) {
		return ExitCommandError
	}
	return ExitFailure
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	Verbose    bool

	// LogOutput receives log lines. Nil means the command's stderr.
	LogOutput io.Writer

	cfg *loader.Config
}

// Config returns the configuration loaded before the command ran.
func (o *RootOptions) Config() *loader.Config {
	return o.cfg
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cardiowatch",
		Short: "Simulated heart-rate monitoring",
		Long: `cardiowatch simulates a wearable heart-rate sensor, stores readings in a
bounded JSON document, flags anomalies with an isolation forest and serves
a dashboard with chat alerts, PDF reports and Parquet exports.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "config file path")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "record store path (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewSensorCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))

	return cmd
}

// load reads the config file, applies flag overrides and sets up logging.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := loader.LoadOrDefault(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.DBPath != "" {
		cfg.Store.Path = o.DBPath
	}
	if err := loader.Validate(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.cfg = cfg

	level := logging.ParseLevel(cfg.Logging.Level)
	if o.Verbose {
		level = slog.LevelDebug
	}
	out := o.LogOutput
	if out == nil {
		out = cmd.ErrOrStderr()
	}
	logging.InitWriter(out, level, cfg.Logging.JSON)
	return nil
}
