package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/privacydb/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	// Flag overrides. Empty or zero values leave the config untouched.
	DBPath          string
	Driver          string
	TargetVersion   int
	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the privacydb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "privacydb",
		Short: "privacydb - versioned local privacy store",
		Long: `Manage the versioned SQLite store that holds tabs, tracker tallies,
whitelists and protection counters.

The store is migrated one version at a time through a fixed chain of steps
and validated against the canonical schema after every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.DBPath, "db", "", "path to the store file")
	flags.StringVar(&opts.Driver, "driver", "", "sqlite driver (sqlite3|sqlite)")
	flags.IntVar(&opts.TargetVersion, "target", 0, "target schema version (0 = latest)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")
	flags.StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after a run")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// resolveConfig layers flag overrides on top of the file and environment config.
func (o *RootOptions) resolveConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, o.Environ)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, ErrCodeConfig+": invalid configuration", err)
	}

	if o.DBPath != "" {
		cfg.DBPath = o.DBPath
	}
	if o.Driver != "" {
		cfg.Driver = o.Driver
	}
	if o.TargetVersion != 0 {
		cfg.TargetVersion = o.TargetVersion
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	if o.MetricsTextfile != "" {
		cfg.MetricsTextfile = o.MetricsTextfile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, WrapExitError(ExitCommandError, ErrCodeConfig+": invalid configuration", err)
	}
	return cfg, nil
}

// newLogger builds the structured logger for a command. Logs always go to
// w (stderr) so they never mix with JSON output.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
