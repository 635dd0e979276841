package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/privacydb/internal/migrate"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store to the target version",
		Long: `Open the store and bring it to the target version.

A store with no tables is created directly at the target. An existing store
is verified against the version it claims, migrated one step at a time and
validated against the target definition.

Exit codes:
  0 - Store is at the target version
  1 - Migration or validation failed (the store must not be used)
  2 - Command error (bad config, unreadable file, etc.)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), rootOpts, cmd)
		},
	}
	return cmd
}

func runMigrate(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	cfg, err := opts.resolveConfig()
	if err != nil {
		return err
	}
	log := newLogger(f.errWriter(), cfg)

	catalog, err := loadCatalog(f)
	if err != nil {
		return err
	}
	s, err := openStore(f, cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	metrics := migrate.NewMetrics(reg)
	m := migrate.NewMigrator(catalog, migrate.DefaultRegistry(),
		migratorOptions(cfg, migrate.WithLogger(log), migrate.WithMetrics(metrics))...)

	rep, migrateErr := m.Migrate(ctx, s)
	if rep != nil {
		f.RunID = rep.RunID
		f.VerboseLog("Run %s finished in %s", rep.RunID, rep.Duration)
	}

	if cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, reg); err != nil {
			log.Warn("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	if migrateErr != nil {
		return reportError(f, "migration failed", migrateErr)
	}

	if f.JSON() {
		return f.Success(rep)
	}

	w := f.Writer
	switch {
	case rep.Bootstrapped:
		fmt.Fprintf(w, "✓ Created %s at version %d\n", s.Path(), rep.To)
	case len(rep.Applied) == 0:
		fmt.Fprintf(w, "✓ %s is already at version %d\n", s.Path(), rep.To)
	default:
		fmt.Fprintf(w, "✓ Migrated %s from version %d to %d\n", s.Path(), rep.From, rep.To)
		for _, step := range rep.Applied {
			fmt.Fprintf(w, "  %d->%d %s (%d rows)\n", step.From, step.To, step.Name, step.RowsAffected)
		}
	}
	return nil
}
