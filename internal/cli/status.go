package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/privacydb/internal/migrate"
)

// PlannedStep is one step the next migration would apply.
type PlannedStep struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Name   string `json:"name"`
	Policy string `json:"policy"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the stored version and pending steps",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runStatus(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	cfg, err := opts.resolveConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(f)
	if err != nil {
		return err
	}
	s, err := openStore(f, cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	m := migrate.NewMigrator(catalog, migrate.DefaultRegistry(), migratorOptions(cfg)...)
	st, err := m.Status(ctx, s)
	if err != nil {
		return reportError(f, "status", err)
	}

	if f.JSON() {
		return f.Success(st)
	}

	w := f.Writer
	fmt.Fprintf(w, "Store:   %s\n", st.Path)
	fmt.Fprintf(w, "Version: %d (target %d, latest %d)\n", st.Version, st.Target, st.Latest)
	if st.Identity != nil {
		fmt.Fprintf(w, "Identity: version %d %s\n", st.Identity.Version, st.Identity.Hash)
	} else {
		fmt.Fprintln(w, "Identity: none recorded")
	}
	if len(st.Pending) == 0 {
		fmt.Fprintln(w, "Pending: none")
		return nil
	}
	fmt.Fprintf(w, "Pending: %d step(s)\n", len(st.Pending))
	for _, p := range st.Pending {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List the steps the next migration would apply",
		Long: `Resolve the chain of steps from the stored version to the target
version and print each step with its data policy. Nothing is executed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runPlan(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := opts.formatter(cmd)

	cfg, err := opts.resolveConfig()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(f)
	if err != nil {
		return err
	}
	s, err := openStore(f, cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	m := migrate.NewMigrator(catalog, migrate.DefaultRegistry(), migratorOptions(cfg)...)
	chain, err := m.Plan(ctx, s)
	if err != nil {
		return reportError(f, "plan", err)
	}

	planned := make([]PlannedStep, len(chain))
	for i, step := range chain {
		planned[i] = PlannedStep{From: int(step.From), To: int(step.To), Name: step.Name, Policy: step.Policy()}
	}

	if f.JSON() {
		return f.Success(planned)
	}

	if len(planned) == 0 {
		fmt.Fprintln(f.Writer, "Nothing to do")
		return nil
	}
	for _, p := range planned {
		fmt.Fprintf(f.Writer, "%d->%d %s\n    %s\n", p.From, p.To, p.Name, p.Policy)
	}
	return nil
}
