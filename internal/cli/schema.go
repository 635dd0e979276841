package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/privacydb/internal/schema"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Version    schema.Version `json:"version"`
	Identity   string         `json:"identity"`
	Tables     []schema.Table `json:"tables"`
	Statements []string       `json:"statements"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [version]",
		Short: "Print the canonical definition of a schema version",
		Long: `Print the canonical definition of a schema version (latest by default):
its identity hash and the DDL that creates it from an empty database.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	catalog, err := loadCatalog(f)
	if err != nil {
		return err
	}

	version := catalog.Latest()
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			msg := fmt.Sprintf("invalid version %q", args[0])
			_ = f.Error(ErrCodeGeneric, msg, nil)
			return NewExitError(ExitCommandError, ErrCodeGeneric+": "+msg)
		}
		version = schema.Version(n)
	}

	def, err := catalog.At(version)
	if err != nil {
		return reportError(f, "schema", err)
	}
	hash, err := def.IdentityHash()
	if err != nil {
		return reportError(f, "schema", err)
	}

	if f.JSON() {
		return f.Success(SchemaResult{
			Version:    def.Version,
			Identity:   hash,
			Tables:     def.Tables,
			Statements: def.Statements(),
		})
	}

	fmt.Fprintf(f.Writer, "-- version %d\n-- identity %s\n", def.Version, hash)
	for _, stmt := range def.Statements() {
		fmt.Fprintf(f.Writer, "%s;\n", stmt)
	}
	return nil
}
