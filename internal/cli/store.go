package cli

import (
	"fmt"
	"os"

	"github.com/roach88/privacydb/internal/config"
	"github.com/roach88/privacydb/internal/migrate"
	"github.com/roach88/privacydb/internal/schema"
	"github.com/roach88/privacydb/internal/store"
)

// openStore opens the configured store. Read-only commands pass
// mustExist so that a typo in the path does not create an empty file.
func openStore(f *OutputFormatter, cfg config.Config, mustExist bool) (*store.Store, error) {
	if mustExist {
		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
			msg := fmt.Sprintf("database not found: %s", cfg.DBPath)
			_ = f.Error(ErrCodeNotFound, msg, nil)
			return nil, NewExitError(ExitCommandError, ErrCodeNotFound+": "+msg)
		}
	}

	s, err := store.Open(cfg.DBPath, cfg.StoreOptions())
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, ErrCodeGeneric+": open store", err)
	}
	return s, nil
}

// loadCatalog returns the embedded schema catalog.
func loadCatalog(f *OutputFormatter) (*schema.Catalog, error) {
	c, err := schema.Default()
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, ErrCodeGeneric+": load schema catalog", err)
	}
	return c, nil
}

// migratorOptions returns the migrate options shared by every command.
func migratorOptions(cfg config.Config, extra ...migrate.Option) []migrate.Option {
	opts := []migrate.Option{}
	if cfg.TargetVersion != 0 {
		opts = append(opts, migrate.WithTarget(schema.Version(cfg.TargetVersion)))
	}
	return append(opts, extra...)
}
