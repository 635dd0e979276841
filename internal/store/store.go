package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/privacydb/internal/schema"
)

// Supported database/sql driver names.
const (
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverModernc = "sqlite"  // modernc.org/sqlite (pure Go)
)

// ErrUnsupportedDriver is returned by Open for a driver other than DriverMattn or DriverModernc.
var ErrUnsupportedDriver = errors.New("unsupported sqlite driver")

// Options configures how a store file is opened.
type Options struct {
	// Driver selects the database/sql driver. Empty means DriverMattn.
	Driver string

	// BusyTimeout is how long a statement waits on a locked file. Zero means 5s.
	BusyTimeout time.Duration

	// JournalMode is the SQLite journal mode. Empty means WAL.
	JournalMode string
}

func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverMattn
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = 5 * time.Second
	}
	if o.JournalMode == "" {
		o.JournalMode = "WAL"
	}
	return o
}

// Store is an open single-file SQLite store.
//
// The pool is pinned to one connection: the migrator owns it exclusively for
// the duration of a run, and every read or write made while a step's
// transaction is open must go through that transaction.
type Store struct {
	db     *sql.DB
	path   string
	driver string
}

// Open creates or opens a SQLite database at the given path.
//
// Every connection the pool opens is configured through the DSN with:
//   - the requested journal mode (WAL by default)
//   - NORMAL synchronous mode
//   - a busy timeout for lock contention
//   - foreign key enforcement
//
// Open never changes the schema. Bringing the store to a known version is the
// migrator's job.
func Open(path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()
	dsn, err := buildDSN(path, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps open
	// transactions on the same handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, path: path, driver: opts.Driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// Exec executes a statement outside any explicit transaction.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Version reads the schema version recorded in the file header.
// A file that has never been migrated reports 0.
func (s *Store) Version(ctx context.Context) (schema.Version, error) {
	return readVersion(ctx, s.db)
}

// Pragma returns the current value of a pragma as text.
func (s *Store) Pragma(ctx context.Context, name string) (string, error) {
	if !schema.ValidIdentifier(name) {
		return "", fmt.Errorf("invalid pragma name %q", name)
	}
	var value string
	if err := s.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}

// buildDSN appends the connection pragmas to path in the parameter syntax of
// the selected driver, so a connection the pool reopens is configured like
// the first one.
func buildDSN(path string, opts Options) (string, error) {
	mode := strings.ToUpper(opts.JournalMode)
	if !schema.ValidIdentifier(mode) {
		return "", fmt.Errorf("invalid journal mode %q", opts.JournalMode)
	}
	timeout := opts.BusyTimeout.Milliseconds()

	var params []string
	switch opts.Driver {
	case DriverMattn:
		params = []string{
			"_journal_mode=" + mode,
			"_synchronous=NORMAL",
			fmt.Sprintf("_busy_timeout=%d", timeout),
			"_foreign_keys=1",
		}
	case DriverModernc:
		params = []string{
			fmt.Sprintf("_pragma=busy_timeout(%d)", timeout),
			"_pragma=foreign_keys(1)",
			"_pragma=journal_mode(" + mode + ")",
			"_pragma=synchronous(NORMAL)",
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}

	return path + "?" + strings.Join(params, "&"), nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readVersion(ctx context.Context, q queryer) (schema.Version, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return schema.Version(version), nil
}
