package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/model"
)

var (
	_ Store      = (*SQLStore)(nil)
	_ blob.Store = (*FileStore)(nil)
)

// SQLStore implements Store on a SQL database: sqlite for single-user local
// boards and tests, postgres for a shared team board.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(model.DriverSQLite, dbPath)
}

// Open connects to the database named by driver ("sqlite" or "postgres")
// and dsn, then applies outstanding migrations.
func Open(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	switch driver {
	case model.DriverSQLite:
		// A single connection keeps ":memory:" databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	case model.DriverPostgres:
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) q(query string) string {
	return s.db.Rebind(query)
}

func (s *SQLStore) stamp() int64 {
	return s.now().UTC().UnixMilli()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations() error {
	if _, err := s.db.Exec(schemaVersionDDL); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.render(s.driver)); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if _, err := s.db.Exec(s.q("INSERT INTO schema_version (version) VALUES (?)"), m.version); err != nil {
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// classify maps a database error onto the store taxonomy.
func classify(op string, kind model.EntityKind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(op, kind, id, ErrNotFound, nil)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint") {
		return NewError(op, kind, id, ErrStoreConflict, err)
	}
	return NewError(op, kind, id, ErrStoreUnavailable, err)
}

// updateRow applies column assignments to the row with the given id and
// refreshes updated_at. It reports ErrNotFound when no row matched.
func (s *SQLStore) updateRow(
	ctx context.Context,
	kind model.EntityKind,
	table string,
	id string,
	sets []assignment,
) error {
	clauses := make([]string, 0, len(sets)+1)
	args := make([]any, 0, len(sets)+2)
	for _, a := range sets {
		clauses = append(clauses, a.column+" = ?")
		args = append(args, a.value)
	}
	clauses = append(clauses, "updated_at = ?")
	args = append(args, s.stamp(), id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(clauses, ", "))
	result, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return classify("updating", kind, id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError("updating", kind, id, ErrNotFound, nil)
	}
	return nil
}

func (s *SQLStore) deleteRow(ctx context.Context, kind model.EntityKind, table, id string) error {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return classify("deleting", kind, id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError("deleting", kind, id, ErrNotFound, nil)
	}
	return nil
}

// orderClause whitelists sortable columns; unknown keys fall back to def.
func orderClause(opts ListOptions, allowed map[string]string, def string) string {
	col, ok := allowed[opts.SortBy]
	if !ok {
		col = def
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", col, dir)
}
