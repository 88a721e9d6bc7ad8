package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Open opens the store and applies pending migrations.
// driver is DriverSQLite (default when empty) or DriverPostgres. Migrations are
// versioned .sql files under internal/db/migrations/<dialect> following the pattern:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Only new migrations are applied. Use RollbackLast to revert the last applied migration.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		if dsn == "" {
			dsn = "app.db"
		}
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres dsn is empty")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := otelsql.Open(driver, dsn,
		otelsql.WithAttributes(systemAttribute(driver)),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableQuery: true}),
	)
	if err != nil {
		return nil, err
	}
	d := sqlx.NewDb(sqlDB, driver)
	if driver == DriverSQLite {
		// One writer at a time; also keeps shared-cache in-memory databases alive.
		d.SetMaxOpenConns(1)
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
		_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	}
	if err := applyMigrations(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// sqliteDSN turns on foreign keys and a busy timeout for every connection.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func systemAttribute(driver string) attribute.KeyValue {
	if driver == DriverPostgres {
		return semconv.DBSystemPostgreSQL
	}
	return semconv.DBSystemSqlite
}

func dialect(d *sqlx.DB) string {
	if d.DriverName() == DriverPostgres {
		return "postgres"
	}
	return "sqlite"
}

// RollbackLast rolls back the most recently applied migration, if its down script exists.
func RollbackLast(d *sqlx.DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	if err := ensureMigrationsTable(d); err != nil {
		return err
	}
	var version int
	err := d.QueryRow(`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil // nothing to rollback
	} else if err != nil {
		return err
	}
	migs, err := loadMigrations(dialect(d))
	if err != nil {
		return err
	}
	m, ok := migs[version]
	if !ok || m.downFile == "" {
		return fmt.Errorf("no down migration found for version %d", version)
	}
	sqlText, err := migrationsFS.ReadFile(m.downFile)
	if err != nil {
		return err
	}
	text := string(sqlText)
	deleteVersion := d.Rebind(`DELETE FROM schema_migrations WHERE version = ?`)
	if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
		if _, err := d.Exec(text); err != nil {
			return err
		}
		_, err := d.Exec(deleteVersion, version)
		return err
	}
	tx, err := d.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(text); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(deleteVersion, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AppliedVersions returns the applied migration versions in ascending order.
func AppliedVersions(d *sqlx.DB) ([]int, error) {
	applied, err := appliedVersions(d)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(applied))
	for v := range applied {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string // path inside embedded FS
	downFile string // path inside embedded FS
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations(dialect string) (map[int]migration, error) {
	entries := map[int]migration{}
	dir := "migrations/" + dialect
	list, err := stdfs.ReadDir(migrationsFS, dir)
	if err != nil {
		// if directory missing, just return empty set
		return entries, nil
	}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		m := migFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		verStr, migName, kind := m[1], m[2], m[3]
		var ver int
		if _, err := fmt.Sscanf(verStr, "%04d", &ver); err != nil {
			continue
		}
		item := entries[ver]
		item.version = ver
		item.name = migName
		p := dir + "/" + name
		if kind == "up" {
			item.upFile = p
		} else {
			item.downFile = p
		}
		entries[ver] = item
	}
	return entries, nil
}

func ensureMigrationsTable(d *sqlx.DB) error {
	_, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	return err
}

func appliedVersions(d *sqlx.DB) (map[int]bool, error) {
	if err := ensureMigrationsTable(d); err != nil {
		return nil, err
	}
	var versions []int
	if err := d.Select(&versions, `SELECT version FROM schema_migrations`); err != nil {
		return nil, err
	}
	got := make(map[int]bool, len(versions))
	for _, v := range versions {
		got[v] = true
	}
	return got, nil
}

func applyMigrations(d *sqlx.DB) error {
	migs, err := loadMigrations(dialect(d))
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		return nil
	}
	applied, err := appliedVersions(d)
	if err != nil {
		return err
	}
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	insertVersion := d.Rebind(`INSERT INTO schema_migrations(version) VALUES(?)`)
	for _, v := range versions {
		if applied[v] {
			continue
		}
		m := migs[v]
		if strings.TrimSpace(m.upFile) == "" {
			return fmt.Errorf("missing up migration for version %04d", v)
		}
		sqlText, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		text := string(sqlText)
		if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
			if _, err := d.Exec(text); err != nil {
				return fmt.Errorf("migration %04d failed: %w", v, err)
			}
			if _, err := d.Exec(insertVersion, v); err != nil {
				return err
			}
			continue
		}
		tx, err := d.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %04d (%s) failed: %w", v, m.name, err)
		}
		if _, err := tx.Exec(insertVersion, v); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
