// Package storage is the durable side of the tracker: the offline hit queue and the settings
// that must survive a restart (remanent campaign, identified visitor, life-cycle counters).
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DatabaseFileName is the file created inside the storage location.
const DatabaseFileName = "ATHits.sqlite"

// SQLite serializes writers anyway; a single connection avoids "database is locked" errors
// between connections of the same process.
const maxOpenConns = 1

// Database is an open storage file with its named queries.
type Database struct {
	db  *sqlx.DB
	dot *dotsql.DotSql
}

// OpenDatabase opens (creating if necessary) the database at path and applies pending migrations.
func OpenDatabase(dbPath string) (*Database, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	dot, err := loadQueries()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Database{db: db, dot: dot}, nil
}

// Close releases the database file.
func (d *Database) Close() error {
	return d.db.Close()
}

func loadQueries() (*dotsql.DotSql, error) {
	var combinedSQL string
	err := fs.WalkDir(queriesFS, "queries", func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || path.Ext(p) != ".sql" {
			return nil
		}
		content, err := queriesFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		combinedSQL += string(content) + "\n"
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load query files: %w", err)
	}
	dot, err := dotsql.LoadFromString(combinedSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}
	return dot, nil
}

func (d *Database) exec(name string, args ...interface{}) (sql.Result, error) {
	query, err := d.dot.Raw(name)
	if err != nil {
		return nil, fmt.Errorf("query not found: %s", name)
	}
	return d.db.Exec(query, args...)
}

func (d *Database) get(name string, dest interface{}, args ...interface{}) error {
	query, err := d.dot.Raw(name)
	if err != nil {
		return fmt.Errorf("query not found: %s", name)
	}
	return d.db.Get(dest, query, args...)
}

func (d *Database) selectRows(name string, dest interface{}, args ...interface{}) error {
	query, err := d.dot.Raw(name)
	if err != nil {
		return fmt.Errorf("query not found: %s", name)
	}
	return d.db.Select(dest, query, args...)
}

func migrateUp(db *sqlx.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		migration_id TEXT PRIMARY KEY,
		applied_at   INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	var applied []string
	if err := db.Select(&applied, "SELECT migration_id FROM schema_migrations"); err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		id := path.Base(name)
		if done[id] {
			continue
		}
		content, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", id, err)
		}
		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", id, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", id, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (migration_id, applied_at) VALUES (?, ?)",
			id, int64(ldtime.UnixMillisNow())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", id, err)
		}
	}
	return nil
}
