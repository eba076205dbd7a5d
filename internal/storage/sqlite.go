package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is an open catalog database.
type DB struct {
	sql  *sql.DB
	path string
}

// Open opens (and if necessary creates) the catalog database at path.
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// foreign_keys is per-connection in SQLite and database/sql pools
	// connections, so the pragmas ride on the DSN, where the driver
	// applies them to every connection it opens. An Exec would bind
	// only the one pooled connection that happened to serve it.
	dsn := path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	d := &DB{sql: db, path: path}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Handle returns the underlying sql.DB for the catalog layer.
func (d *DB) Handle() *sql.DB {
	return d.sql
}

// migrate runs database migrations.
func (d *DB) migrate() error {
	var version int
	err := d.sql.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := d.migrateV1(); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema: bookmarks, tags, the bookmark/tag
// association with a composite key, and the flat config key-value table.
func (d *DB) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			private INTEGER NOT NULL DEFAULT 0,
			skip_linkcheck INTEGER NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookmarks_name ON bookmarks(name);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

		CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY NOT NULL,
			text TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS bookmark_tags (
			bookmark_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			PRIMARY KEY (bookmark_id, tag_id),
			FOREIGN KEY (bookmark_id) REFERENCES bookmarks(id) ON DELETE CASCADE,
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_bookmark_tags_tag_id ON bookmark_tags(tag_id);

		CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT
		);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := d.sql.Exec(schema)
	return err
}

// DefaultPath returns the default database path: ~/.config/rabbitmark/rabbitmark.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "rabbitmark", "rabbitmark.db"), nil
}
