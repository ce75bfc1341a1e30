// Package sqlite is the sqlite-backed implementation of store.Store: a
// single-connection *sql.DB (SQLite does not handle concurrent writers
// well), WAL mode, and FTS5 for the lexical index.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

// DB wraps the sqlite connection plus the write-serialization mutex
// every write-path method shares, avoiding SQLITE_BUSY under the
// single-connection pool below.
type DB struct {
	db     *sql.DB
	logger arbor.ILogger
	mu     sync.Mutex

	cache *cacheStore
}

var _ store.Store = (*DB)(nil)

// Open creates (or reopens) the sqlite database at path, applying
// pragmas and the schema migration. path may be ":memory:" for tests.
func Open(logger arbor.ILogger, path string) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite does not handle concurrent writers well; serialize on a
	// single connection and let d.mu order writers above the driver.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	d := &DB{db: sqlDB, logger: logger}
	d.cache = &cacheStore{db: d}

	if err := d.configure(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := d.initSchema(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := d.db.Exec(p); err != nil {
			// in-memory databases reject WAL; fall back silently.
			if p == "PRAGMA journal_mode = WAL" {
				continue
			}
			return fmt.Errorf("failed to execute %s: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL UNIQUE,
	title       TEXT,
	description TEXT,
	content     TEXT,
	notes       TEXT,
	tags        TEXT NOT NULL DEFAULT '[]',
	hidden      INTEGER NOT NULL DEFAULT 0,
	added_at    INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	crawled_at  INTEGER,
	http_status INTEGER,
	crawl_error TEXT,
	search_text TEXT NOT NULL DEFAULT '',
	embedding   BLOB
);

CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
CREATE INDEX IF NOT EXISTS idx_documents_added_at ON documents(added_at);
CREATE INDEX IF NOT EXISTS idx_documents_crawled_at ON documents(crawled_at);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	search_text,
	content='documents',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS documents_fts_ai AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, search_text) VALUES (new.rowid, new.search_text);
END;
CREATE TRIGGER IF NOT EXISTS documents_fts_ad AFTER DELETE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, search_text) VALUES ('delete', old.rowid, old.search_text);
END;
CREATE TRIGGER IF NOT EXISTS documents_fts_au AFTER UPDATE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, search_text) VALUES ('delete', old.rowid, old.search_text);
	INSERT INTO documents_fts(rowid, search_text) VALUES (new.rowid, new.search_text);
END;

CREATE TABLE IF NOT EXISTS search_cache (
	query_hash TEXT NOT NULL,
	kw_weight  TEXT NOT NULL,
	vw_weight  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	total_count INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (query_hash, kw_weight, vw_weight)
);

CREATE TABLE IF NOT EXISTS vector_index_state (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	initialized INTEGER NOT NULL DEFAULT 0
);
`

func (d *DB) initSchema() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Cache() store.CacheStore {
	return d.cache
}

// Raw exposes the underlying *sql.DB for packages that need
// sqlite-specific capabilities store.Store does not expose, namely
// FTS5 MATCH queries in internal/search.
func (d *DB) Raw() *sql.DB {
	return d.db
}

// wrapDBErr classifies a raw *sql.DB error into the Unavailable kind
// used for all Store failures that aren't otherwise identified
// (NotFound, AlreadyExists, ...).
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return models.ErrNotFound(op + ": not found")
	}
	return models.ErrUnavailable(op+": "+err.Error(), err)
}
