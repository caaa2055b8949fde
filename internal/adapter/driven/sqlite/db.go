// Package sqlite implements the persistence ports on SQLite.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// pragmas shared by every connection: WAL journaling so an expiry pass can
// read while an upsert commits, a busy timeout instead of immediate lock
// errors, and NORMAL sync which is durable enough under WAL. The schema has
// no foreign keys and the database stays tiny, so no further tuning.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// DB splits writes and reads over two connection pools. The writer pool is a
// single connection, serializing record upserts from the expiry pass and the
// admin API; the reader pool stays at two because the only concurrent readers
// are the roster rebuild and admin queries.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens the database file, creating it if needed.
func NewDB(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?%s", dbPath, pragmas)

	writer, err := open(dsn, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := open(dsn, 2)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader, path: dbPath}, nil
}

// open creates one pool against the DSN and verifies it with a ping.
func open(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Close closes both pools. Returns the first error encountered.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Writer.Close(); err != nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	if err := db.Reader.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	return firstErr
}
