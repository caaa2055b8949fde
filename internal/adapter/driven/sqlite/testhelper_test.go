package sqlite

import (
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB opens a shared in-memory database named after the test, runs
// the migrations, and registers cleanup. cache=shared makes the writer and
// reader pools see the same data; WAL does not apply in memory, so only the
// busy timeout pragma is kept. The test name is percent-encoded so it cannot
// be misread as DSN query parameters.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		url.PathEscape(t.Name()),
	)

	writer, err := open(dsn, 1)
	if err != nil {
		t.Fatalf("open test writer: %v", err)
	}

	reader, err := open(dsn, 2)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("open test reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}
	t.Cleanup(func() { _ = db.Close() })

	if err := RunMigrations(db.Writer); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return db
}
