package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testTime is a fixed reference instant so window math is deterministic.
func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

// testDB creates a fresh file-backed database under t.TempDir with the
// same DSN pragmas production uses.
func testDB(t *testing.T) (*sql.DB, string, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trailhead.db")
	dsn := path + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.Ping())

	return db, path, func() { _ = db.Close() }
}

// testStore creates a migrated store over a fresh database.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()

	db, _, cleanup := testDB(t)
	store := newStoreFromDB(db)
	require.NoError(t, store.migrate(context.Background()))
	return store, cleanup
}

// seedSession inserts an open session and returns its id.
func seedSession(t *testing.T, store *Store, repoPath string, at time.Time) string {
	t.Helper()

	id := uuid.NewString()
	ts := at.UTC().Format(time.RFC3339)
	_, err := store.ExecContext(context.Background(), `
		INSERT INTO sessions
		(session_id, repo_path, capture_hint, branch_name, cwd, state,
		 started_at, started_at_epoch, last_active, last_active_epoch)
		VALUES (?, ?, '', '', ?, 'open', ?, ?, ?, ?)
	`, id, repoPath, repoPath, ts, at.UnixMilli(), ts, at.UnixMilli())
	require.NoError(t, err)
	return id
}

// seedPrompt inserts a prompt into a session and returns its id.
func seedPrompt(t *testing.T, store *Store, repoPath, sessionID, text string, at time.Time) string {
	t.Helper()

	id, err := NewPromptStore(store).Record(context.Background(), repoPath, sessionID, text, at, nil)
	require.NoError(t, err)
	return id
}
