// Package sqlite provides SQLite database operations for trailhead.
//
// One database file is shared by every trailhead process (capture hooks,
// git hooks, CLI, watcher, server). All cross-process coordination happens
// through this store; nothing is held in process memory.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store represents the SQLite database connection with a prepared
// statement cache.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	stmts map[string]*sql.Stmt
}

// Open opens (creating if needed) the database at path and runs migrations.
// WAL mode, foreign keys and a 5s busy timeout are set via DSN pragmas so
// concurrent hook processes block briefly instead of failing on lock.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("create data dir", err)
	}

	dsn := path + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr("open database", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY between this
	// process's own goroutines; cross-process locking is WAL's job.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storageErr("ping database", err)
	}

	store := newStoreFromDB(db)
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// newStoreFromDB wraps an existing connection. Used by tests.
func newStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db, stmts: make(map[string]*sql.Stmt)}
}

// Close closes all cached statements and the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	for _, stmt := range s.stmts {
		_ = stmt.Close()
	}
	s.stmts = make(map[string]*sql.Stmt)
	s.mu.Unlock()
	return s.db.Close()
}

// GetStmt returns a cached prepared statement for the query.
func (s *Store) GetStmt(query string) (*sql.Stmt, error) {
	s.mu.RLock()
	stmt, ok := s.stmts[query]
	s.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// ExecContext executes a query using the statement cache.
func (s *Store) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, err := s.GetStmt(query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

// QueryContext runs a query using the statement cache.
func (s *Store) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	stmt, err := s.GetStmt(query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}

// QueryRowContext runs a single-row query using the statement cache.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	stmt, err := s.GetStmt(query)
	if err != nil {
		// Fall through to the raw connection so the caller gets the
		// prepare error from Scan instead of a nil row.
		return s.db.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

// BeginTx starts a transaction. The DSN's _txlock=immediate makes every
// transaction take the write lock up front, which is what keeps the
// session check-and-create atomic across processes.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// migration is one schema step; applied in order, recorded in schema_migrations.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			repo_path         TEXT NOT NULL,
			capture_hint      TEXT NOT NULL DEFAULT '',
			branch_name       TEXT NOT NULL DEFAULT '',
			cwd               TEXT NOT NULL DEFAULT '',
			state             TEXT NOT NULL DEFAULT 'open' CHECK (state IN ('open', 'closed')),
			started_at        TEXT NOT NULL,
			started_at_epoch  INTEGER NOT NULL,
			last_active       TEXT NOT NULL,
			last_active_epoch INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_repo_state
			ON sessions(repo_path, state);
		CREATE INDEX IF NOT EXISTS idx_sessions_last_active
			ON sessions(repo_path, last_active_epoch DESC);
	`},
	{2, `
		CREATE TABLE IF NOT EXISTS prompts (
			prompt_id        TEXT PRIMARY KEY,
			session_id       TEXT NOT NULL REFERENCES sessions(session_id),
			repo_path        TEXT NOT NULL,
			prompt_text      TEXT NOT NULL,
			tool_calls       TEXT NOT NULL DEFAULT '[]',
			created_at       TEXT NOT NULL,
			created_at_epoch INTEGER NOT NULL,
			committed        INTEGER NOT NULL DEFAULT 0,
			commit_hash      TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_prompts_session
			ON prompts(session_id);
		CREATE INDEX IF NOT EXISTS idx_prompts_uncommitted
			ON prompts(repo_path, committed) WHERE committed = 0;
		CREATE INDEX IF NOT EXISTS idx_prompts_commit
			ON prompts(commit_hash) WHERE commit_hash IS NOT NULL;
	`},
	{3, `
		CREATE TABLE IF NOT EXISTS session_repos (
			session_id       TEXT NOT NULL REFERENCES sessions(session_id),
			repo_path        TEXT NOT NULL,
			file_path        TEXT NOT NULL,
			created_at_epoch INTEGER NOT NULL,
			PRIMARY KEY (session_id, repo_path, file_path)
		);
		CREATE INDEX IF NOT EXISTS idx_session_repos_repo
			ON session_repos(repo_path);
	`},
}

// migrate applies pending schema migrations.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return storageErr("create migrations table", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return storageErr("read migration version", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("begin migration", err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return storageErr(fmt.Sprintf("apply migration %d", m.version), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return storageErr(fmt.Sprintf("record migration %d", m.version), err)
		}
		if err := tx.Commit(); err != nil {
			return storageErr(fmt.Sprintf("commit migration %d", m.version), err)
		}
	}
	return nil
}
