package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thebtf/trailhead/pkg/models"
)

// SessionStore provides session-related database operations.
//
// Session grouping is time based: prompts for one repository landing
// within the inactivity window share the open session, no matter which
// process recorded them. The store, not process memory, is the source
// of truth.
type SessionStore struct {
	store *Store
}

// NewSessionStore creates a new session store.
func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

// Attach returns the session a prompt at time now belongs to, creating
// one when the repository has no fresh open session.
//
// The check-and-create runs in a single write transaction so two racing
// Record calls cannot both open a session for the same repository.
func (s *SessionStore) Attach(ctx context.Context, repoPath, hint, branch, cwd string, now time.Time, window time.Duration) (string, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return "", storageErr("begin attach", err)
	}
	defer func() { _ = tx.Rollback() }()

	const findQuery = `
		SELECT session_id, last_active_epoch
		FROM sessions
		WHERE repo_path = ? AND state = 'open'
		ORDER BY last_active_epoch DESC
		LIMIT 1
	`

	var (
		openID     string
		lastActive int64
	)
	err = tx.QueryRowContext(ctx, findQuery, repoPath).Scan(&openID, &lastActive)
	switch {
	case err == nil:
		if now.UnixMilli()-lastActive <= window.Milliseconds() {
			const touchQuery = `
				UPDATE sessions
				SET last_active = ?, last_active_epoch = ?
				WHERE session_id = ?
			`
			if _, err := tx.ExecContext(ctx, touchQuery,
				now.UTC().Format(time.RFC3339), now.UnixMilli(), openID); err != nil {
				return "", storageErr("touch session", err)
			}
			if err := tx.Commit(); err != nil {
				return "", storageErr("commit attach", err)
			}
			return openID, nil
		}
		// Stale open session: close it, then open a fresh one below.
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET state = 'closed' WHERE session_id = ?`, openID); err != nil {
			return "", storageErr("close stale session", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		// No open session; create one below.
	default:
		return "", storageErr("find open session", err)
	}

	id := uuid.NewString()
	const insertQuery = `
		INSERT INTO sessions
		(session_id, repo_path, capture_hint, branch_name, cwd, state,
		 started_at, started_at_epoch, last_active, last_active_epoch)
		VALUES (?, ?, ?, ?, ?, 'open', ?, ?, ?, ?)
	`
	ts := now.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, insertQuery,
		id, repoPath, hint, branch, cwd, ts, now.UnixMilli(), ts, now.UnixMilli()); err != nil {
		return "", storageErr("create session", err)
	}
	if err := tx.Commit(); err != nil {
		return "", storageErr("commit attach", err)
	}
	return id, nil
}

// FindOpen returns the repository's open session, preferring one whose
// capture hint matches, or ErrNotFound when none is open.
func (s *SessionStore) FindOpen(ctx context.Context, repoPath, hint string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE repo_path = ? AND state = 'open'
		ORDER BY (capture_hint = ?) DESC, last_active_epoch DESC
		LIMIT 1
	`
	sess, err := scanSession(s.store.QueryRowContext(ctx, query, repoPath, hint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no open session for %s: %w", repoPath, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find open session", err)
	}
	return sess, nil
}

// CloseIdle closes every open session for the repository whose last
// activity is older than the inactivity window. Checked lazily on
// access; there is no timer.
func (s *SessionStore) CloseIdle(ctx context.Context, repoPath string, now time.Time, window time.Duration) error {
	const query = `
		UPDATE sessions
		SET state = 'closed'
		WHERE repo_path = ? AND state = 'open' AND last_active_epoch < ?
	`
	cutoff := now.UnixMilli() - window.Milliseconds()
	_, err := s.store.ExecContext(ctx, query, repoPath, cutoff)
	return storageErr("close idle sessions", err)
}

// Close marks a session closed. Closing an already-closed session is a no-op.
func (s *SessionStore) Close(ctx context.Context, sessionID string) error {
	result, err := s.store.ExecContext(ctx,
		`UPDATE sessions SET state = 'closed' WHERE session_id = ?`, sessionID)
	if err != nil {
		return storageErr("close session", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var exists int
		err := s.store.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists)
		if err != nil {
			return storageErr("check session", err)
		}
		if exists == 0 {
			return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
	}
	return nil
}

// Get retrieves a session by id.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE session_id = ? LIMIT 1`
	sess, err := scanSession(s.store.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get session", err)
	}
	return sess, nil
}

// ListByRepo returns the repository's sessions, most recently active first.
func (s *SessionStore) ListByRepo(ctx context.Context, repoPath string, limit int) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE repo_path = ?
		ORDER BY last_active_epoch DESC
		LIMIT ?
	`
	rows, err := s.store.QueryContext(ctx, query, repoPath, limit)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, storageErr("scan session", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, storageErr("list sessions", rows.Err())
}

// CloseFullyCommitted closes open sessions in the set that have no
// uncommitted prompts left. Used by the reconciler after a commit.
func (s *SessionStore) CloseFullyCommitted(ctx context.Context, sessionIDs []string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	// #nosec G202 -- placeholders only, no user input in the query text
	query := `
		UPDATE sessions
		SET state = 'closed'
		WHERE session_id IN (?` + repeatPlaceholders(len(sessionIDs)-1) + `)
		  AND state = 'open'
		  AND NOT EXISTS (
			SELECT 1 FROM prompts p
			WHERE p.session_id = sessions.session_id AND p.committed = 0
		  )
	`
	_, err := s.store.ExecContext(ctx, query, stringSliceToInterface(sessionIDs)...)
	return storageErr("close committed sessions", err)
}
