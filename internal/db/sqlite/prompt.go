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

// PromptStore provides prompt-related database operations.
//
// Prompts are append-only. The committed flag and commit hash are the
// only mutable fields and transition exactly once, via MarkCommitted.
type PromptStore struct {
	store *Store
}

// NewPromptStore creates a new prompt store.
func NewPromptStore(store *Store) *PromptStore {
	return &PromptStore{store: store}
}

// Record appends a new prompt. Content is never validated; an empty or
// enormous prompt is the caller's business.
func (s *PromptStore) Record(ctx context.Context, repoPath, sessionID, text string, ts time.Time, toolCalls models.ToolCallList) (string, error) {
	id := uuid.NewString()

	const query = `
		INSERT INTO prompts
		(prompt_id, session_id, repo_path, prompt_text, tool_calls, created_at, created_at_epoch)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.store.ExecContext(ctx, query,
		id, sessionID, repoPath, text, toolCalls,
		ts.UTC().Format(time.RFC3339), ts.UnixMilli(),
	)
	if err != nil {
		return "", storageErr("record prompt", err)
	}
	return id, nil
}

// AppendToolCall adds a tool invocation to the session's most recent
// prompt. Capture hooks report tool activity after the prompt row exists,
// so this is part of the capture lifecycle, not a later mutation.
func (s *PromptStore) AppendToolCall(ctx context.Context, sessionID string, call models.ToolCall) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return storageErr("begin append tool call", err)
	}
	defer func() { _ = tx.Rollback() }()

	const findQuery = `
		SELECT prompt_id, tool_calls
		FROM prompts
		WHERE session_id = ?
		ORDER BY created_at_epoch DESC, rowid DESC
		LIMIT 1
	`
	var (
		promptID string
		calls    models.ToolCallList
	)
	err = tx.QueryRowContext(ctx, findQuery, sessionID).Scan(&promptID, &calls)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no prompts for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return storageErr("find latest prompt", err)
	}

	calls = append(calls, call)
	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET tool_calls = ? WHERE prompt_id = ?`, calls, promptID); err != nil {
		return storageErr("append tool call", err)
	}
	return storageErr("commit append tool call", tx.Commit())
}

// MarkCommitted sets committed=1 and the commit hash on the given prompts.
// Already-committed ids are left untouched (hook retries are expected);
// an unknown id is an error.
func (s *PromptStore) MarkCommitted(ctx context.Context, promptIDs []string, commitHash string) error {
	if len(promptIDs) == 0 {
		return nil
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return storageErr("begin mark committed", err)
	}
	defer func() { _ = tx.Rollback() }()

	// #nosec G202 -- placeholders only, no user input in the query text
	checkQuery := `
		SELECT prompt_id FROM prompts
		WHERE prompt_id IN (?` + repeatPlaceholders(len(promptIDs)-1) + `)
	`
	rows, err := tx.QueryContext(ctx, checkQuery, stringSliceToInterface(promptIDs)...)
	if err != nil {
		return storageErr("check prompt ids", err)
	}
	found := make(map[string]bool, len(promptIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return storageErr("scan prompt id", err)
		}
		found[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storageErr("check prompt ids", err)
	}
	for _, id := range promptIDs {
		if !found[id] {
			return fmt.Errorf("prompt %s: %w", id, ErrNotFound)
		}
	}

	// #nosec G202 -- placeholders only, no user input in the query text
	updateQuery := `
		UPDATE prompts
		SET committed = 1, commit_hash = ?
		WHERE prompt_id IN (?` + repeatPlaceholders(len(promptIDs)-1) + `)
		  AND committed = 0
	`
	args := append([]interface{}{commitHash}, stringSliceToInterface(promptIDs)...)
	if _, err := tx.ExecContext(ctx, updateQuery, args...); err != nil {
		return storageErr("mark committed", err)
	}
	return storageErr("commit mark committed", tx.Commit())
}

// Uncommitted returns all uncommitted prompts visible from a repository,
// oldest first. That is the repository's own prompts plus prompts of
// sessions holding a cross-repository reference into it. Equal timestamps
// keep insertion order (rowid).
func (s *PromptStore) Uncommitted(ctx context.Context, repoPath string) ([]models.Prompt, error) {
	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE committed = 0
		  AND (repo_path = ?
		       OR session_id IN (SELECT DISTINCT session_id FROM session_repos WHERE repo_path = ?))
		ORDER BY created_at_epoch ASC, rowid ASC
	`
	rows, err := s.store.QueryContext(ctx, query, repoPath, repoPath)
	if err != nil {
		return nil, storageErr("query uncommitted", err)
	}
	defer rows.Close()

	prompts, err := scanPromptRows(rows)
	return prompts, storageErr("scan uncommitted", err)
}

// ByCommitRange returns the prompts attributed to any of the given commit
// hashes, oldest first, with the same cross-repository scoping as Uncommitted.
func (s *PromptStore) ByCommitRange(ctx context.Context, repoPath string, commitHashes []string) ([]models.Prompt, error) {
	if len(commitHashes) == 0 {
		return nil, nil
	}
	// #nosec G202 -- placeholders only, no user input in the query text
	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE commit_hash IN (?` + repeatPlaceholders(len(commitHashes)-1) + `)
		  AND (repo_path = ?
		       OR session_id IN (SELECT DISTINCT session_id FROM session_repos WHERE repo_path = ?))
		ORDER BY created_at_epoch ASC, rowid ASC
	`
	args := append(stringSliceToInterface(commitHashes), repoPath, repoPath)
	rows, err := s.store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query commit range", err)
	}
	defer rows.Close()

	prompts, err := scanPromptRows(rows)
	return prompts, storageErr("scan commit range", err)
}

// BySession returns all prompts of one session, oldest first.
func (s *PromptStore) BySession(ctx context.Context, sessionID string) ([]models.Prompt, error) {
	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE session_id = ?
		ORDER BY created_at_epoch ASC, rowid ASC
	`
	rows, err := s.store.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("query session prompts", err)
	}
	defer rows.Close()

	prompts, err := scanPromptRows(rows)
	return prompts, storageErr("scan session prompts", err)
}

// SessionsOf returns the distinct session ids owning the given prompts.
func (s *PromptStore) SessionsOf(ctx context.Context, promptIDs []string) ([]string, error) {
	if len(promptIDs) == 0 {
		return nil, nil
	}
	// #nosec G202 -- placeholders only, no user input in the query text
	query := `
		SELECT DISTINCT session_id FROM prompts
		WHERE prompt_id IN (?` + repeatPlaceholders(len(promptIDs)-1) + `)
	`
	rows, err := s.store.QueryContext(ctx, query, stringSliceToInterface(promptIDs)...)
	if err != nil {
		return nil, storageErr("query prompt sessions", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan prompt session", err)
		}
		ids = append(ids, id)
	}
	return ids, storageErr("query prompt sessions", rows.Err())
}

// History returns the repository's sessions most-recent-first, each
// populated with its prompts and counts.
func (s *PromptStore) History(ctx context.Context, repoPath string, limit int) ([]models.SessionHistory, error) {
	sessionQuery := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE repo_path = ?
		ORDER BY last_active_epoch DESC
		LIMIT ?
	`
	rows, err := s.store.QueryContext(ctx, sessionQuery, repoPath, limit)
	if err != nil {
		return nil, storageErr("query history sessions", err)
	}

	var history []models.SessionHistory
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, storageErr("scan history session", err)
		}
		history = append(history, models.SessionHistory{Session: *sess})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageErr("query history sessions", err)
	}

	for i := range history {
		prompts, err := s.BySession(ctx, history[i].ID)
		if err != nil {
			return nil, err
		}
		history[i].Prompts = prompts
		history[i].TotalPrompts = len(prompts)
		for _, p := range prompts {
			if !p.Committed {
				history[i].UncommittedPrompts++
			}
		}
	}
	return history, nil
}
