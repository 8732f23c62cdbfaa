package sqlite

import (
	"database/sql"

	"github.com/thebtf/trailhead/pkg/models"
)

// repeatPlaceholders generates n comma-prefixed placeholders for SQL IN clauses.
// e.g., repeatPlaceholders(2) returns ", ?, ?"
func repeatPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	result := ""
	for i := 0; i < n; i++ {
		result += ", ?"
	}
	return result
}

// stringSliceToInterface converts []string to []interface{} for SQL queries.
func stringSliceToInterface(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

const promptColumns = `prompt_id, session_id, repo_path, prompt_text, tool_calls,
	created_at, created_at_epoch, committed, commit_hash`

// scanPrompt scans a single prompt from a row scanner.
func scanPrompt(scanner interface{ Scan(...interface{}) error }) (*models.Prompt, error) {
	var p models.Prompt
	if err := scanner.Scan(
		&p.ID, &p.SessionID, &p.RepoPath, &p.Text, &p.ToolCalls,
		&p.CreatedAt, &p.CreatedAtEpoch, &p.Committed, &p.CommitHash,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// scanPromptRows scans multiple prompts from rows.
func scanPromptRows(rows *sql.Rows) ([]models.Prompt, error) {
	var prompts []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

const sessionColumns = `session_id, repo_path, capture_hint, branch_name, cwd, state,
	started_at, started_at_epoch, last_active, last_active_epoch`

// scanSession scans a single session from a row scanner.
func scanSession(scanner interface{ Scan(...interface{}) error }) (*models.Session, error) {
	var sess models.Session
	if err := scanner.Scan(
		&sess.ID, &sess.RepoPath, &sess.CaptureHint, &sess.BranchName, &sess.CWD, &sess.State,
		&sess.StartedAt, &sess.StartedAtEpoch, &sess.LastActive, &sess.LastActiveEpoch,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}
