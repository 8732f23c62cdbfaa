// Package models contains domain models for trailhead.
package models

import "database/sql"

// Prompt represents one captured user prompt and its tool activity.
type Prompt struct {
	ID             string         `db:"prompt_id" json:"prompt_id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	RepoPath       string         `db:"repo_path" json:"repo_path"`
	Text           string         `db:"prompt_text" json:"prompt_text"`
	ToolCalls      ToolCallList   `db:"tool_calls" json:"tool_calls,omitempty"`
	CreatedAt      string         `db:"created_at" json:"created_at"`
	CreatedAtEpoch int64          `db:"created_at_epoch" json:"created_at_epoch"`
	Committed      bool           `db:"committed" json:"committed"`
	CommitHash     sql.NullString `db:"commit_hash" json:"commit_hash,omitempty"`
}

// ShortCommit returns the first 8 characters of the commit hash, if set.
func (p *Prompt) ShortCommit() string {
	if !p.CommitHash.Valid {
		return ""
	}
	h := p.CommitHash.String
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
