package models

// SessionState represents the open/closed state of a session.
type SessionState string

const (
	SessionOpen   SessionState = "open"
	SessionClosed SessionState = "closed"
)

// Session is a time-and-repository-bounded grouping of prompts.
type Session struct {
	ID              string       `db:"session_id" json:"session_id"`
	RepoPath        string       `db:"repo_path" json:"repo_path"`
	CaptureHint     string       `db:"capture_hint" json:"capture_hint,omitempty"`
	BranchName      string       `db:"branch_name" json:"branch_name,omitempty"`
	CWD             string       `db:"cwd" json:"cwd,omitempty"`
	State           SessionState `db:"state" json:"state"`
	StartedAt       string       `db:"started_at" json:"started_at"`
	StartedAtEpoch  int64        `db:"started_at_epoch" json:"started_at_epoch"`
	LastActive      string       `db:"last_active" json:"last_active"`
	LastActiveEpoch int64        `db:"last_active_epoch" json:"last_active_epoch"`
}

// ShortID returns the first 8 characters of the session id for display.
func (s *Session) ShortID() string {
	if len(s.ID) > 8 {
		return s.ID[:8]
	}
	return s.ID
}

// SessionHistory is a session populated with its prompts and counts.
type SessionHistory struct {
	Session
	Prompts            []Prompt `json:"prompts"`
	TotalPrompts       int      `json:"total_prompts"`
	UncommittedPrompts int      `json:"uncommitted_prompts"`
}

// CrossRepoRef links a session's prompts into another repository's view.
// Created when a session edits files whose git root differs from the
// session's own repository; append-only.
type CrossRepoRef struct {
	SessionID string   `db:"session_id" json:"session_id"`
	RepoPath  string   `db:"repo_path" json:"repo_path"`
	FilePaths []string `json:"file_paths"`
}

// SessionSummary is the read-only introspection view of one session.
type SessionSummary struct {
	Session
	Prompts []Prompt       `json:"prompts"`
	Files   []string       `json:"files"`
	Tools   map[string]int `json:"tools"`
}
