// Package provenance is the consolidation engine: it scopes captured
// prompts to repositories and sessions, links sessions across
// repositories, renders commit trailers and PR bodies, and reconciles
// prompts against the commits that covered them.
//
// The engine holds no timers or background state; every operation is a
// bounded synchronous call against the shared SQLite store, so capture
// hooks, git hooks, the CLI and the watcher can all drive it from
// separate processes.
package provenance

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/db/sqlite"
	"github.com/thebtf/trailhead/internal/gitx"
	"github.com/thebtf/trailhead/pkg/models"
)

// Engine wires the stores, the repository resolver and the config into
// the public provenance operations.
type Engine struct {
	cfg      *config.Config
	sessions *sqlite.SessionStore
	prompts  *sqlite.PromptStore
	refs     *sqlite.CrossRepoStore
}

// New creates an Engine over an open store.
func New(store *sqlite.Store, cfg *config.Config) *Engine {
	return &Engine{
		cfg:      cfg,
		sessions: sqlite.NewSessionStore(store),
		prompts:  sqlite.NewPromptStore(store),
		refs:     sqlite.NewCrossRepoStore(store),
	}
}

// RecordResult reports where a recorded prompt landed.
type RecordResult struct {
	PromptID  string
	SessionID string
	RepoKey   string
}

// ResolveRepoKey normalizes any path to the repository partition key:
// the enclosing git root, or the nearest existing directory when the
// path is outside any repository (capture must not fail for non-repo
// work).
func ResolveRepoKey(path string) string {
	root, err := gitx.ResolveRoot(path)
	if err == nil {
		return root
	}
	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// RecordPrompt captures one user prompt: resolves the repository from
// cwd, attaches the prompt to the repository's open session (opening one
// if needed), and appends the prompt row. Fails fast on store errors so
// the caller can drop the event instead of stalling the user.
func (e *Engine) RecordPrompt(ctx context.Context, hint, cwd, text string, ts time.Time) (*RecordResult, error) {
	repoKey := ResolveRepoKey(cwd)

	branch := ""
	if b, err := gitx.CurrentBranch(repoKey); err == nil {
		branch = b
	}

	sessionID, err := e.sessions.Attach(ctx, repoKey, hint, branch, cwd, ts, e.cfg.InactivityWindow())
	if err != nil {
		return nil, err
	}
	promptID, err := e.prompts.Record(ctx, repoKey, sessionID, text, ts, nil)
	if err != nil {
		return nil, err
	}
	return &RecordResult{PromptID: promptID, SessionID: sessionID, RepoKey: repoKey}, nil
}

// SessionGroup is one session with the prompts visible in a rendering
// window, in chronological order.
type SessionGroup struct {
	Session models.Session  `json:"session"`
	Prompts []models.Prompt `json:"prompts"`
}

// groupBySession splits an ordered prompt sequence into per-session
// groups ordered by (session start, session id). Sessions with no
// prompts in the window never appear.
func (e *Engine) groupBySession(ctx context.Context, prompts []models.Prompt) ([]SessionGroup, error) {
	index := make(map[string]int)
	var groups []SessionGroup
	for _, p := range prompts {
		i, ok := index[p.SessionID]
		if !ok {
			sess, err := e.sessions.Get(ctx, p.SessionID)
			if err != nil {
				if errors.Is(err, sqlite.ErrNotFound) {
					// Orphan prompt; render it under a bare session shell
					// rather than dropping history.
					sess = &models.Session{ID: p.SessionID, StartedAt: p.CreatedAt, StartedAtEpoch: p.CreatedAtEpoch}
				} else {
					return nil, err
				}
			}
			i = len(groups)
			index[p.SessionID] = i
			groups = append(groups, SessionGroup{Session: *sess})
		}
		groups[i].Prompts = append(groups[i].Prompts, p)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Session.StartedAtEpoch != groups[b].Session.StartedAtEpoch {
			return groups[a].Session.StartedAtEpoch < groups[b].Session.StartedAtEpoch
		}
		return groups[a].Session.ID < groups[b].Session.ID
	})
	return groups, nil
}

// Uncommitted returns the repository's uncommitted prompts grouped into
// ordered sessions, cross-repository attributions included.
func (e *Engine) Uncommitted(ctx context.Context, repoPath string) ([]SessionGroup, error) {
	repoKey := ResolveRepoKey(repoPath)
	prompts, err := e.prompts.Uncommitted(ctx, repoKey)
	if err != nil {
		return nil, err
	}
	return e.groupBySession(ctx, prompts)
}

// ListSessions returns the repository's recent sessions with their
// prompts and counts, most recently active first.
func (e *Engine) ListSessions(ctx context.Context, repoPath string, limit int) ([]models.SessionHistory, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.prompts.History(ctx, ResolveRepoKey(repoPath), limit)
}

// SessionSummary returns the introspection view of one session: its
// prompts, every file it touched (tool targets plus cross-repository
// attributions), and tool usage counts.
func (e *Engine) SessionSummary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prompts, err := e.prompts.BySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	refs, err := e.refs.ForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &models.SessionSummary{
		Session: *sess,
		Prompts: prompts,
		Tools:   make(map[string]int),
	}
	seen := make(map[string]bool)
	addFile := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			summary.Files = append(summary.Files, path)
		}
	}
	for _, p := range prompts {
		for _, call := range p.ToolCalls {
			summary.Tools[call.Tool]++
			addFile(call.FilePath)
		}
	}
	for _, ref := range refs {
		for _, f := range ref.FilePaths {
			addFile(f)
		}
	}
	return summary, nil
}

// CloseIdleSessions lazily closes sessions whose inactivity window has
// elapsed. Called by read surfaces so state converges without timers.
func (e *Engine) CloseIdleSessions(ctx context.Context, repoPath string, now time.Time) {
	if err := e.sessions.CloseIdle(ctx, ResolveRepoKey(repoPath), now, e.cfg.InactivityWindow()); err != nil {
		log.Warn().Err(err).Str("repo", repoPath).Msg("Failed to close idle sessions")
	}
}
