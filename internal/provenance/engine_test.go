package provenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/db/sqlite"
	"github.com/thebtf/trailhead/pkg/models"
)

// testEngine creates an engine over a fresh store.
func testEngine(t *testing.T) *Engine {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "trailhead.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(store, config.Default())
}

// recent returns a timestamp safely inside the inactivity window, so
// lazy idle-closing during the test never fires.
func recent(offset time.Duration) time.Time {
	return time.Now().Add(-5*time.Minute + offset)
}

func TestResolveRepoKey_NonRepoFallsBackToPath(t *testing.T) {
	dir := t.TempDir()
	key := ResolveRepoKey(dir)
	assert.Equal(t, filepath.Clean(dir), key)

	// Missing paths still resolve via the nearest existing ancestor.
	key = ResolveRepoKey(filepath.Join(dir, "not", "yet", "created"))
	assert.Equal(t, filepath.Clean(filepath.Join(dir, "not", "yet", "created")), key)
}

func TestRecordPrompt_GroupsIntoSessions(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	first, err := engine.RecordPrompt(ctx, "hint", repo, "add login", recent(0))
	require.NoError(t, err)
	assert.NotEmpty(t, first.PromptID)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, filepath.Clean(repo), first.RepoKey)

	// Same repo inside the window: same session.
	second, err := engine.RecordPrompt(ctx, "hint", repo, "fix tests", recent(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.PromptID, second.PromptID)

	// Different repo: different session, even at the same instant.
	other, err := engine.RecordPrompt(ctx, "hint", t.TempDir(), "unrelated", recent(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, other.SessionID)
}

func TestRecordPrompt_WindowRollsSession(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	window := engine.cfg.InactivityWindow()
	base := time.Now().Add(-2 * window)

	first, err := engine.RecordPrompt(ctx, "hint", repo, "old work", base)
	require.NoError(t, err)

	second, err := engine.RecordPrompt(ctx, "hint", repo, "new work", base.Add(window+time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestUncommitted_GroupsOrderedBySessionStart(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	window := engine.cfg.InactivityWindow()
	early := time.Now().Add(-2*window - 10*time.Minute)

	r1, err := engine.RecordPrompt(ctx, "hint", repo, "first session work", early)
	require.NoError(t, err)
	r2, err := engine.RecordPrompt(ctx, "hint", repo, "second session work", recent(0))
	require.NoError(t, err)
	require.NotEqual(t, r1.SessionID, r2.SessionID)

	groups, err := engine.Uncommitted(ctx, repo)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, r1.SessionID, groups[0].Session.ID)
	assert.Equal(t, r2.SessionID, groups[1].Session.ID)
	require.Len(t, groups[0].Prompts, 1)
	assert.Equal(t, "first session work", groups[0].Prompts[0].Text)
}

func TestListSessions(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	_, err := engine.RecordPrompt(ctx, "hint", repo, "one", recent(0))
	require.NoError(t, err)
	_, err = engine.RecordPrompt(ctx, "hint", repo, "two", recent(time.Minute))
	require.NoError(t, err)

	histories, err := engine.ListSessions(ctx, repo, 0)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, 2, histories[0].TotalPrompts)
	assert.Equal(t, 2, histories[0].UncommittedPrompts)
}

func TestSessionSummary(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	result, err := engine.RecordPrompt(ctx, "hint", repo, "refactor parser", recent(0))
	require.NoError(t, err)

	require.NoError(t, engine.prompts.AppendToolCall(ctx, result.SessionID,
		models.ToolCall{Tool: "Edit", FilePath: "/x/parser.go"}))
	require.NoError(t, engine.prompts.AppendToolCall(ctx, result.SessionID,
		models.ToolCall{Tool: "Edit", FilePath: "/x/parser.go"}))
	require.NoError(t, engine.prompts.AppendToolCall(ctx, result.SessionID,
		models.ToolCall{Tool: "Write", FilePath: "/x/lexer.go"}))

	summary, err := engine.SessionSummary(ctx, result.SessionID)
	require.NoError(t, err)

	assert.Equal(t, result.SessionID, summary.ID)
	require.Len(t, summary.Prompts, 1)
	// Duplicate targets collapse; tool counts do not.
	assert.Equal(t, []string{"/x/parser.go", "/x/lexer.go"}, summary.Files)
	assert.Equal(t, map[string]int{"Edit": 2, "Write": 1}, summary.Tools)
}

func TestSessionSummary_NotFound(t *testing.T) {
	engine := testEngine(t)
	_, err := engine.SessionSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}
