package provenance

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/trailhead/pkg/models"
)

// recordN records n prompts into one repo, minutes apart, and returns
// their ids.
func recordN(t *testing.T, engine *Engine, repo string, n int, base time.Time) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		result, err := engine.RecordPrompt(context.Background(), "hint", repo,
			fmt.Sprintf("prompt number %d", i+1), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		ids = append(ids, result.PromptID)
	}
	return ids
}

func TestRenderCommitTrailer_Empty(t *testing.T) {
	engine := testEngine(t)

	trailer, err := engine.RenderCommitTrailer(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", trailer)
}

func TestRenderCommitTrailer_Verbose(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	result, err := engine.RecordPrompt(ctx, "hint", repo, "add login form", recent(0))
	require.NoError(t, err)
	_, err = engine.RecordPrompt(ctx, "hint", repo, "fix the tests", recent(time.Minute))
	require.NoError(t, err)

	require.NoError(t, engine.prompts.AppendToolCall(ctx, result.SessionID,
		models.ToolCall{Tool: "Edit", FilePath: repo + "/login.go"}))

	trailer, err := engine.RenderCommitTrailer(ctx, repo)
	require.NoError(t, err)

	lines := strings.Split(trailer, "\n")
	assert.Equal(t, trailerHeader, lines[0])
	assert.Equal(t, trailerFooter, lines[len(lines)-1])
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "#"), "every line is a comment: %q", line)
	}

	assert.Contains(t, trailer, "# Session 1  (")
	assert.Contains(t, trailer, "id: "+result.SessionID[:8])
	assert.Contains(t, trailer, "2 prompts)")
	assert.Contains(t, trailer, "#   • add login form")
	assert.Contains(t, trailer, "#   • fix the tests")
	// Tool targets under the repo render repo-relative.
	assert.Contains(t, trailer, "# Files: login.go")
	// No condensed elements.
	assert.NotContains(t, trailer, "# First:")
	assert.NotContains(t, trailer, "Full history")
}

func TestRenderCommitTrailer_Condensed(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	recordN(t, engine, repo, 6, recent(0))

	trailer, err := engine.RenderCommitTrailer(ctx, repo)
	require.NoError(t, err)

	assert.Contains(t, trailer, "# 6 prompts · 1 session over 5m")
	assert.Contains(t, trailer, "# Session 1  (")
	assert.Contains(t, trailer, "# First: prompt number 1")
	assert.Contains(t, trailer, "# Last:  prompt number 6")
	assert.Contains(t, trailer, "# Full history: trailhead sessions")
	assert.NotContains(t, trailer, "•")
}

// A cross-repo-attributed session can overlap the local one, so the
// condensed First/Last edges come from the flat prompt timeline, not
// from the first and last session groups.
func TestRenderCommitTrailer_CondensedEdgesAcrossOverlappingSessions(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repoA := t.TempDir()
	repoB := t.TempDir()

	resA, err := engine.RecordPrompt(ctx, "hint-a", repoA, "a-first", recent(0))
	require.NoError(t, err)
	_, err = engine.RecordPrompt(ctx, "hint-a", repoA, "a-middle", recent(time.Minute))
	require.NoError(t, err)
	_, err = engine.RecordPrompt(ctx, "hint-a", repoA, "a-middle-2", recent(2*time.Minute))
	require.NoError(t, err)
	_, err = engine.RecordPrompt(ctx, "hint-a", repoA, "a-last", recent(20*time.Minute))
	require.NoError(t, err)

	// Repo B's own session starts after A's but stops sooner.
	_, err = engine.RecordPrompt(ctx, "hint-b", repoB, "b-first", recent(5*time.Minute))
	require.NoError(t, err)
	_, err = engine.RecordPrompt(ctx, "hint-b", repoB, "b-last-local", recent(6*time.Minute))
	require.NoError(t, err)

	// Session A edited a file in repo B, pulling it into B's trailer.
	require.NoError(t, engine.refs.AddFile(ctx, resA.SessionID,
		ResolveRepoKey(repoB), repoB+"/client.go", recent(time.Minute)))

	trailer, err := engine.RenderCommitTrailer(ctx, repoB)
	require.NoError(t, err)

	assert.Contains(t, trailer, "# 6 prompts · 2 sessions over 20m")
	assert.Contains(t, trailer, "# First: a-first")
	assert.Contains(t, trailer, "# Last:  a-last")
	assert.NotContains(t, trailer, "# Last:  b-last-local")
}

func TestRenderCommitTrailer_ThresholdBoundary(t *testing.T) {
	ctx := context.Background()

	t.Run("at threshold renders verbose", func(t *testing.T) {
		engine := testEngine(t)
		repo := t.TempDir()
		recordN(t, engine, repo, engine.cfg.VerboseThreshold, recent(0))

		trailer, err := engine.RenderCommitTrailer(ctx, repo)
		require.NoError(t, err)
		assert.Contains(t, trailer, "•")
	})

	t.Run("over threshold renders condensed", func(t *testing.T) {
		engine := testEngine(t)
		repo := t.TempDir()
		recordN(t, engine, repo, engine.cfg.VerboseThreshold+1, recent(0))

		trailer, err := engine.RenderCommitTrailer(ctx, repo)
		require.NoError(t, err)
		assert.NotContains(t, trailer, "•")
	})

	t.Run("threshold zero forces condensed", func(t *testing.T) {
		engine := testEngine(t)
		engine.cfg.VerboseThreshold = 0
		repo := t.TempDir()
		recordN(t, engine, repo, 1, recent(0))

		trailer, err := engine.RenderCommitTrailer(ctx, repo)
		require.NoError(t, err)
		assert.NotContains(t, trailer, "•")
		assert.Contains(t, trailer, "# 1 prompt · 1 session")
	})
}

func TestRenderCommitTrailer_TruncatesLongPrompts(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	long := strings.Repeat("refactor the session store ", 10)
	_, err := engine.RecordPrompt(ctx, "hint", repo, long, recent(0))
	require.NoError(t, err)

	trailer, err := engine.RenderCommitTrailer(ctx, repo)
	require.NoError(t, err)

	for _, line := range strings.Split(trailer, "\n") {
		if rest, ok := strings.CutPrefix(line, "#   • "); ok {
			assert.LessOrEqual(t, len([]rune(rest)), trailerPromptLimit)
			assert.True(t, strings.HasSuffix(rest, "..."))
		}
	}
}

func TestRenderCommitTrailer_CapsFileList(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	result, err := engine.RecordPrompt(ctx, "hint", repo, "touch everything", recent(0))
	require.NoError(t, err)
	recordN(t, engine, repo, 6, recent(time.Minute)) // force condensed mode

	for i := 0; i < engine.cfg.MaxTrailerFiles+3; i++ {
		require.NoError(t, engine.prompts.AppendToolCall(ctx, result.SessionID,
			models.ToolCall{Tool: "Write", FilePath: fmt.Sprintf("%s/file%02d.go", repo, i)}))
	}

	trailer, err := engine.RenderCommitTrailer(ctx, repo)
	require.NoError(t, err)
	assert.Contains(t, trailer, "(+3 more)")
}

func TestRenderPRBody_Empty(t *testing.T) {
	engine := testEngine(t)

	body, err := engine.RenderPRBody(context.Background(), t.TempDir(), []string{"no-such-commit"})
	require.NoError(t, err)
	assert.Equal(t, "", body)

	body, err = engine.RenderPRBody(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", body)
}

func TestRenderPRBody_Verbose(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	ids := recordN(t, engine, repo, 2, recent(0))
	require.NoError(t, engine.prompts.MarkCommitted(ctx, ids, "c1"))

	body, err := engine.RenderPRBody(ctx, repo, []string{"c1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, "## AI Provenance"))
	assert.Contains(t, body, "**Session 1** (")
	assert.Contains(t, body, "  - prompt number 1")
	assert.Contains(t, body, "  - prompt number 2")
	assert.Contains(t, body, "_Tracked by trailhead | 2 prompt(s)_")
	// Commit-message framing never leaks into markdown.
	assert.NotContains(t, body, trailerHeader)
}

func TestRenderPRBody_Condensed(t *testing.T) {
	engine := testEngine(t)
	ctx := context.Background()
	repo := t.TempDir()

	ids := recordN(t, engine, repo, 7, recent(0))
	require.NoError(t, engine.prompts.MarkCommitted(ctx, ids[:4], "c1"))
	require.NoError(t, engine.prompts.MarkCommitted(ctx, ids[4:], "c2"))

	body, err := engine.RenderPRBody(ctx, repo, []string{"c1", "c2"})
	require.NoError(t, err)

	assert.Contains(t, body, "7 prompts · 1 session over 6m")
	assert.Contains(t, body, "First: prompt number 1")
	assert.Contains(t, body, "Last: prompt number 7")
	assert.Contains(t, body, "Full history: `trailhead sessions`")
	assert.Contains(t, body, "_Tracked by trailhead | 7 prompt(s)_")

	// A range covering only one commit shows only its prompts.
	partial, err := engine.RenderPRBody(ctx, repo, []string{"c1"})
	require.NoError(t, err)
	assert.Contains(t, partial, "  - prompt number 1")
	assert.NotContains(t, partial, "prompt number 5")
}

func TestSpanString(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		gap  time.Duration
		want string
	}{
		{
			name: "seconds",
			gap:  47 * time.Second,
			want: "47s",
		},
		{
			name: "minutes",
			gap:  23 * time.Minute,
			want: "23m",
		},
		{
			name: "hours and minutes",
			gap:  time.Hour + 23*time.Minute,
			want: "1h 23m",
		},
		{
			name: "whole hours",
			gap:  2 * time.Hour,
			want: "2h",
		},
		{
			name: "zero",
			gap:  0,
			want: "0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spanString(base.UnixMilli(), base.Add(tt.gap).UnixMilli())
			assert.Equal(t, tt.want, got)
		})
	}

	// Negative spans render empty rather than nonsense.
	assert.Equal(t, "", spanString(base.UnixMilli(), base.Add(-time.Minute).UnixMilli()))
}

func TestCapFiles(t *testing.T) {
	assert.Equal(t, "", capFiles(nil, 8))
	assert.Equal(t, "a.go, b.go", capFiles([]string{"a.go", "b.go"}, 8))
	assert.Equal(t, "a.go, b.go (+2 more)", capFiles([]string{"a.go", "b.go", "c.go", "d.go"}, 2))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "very lo...", truncate("very long text here", 10))

	// Rune-safe: multi-byte characters never split.
	out := truncate(strings.Repeat("日本語テキスト", 20), 10)
	assert.Equal(t, 10, len([]rune(out)))
}
