package provenance

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/thebtf/trailhead/pkg/models"
)

// Trailer framing. Lines are '#'-prefixed so git treats the block as
// comments and strips it from the stored message; producing the prefixed
// text is this engine's whole contract, stripping is git's.
const (
	trailerHeader = "# ── AI Provenance ──────────────────────────────────────────"
	trailerFooter = "# ─────────────────────────────────────────────────────────"

	trailerPromptLimit = 90
	trailerEdgeLimit   = 80
	prBodyPromptLimit  = 120
	prBodyFileLimit    = 20
)

// HasTrailer reports whether a commit message already carries a
// provenance block, so hooks never append a second one.
func HasTrailer(message string) bool {
	return strings.Contains(message, trailerHeader)
}

// RenderCommitTrailer renders the provenance block for everything
// uncommitted in a repository. An empty uncommitted set renders "" so
// the caller knows to append nothing.
func (e *Engine) RenderCommitTrailer(ctx context.Context, repoPath string) (string, error) {
	rendered, _, err := e.PrepareTrailer(ctx, repoPath)
	return rendered, err
}

// PrepareTrailer renders the commit trailer and returns the prompt ids
// it covers, from a single uncommitted query, so the post-commit
// reconcile marks exactly what was rendered and nothing recorded later.
func (e *Engine) PrepareTrailer(ctx context.Context, repoPath string) (string, []string, error) {
	repoKey := ResolveRepoKey(repoPath)
	groups, err := e.Uncommitted(ctx, repoKey)
	if err != nil {
		return "", nil, err
	}
	if len(groups) == 0 {
		return "", nil, nil
	}
	rendered, err := e.renderTrailer(ctx, repoKey, groups)
	if err != nil {
		return "", nil, err
	}
	return rendered, SnapshotIDs(groups), nil
}

func (e *Engine) renderTrailer(ctx context.Context, repoKey string, groups []SessionGroup) (string, error) {
	total := 0
	for _, g := range groups {
		total += len(g.Prompts)
	}
	files, err := e.collectFiles(ctx, repoKey, groups)
	if err != nil {
		return "", err
	}

	lines := []string{trailerHeader, "#"}

	if total <= e.cfg.Threshold() {
		for idx, g := range groups {
			lines = append(lines, fmt.Sprintf("# Session %d  (%s, id: %s, %d prompt%s)",
				idx+1, fmtTimestamp(g.Session.StartedAt), g.Session.ShortID(),
				len(g.Prompts), plural(len(g.Prompts))))
			for _, p := range g.Prompts {
				lines = append(lines, "#   • "+truncate(p.Text, trailerPromptLimit))
			}
			lines = append(lines, "#")
		}
		if len(files) > 0 {
			lines = append(lines, "# Files: "+strings.Join(files, ", "), "#")
		}
	} else {
		first, last := edgePrompts(groups)

		span := ""
		if dur := spanString(first.CreatedAtEpoch, last.CreatedAtEpoch); dur != "" {
			span = " over " + dur
		}
		lines = append(lines, fmt.Sprintf("# %d prompt%s · %d session%s%s",
			total, plural(total), len(groups), plural(len(groups)), span), "#")

		for idx, g := range groups {
			lines = append(lines, fmt.Sprintf("# Session %d  (%s, id: %s, %d prompt%s)",
				idx+1, fmtTimestamp(g.Session.StartedAt), g.Session.ShortID(),
				len(g.Prompts), plural(len(g.Prompts))))
		}

		lines = append(lines, "#",
			"# First: "+truncate(first.Text, trailerEdgeLimit),
			"# Last:  "+truncate(last.Text, trailerEdgeLimit),
			"#",
			"# Full history: trailhead sessions")

		if capped := capFiles(files, e.cfg.TrailerFileCap()); capped != "" {
			lines = append(lines, "# Files: "+capped, "#")
		}
	}

	lines = append(lines, trailerFooter)
	return strings.Join(lines, "\n"), nil
}

// RenderPRBody renders the provenance section for a set of commit
// hashes (a branch's base..HEAD range), as plain markdown. The same
// verbose/condensed threshold applies; an empty range renders "".
func (e *Engine) RenderPRBody(ctx context.Context, repoPath string, commitHashes []string) (string, error) {
	repoKey := ResolveRepoKey(repoPath)
	prompts, err := e.prompts.ByCommitRange(ctx, repoKey, commitHashes)
	if err != nil {
		return "", err
	}
	if len(prompts) == 0 {
		return "", nil
	}
	groups, err := e.groupBySession(ctx, prompts)
	if err != nil {
		return "", err
	}
	files, err := e.collectFiles(ctx, repoKey, groups)
	if err != nil {
		return "", err
	}

	total := len(prompts)
	lines := []string{"## AI Provenance", ""}

	if total <= e.cfg.Threshold() {
		for idx, g := range groups {
			lines = append(lines, fmt.Sprintf("**Session %d** (%s, id: %s)",
				idx+1, fmtTimestamp(g.Session.StartedAt), g.Session.ShortID()))
			for _, p := range g.Prompts {
				lines = append(lines, "  - "+truncate(p.Text, prBodyPromptLimit))
			}
			lines = append(lines, "")
		}
	} else {
		first, last := edgePrompts(groups)

		span := ""
		if dur := spanString(first.CreatedAtEpoch, last.CreatedAtEpoch); dur != "" {
			span = " over " + dur
		}
		lines = append(lines, fmt.Sprintf("%d prompt%s · %d session%s%s",
			total, plural(total), len(groups), plural(len(groups)), span), "")

		for idx, g := range groups {
			lines = append(lines, fmt.Sprintf("**Session %d** (%s, id: %s, %d prompt%s)",
				idx+1, fmtTimestamp(g.Session.StartedAt), g.Session.ShortID(),
				len(g.Prompts), plural(len(g.Prompts))))
		}

		lines = append(lines, "",
			"First: "+truncate(first.Text, prBodyPromptLimit),
			"Last: "+truncate(last.Text, prBodyPromptLimit),
			"",
			"Full history: `trailhead sessions`")
	}

	if capped := capFiles(files, prBodyFileLimit); capped != "" {
		lines = append(lines, "**Files:** "+capped, "")
	}

	lines = append(lines, fmt.Sprintf("_Tracked by trailhead | %d prompt(s)_", total))
	return strings.Join(lines, "\n"), nil
}

// collectFiles gathers every file path touched by the included sessions,
// de-duplicated and order-preserving: tool-call targets first (prompt
// order), then cross-repository file sets. Paths under the rendered
// repository are shown repo-relative.
func (e *Engine) collectFiles(ctx context.Context, repoKey string, groups []SessionGroup) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if path == "" {
			return
		}
		if rel, err := filepath.Rel(repoKey, path); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	sessionIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		sessionIDs = append(sessionIDs, g.Session.ID)
		for _, p := range g.Prompts {
			for _, target := range p.ToolCalls.FilePaths() {
				add(target)
			}
		}
	}

	crossFiles, err := e.refs.FilesForSessions(ctx, repoKey, sessionIDs)
	if err != nil {
		return nil, err
	}
	for _, f := range crossFiles {
		add(f)
	}
	return files, nil
}

// edgePrompts returns the earliest and latest prompts across every
// group. Cross-repository attribution can pull in a session that
// overlaps the local ones, so group order alone does not locate them.
func edgePrompts(groups []SessionGroup) (models.Prompt, models.Prompt) {
	first, last := groups[0].Prompts[0], groups[0].Prompts[0]
	for _, g := range groups {
		for _, p := range g.Prompts {
			if p.CreatedAtEpoch < first.CreatedAtEpoch {
				first = p
			}
			if p.CreatedAtEpoch >= last.CreatedAtEpoch {
				last = p
			}
		}
	}
	return first, last
}

// capFiles joins a file list, capping at limit with a "+N more" suffix.
func capFiles(files []string, limit int) string {
	if len(files) == 0 {
		return ""
	}
	if limit > 0 && len(files) > limit {
		return strings.Join(files[:limit], ", ") + fmt.Sprintf(" (+%d more)", len(files)-limit)
	}
	return strings.Join(files, ", ")
}

// fmtTimestamp formats a stored RFC3339 timestamp for display in the
// local timezone.
func fmtTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}

// spanString renders a duration between two epoch-millisecond stamps as
// value+unit, e.g. "47s", "23m", "1h 23m".
func spanString(firstEpoch, lastEpoch int64) string {
	secs := (lastEpoch - firstEpoch) / 1000
	if secs < 0 {
		return ""
	}
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	if secs < 3600 {
		return fmt.Sprintf("%dm", secs/60)
	}
	h, m := secs/3600, (secs%3600)/60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// truncate shortens text to limit runes with a "..." suffix.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}

// plural returns "s" for counts other than one.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
