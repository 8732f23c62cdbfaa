package provenance

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/trailhead/internal/gitx"
	"github.com/thebtf/trailhead/pkg/models"
)

// trackedTools are the file-writing tools whose targets count as
// "files touched" and can trigger cross-repository attribution.
var trackedTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// IsTrackedTool reports whether a tool's file target should be recorded.
func IsTrackedTool(tool string) bool {
	return trackedTools[tool]
}

// NoteToolUse records a tool invocation against the session's latest
// prompt and, when the edited file's git root differs from the session's
// origin repository, writes a cross-repository reference so the origin
// session's prompts appear in the target repository's view.
//
// Resolution failures are swallowed: a file outside any repository is a
// valid event, not an error. Only store failures surface.
func (e *Engine) NoteToolUse(ctx context.Context, hint, cwd, tool, filePath string) error {
	originKey := ResolveRepoKey(cwd)

	sess, err := e.sessions.FindOpen(ctx, originKey, hint)
	if err != nil {
		// No open session means no prompt is being handled; nothing to
		// attribute the edit to.
		log.Debug().Str("repo", originKey).Str("tool", tool).Msg("Tool use without open session")
		return nil
	}

	if filePath == "" {
		return nil
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(cwd, filePath)
	}

	if err := e.prompts.AppendToolCall(ctx, sess.ID, models.ToolCall{Tool: tool, FilePath: filePath}); err != nil {
		return err
	}

	targetKey, err := gitx.ResolveRoot(filePath)
	if err != nil {
		if errors.Is(err, gitx.ErrNotRepository) {
			log.Debug().Str("file", filePath).Msg("Edited file outside any repository")
			return nil
		}
		log.Warn().Err(err).Str("file", filePath).Msg("Failed to resolve edited file")
		return nil
	}
	if targetKey == sess.RepoPath {
		return nil
	}

	return e.refs.AddFile(ctx, sess.ID, targetKey, filePath, time.Now())
}
