// Package main provides the post-tool-use hook entry point.
//
// Fires after Write/Edit/MultiEdit/NotebookEdit tool calls; records the
// tool target against the session's latest prompt and feeds the
// cross-repository linker when the edited file lives in another repo.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/db/sqlite"
	"github.com/thebtf/trailhead/internal/provenance"
	"github.com/thebtf/trailhead/pkg/hooks"
)

// Input is the hook input from Claude Code.
type Input struct {
	hooks.BaseInput
	ToolName  string `json:"tool_name"`
	ToolInput struct {
		FilePath string `json:"file_path"`
	} `json:"tool_input"`
}

func main() {
	hooks.RunHook("post-tool-use", handlePostToolUse)
}

func handlePostToolUse(ctx *hooks.HookContext, input *Input) error {
	if !provenance.IsTrackedTool(input.ToolName) {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(config.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	engine := provenance.New(store, cfg)
	if err := engine.NoteToolUse(context.Background(),
		ctx.SessionID, ctx.CWD, input.ToolName, input.ToolInput.FilePath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "[post-tool-use] %s %s\n", input.ToolName, input.ToolInput.FilePath)
	return nil
}
