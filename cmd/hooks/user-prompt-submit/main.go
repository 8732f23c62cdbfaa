// Package main provides the user-prompt-submit hook entry point.
//
// Claude Code invokes it synchronously on every prompt submission; it
// records the prompt and must never block or fail the submission.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/thebtf/trailhead/internal/config"
	"github.com/thebtf/trailhead/internal/db/sqlite"
	"github.com/thebtf/trailhead/internal/provenance"
	"github.com/thebtf/trailhead/internal/transcript"
	"github.com/thebtf/trailhead/pkg/hooks"
)

// Input is the hook input from Claude Code.
type Input struct {
	hooks.BaseInput
	Prompt string `json:"prompt"`
}

func main() {
	hooks.RunHook("user-prompt-submit", handlePromptSubmit)
}

func handlePromptSubmit(ctx *hooks.HookContext, input *Input) error {
	text := strings.TrimSpace(input.Prompt)
	if text == "" && input.TranscriptPath != "" {
		text = transcript.LastUserPrompt(input.TranscriptPath)
	}
	if text == "" {
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
	result, err := engine.RecordPrompt(context.Background(), ctx.SessionID, ctx.CWD, text, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "[user-prompt-submit] recorded prompt %s (session %s)\n",
		result.PromptID[:8], result.SessionID[:8])
	return nil
}
