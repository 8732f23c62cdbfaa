// Package hooks provides the Claude Code hook plumbing shared by the
// trailhead capture binaries: stdin payload parsing, response writing,
// and the never-block-the-user contract.
package hooks

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// HookResponse is the response sent back to Claude Code.
type HookResponse struct {
	Continue bool `json:"continue"`
}

// Exit codes for Claude Code hooks.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// BaseInput contains common fields shared by all hook inputs.
type BaseInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
}

// HookContext provides common context for hook handlers.
type HookContext struct {
	HookName  string
	SessionID string
	CWD       string
	RawInput  []byte
}

// HookHandler handles hook-specific logic.
type HookHandler[T any] func(ctx *HookContext, input *T) error

// WriteResponse writes a hook response to stdout.
func WriteResponse(success bool) {
	data, _ := json.Marshal(HookResponse{Continue: success})
	fmt.Println(string(data))
}

// WriteError writes an error message to stderr. The response still says
// continue: a capture failure must never block the user's submission.
func WriteError(hookName string, err error) {
	fmt.Fprintf(os.Stderr, "[%s] Error: %v\n", hookName, err)
	WriteResponse(true)
}

// RunHook executes a hook with the common boilerplate: stdin reading,
// JSON unmarshaling, base-field extraction. Handler errors are reported
// to stderr but the hook always exits 0 with continue=true; trailhead
// drops events rather than stalling Claude.
func RunHook[T any](hookName string, handler HookHandler[T]) {
	inputData, err := io.ReadAll(os.Stdin)
	if err != nil {
		WriteError(hookName, err)
		return
	}

	var input T
	if err := json.Unmarshal(inputData, &input); err != nil {
		WriteError(hookName, err)
		return
	}

	var base BaseInput
	_ = json.Unmarshal(inputData, &base)

	cwd := base.CWD
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	ctx := &HookContext{
		HookName:  hookName,
		SessionID: base.SessionID,
		CWD:       cwd,
		RawInput:  inputData,
	}

	if err := handler(ctx, &input); err != nil {
		WriteError(hookName, err)
		return
	}
	WriteResponse(true)
}
