// Package transcript parses Claude Code JSONL transcript files.
//
// Used two ways: as the capture hook's fallback when the hook payload
// carries no prompt field, and by the watcher to pick up prompts the
// hook missed entirely.
package transcript

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// UserPrompt is one human message extracted from a transcript.
type UserPrompt struct {
	Text      string
	Timestamp time.Time
	SessionID string
	CWD       string
}

// line is the subset of a transcript JSONL entry we care about.
type line struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
	CWD       string `json:"cwd"`
	Message   struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// metaPrefixes mark Claude-internal entries that are not real user prompts.
var metaPrefixes = []string{
	"[Request interrupted",
	"The user doesn't want to proceed",
	"[Skipping",
	"<system-reminder>",
}

// IsMeta reports whether a transcript text is an internal meta message.
func IsMeta(text string) bool {
	for _, p := range metaPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// extractText pulls the text out of a message content field, which may
// be a bare string or a list of typed blocks.
func extractText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var texts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			texts = append(texts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(texts, "\n")
}

// ParseLine parses one transcript JSONL line. The second return is
// false for non-user entries, meta messages and malformed lines.
func ParseLine(raw []byte) (UserPrompt, bool) {
	var entry line
	if err := json.Unmarshal(raw, &entry); err != nil {
		return UserPrompt{}, false
	}
	if entry.Type != "user" {
		return UserPrompt{}, false
	}
	text := extractText(entry.Message.Content)
	if text == "" || IsMeta(text) {
		return UserPrompt{}, false
	}
	ts, _ := time.Parse(time.RFC3339, entry.Timestamp)
	return UserPrompt{
		Text:      text,
		Timestamp: ts,
		SessionID: entry.SessionID,
		CWD:       entry.CWD,
	}, true
}

// UserPrompts returns every user prompt in a transcript file, in file
// order, meta entries skipped. Malformed lines are ignored.
func UserPrompts(path string) ([]UserPrompt, error) {
	f, err := os.Open(path) // #nosec G304 -- transcript path comes from the hook payload
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var prompts []UserPrompt
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if prompt, ok := ParseLine([]byte(raw)); ok {
			prompts = append(prompts, prompt)
		}
	}
	return prompts, scanner.Err()
}

// LastUserPrompt returns the most recent user prompt in a transcript,
// or "" when none is found. Errors collapse to "" since this is a
// best-effort fallback on the capture path.
func LastUserPrompt(path string) string {
	prompts, err := UserPrompts(expandHome(path))
	if err != nil || len(prompts) == 0 {
		return ""
	}
	return prompts[len(prompts)-1].Text
}

// expandHome resolves a leading ~ in paths the hook payload may carry.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return strings.Replace(path, "~", home, 1)
		}
	}
	return path
}
