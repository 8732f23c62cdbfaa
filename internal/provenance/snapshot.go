package provenance

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/thebtf/trailhead/internal/gitx"
)

// snapshotName is the handoff file written by prepare-commit-msg and
// consumed by post-commit, inside the repository's git directory.
const snapshotName = "trailhead-snapshot.json"

// Snapshot is the render-time record handed from the prepare-commit-msg
// hook to the post-commit hook. Reconciling against it (instead of
// re-querying) is what keeps prompts recorded mid-commit out of the
// wrong commit.
type Snapshot struct {
	PromptIDs []string `json:"prompt_ids"`
	Rendered  string   `json:"rendered"`
	CreatedAt string   `json:"created_at"`
}

// WriteSnapshot persists the snapshot under the repo's git directory.
func WriteSnapshot(repoRoot string, promptIDs []string, rendered string) error {
	dir, err := gitx.GitDir(repoRoot)
	if err != nil {
		return err
	}
	snap := Snapshot{
		PromptIDs: promptIDs,
		Rendered:  rendered,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, snapshotName), data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads the pending snapshot, or (nil, nil) when none exists.
func ReadSnapshot(repoRoot string) (*Snapshot, error) {
	dir, err := gitx.GitDir(repoRoot)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, snapshotName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

// RemoveSnapshot deletes the pending snapshot; missing is fine.
func RemoveSnapshot(repoRoot string) error {
	dir, err := gitx.GitDir(repoRoot)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, snapshotName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}
