package provenance

import (
	"context"
	"time"
)

// ReconcileCommit marks exactly the caller-supplied snapshot of prompt
// ids as covered by commitHash, then closes any of their sessions left
// with nothing uncommitted.
//
// The snapshot was taken when the trailer was rendered and is never
// re-queried here: a prompt recorded between rendering and the commit
// completing stays uncommitted and flows into the next commit's trailer
// instead of being silently attributed to this one.
func (e *Engine) ReconcileCommit(ctx context.Context, repoPath, commitHash string, snapshotIDs []string) error {
	if len(snapshotIDs) == 0 {
		return nil
	}
	if err := e.prompts.MarkCommitted(ctx, snapshotIDs, commitHash); err != nil {
		return err
	}

	sessionIDs, err := e.prompts.SessionsOf(ctx, snapshotIDs)
	if err != nil {
		return err
	}
	if err := e.sessions.CloseFullyCommitted(ctx, sessionIDs); err != nil {
		return err
	}

	e.CloseIdleSessions(ctx, repoPath, time.Now())
	return nil
}

// SnapshotIDs flattens grouped uncommitted prompts into the id list a
// prepare-commit-msg hook hands to ReconcileCommit after the commit.
func SnapshotIDs(groups []SessionGroup) []string {
	var ids []string
	for _, g := range groups {
		for _, p := range g.Prompts {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
