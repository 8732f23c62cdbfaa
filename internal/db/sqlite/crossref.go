package sqlite

import (
	"context"
	"time"

	"github.com/thebtf/trailhead/pkg/models"
)

// CrossRepoStore persists cross-repository references: one row per
// (session, target repo, file) attribution. Rows are append-only;
// INSERT OR IGNORE makes the upsert atomic and retry-safe.
type CrossRepoStore struct {
	store *Store
}

// NewCrossRepoStore creates a new cross-repository reference store.
func NewCrossRepoStore(store *Store) *CrossRepoStore {
	return &CrossRepoStore{store: store}
}

// AddFile attributes filePath (inside targetRepo) to the session.
func (s *CrossRepoStore) AddFile(ctx context.Context, sessionID, targetRepo, filePath string, now time.Time) error {
	const query = `
		INSERT OR IGNORE INTO session_repos (session_id, repo_path, file_path, created_at_epoch)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.store.ExecContext(ctx, query, sessionID, targetRepo, filePath, now.UnixMilli())
	return storageErr("add cross-repo file", err)
}

// ForRepo returns the references targeting a repository, grouped by
// origin session, file paths in first-observed order.
func (s *CrossRepoStore) ForRepo(ctx context.Context, repoPath string) ([]models.CrossRepoRef, error) {
	const query = `
		SELECT session_id, file_path
		FROM session_repos
		WHERE repo_path = ?
		ORDER BY created_at_epoch ASC, rowid ASC
	`
	rows, err := s.store.QueryContext(ctx, query, repoPath)
	if err != nil {
		return nil, storageErr("query cross-repo refs", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	var refs []models.CrossRepoRef
	for rows.Next() {
		var sessionID, filePath string
		if err := rows.Scan(&sessionID, &filePath); err != nil {
			return nil, storageErr("scan cross-repo ref", err)
		}
		i, ok := index[sessionID]
		if !ok {
			i = len(refs)
			index[sessionID] = i
			refs = append(refs, models.CrossRepoRef{SessionID: sessionID, RepoPath: repoPath})
		}
		refs[i].FilePaths = append(refs[i].FilePaths, filePath)
	}
	return refs, storageErr("query cross-repo refs", rows.Err())
}

// FilesForSessions returns the file paths attributed to the given sessions
// within one target repository, in first-observed order.
func (s *CrossRepoStore) FilesForSessions(ctx context.Context, repoPath string, sessionIDs []string) ([]string, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	// #nosec G202 -- placeholders only, no user input in the query text
	query := `
		SELECT file_path
		FROM session_repos
		WHERE repo_path = ?
		  AND session_id IN (?` + repeatPlaceholders(len(sessionIDs)-1) + `)
		ORDER BY created_at_epoch ASC, rowid ASC
	`
	args := append([]interface{}{repoPath}, stringSliceToInterface(sessionIDs)...)
	rows, err := s.store.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query cross-repo files", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, storageErr("scan cross-repo file", err)
		}
		files = append(files, f)
	}
	return files, storageErr("query cross-repo files", rows.Err())
}

// ForSession returns the references a session has made into other
// repositories, grouped by target repo.
func (s *CrossRepoStore) ForSession(ctx context.Context, sessionID string) ([]models.CrossRepoRef, error) {
	const query = `
		SELECT repo_path, file_path
		FROM session_repos
		WHERE session_id = ?
		ORDER BY created_at_epoch ASC, rowid ASC
	`
	rows, err := s.store.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("query session refs", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	var refs []models.CrossRepoRef
	for rows.Next() {
		var repoPath, filePath string
		if err := rows.Scan(&repoPath, &filePath); err != nil {
			return nil, storageErr("scan session ref", err)
		}
		i, ok := index[repoPath]
		if !ok {
			i = len(refs)
			index[repoPath] = i
			refs = append(refs, models.CrossRepoRef{SessionID: sessionID, RepoPath: repoPath})
		}
		refs[i].FilePaths = append(refs[i].FilePaths, filePath)
	}
	return refs, storageErr("query session refs", rows.Err())
}
