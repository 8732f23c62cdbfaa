// Package gitx resolves filesystem paths to git repositories and answers
// the few git questions trailhead needs (branch, HEAD, commit ranges,
// changed files). Built on go-git so no git binary is required on the
// capture path.
package gitx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository indicates a path does not resolve to any git
// repository. For the cross-repository linker this is an expected
// condition, not an error; the CLI surfaces it to the user.
var ErrNotRepository = errors.New("not inside a git repository")

// maxRangeCommits bounds commit-range walks so a bad base revision can't
// make PR rendering crawl an entire history.
const maxRangeCommits = 10000

// ResolveRoot finds the enclosing git worktree root for a path and
// normalizes it to a canonical key (absolute, symlinks resolved).
// The path may be a file, a directory, or not exist yet (a file about
// to be written); resolution starts from the nearest existing directory.
func ResolveRoot(path string) (string, error) {
	dir, err := nearestDir(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, ErrNotRepository)
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("resolve %s: %w", path, ErrNotRepository)
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository: no worktree to attribute edits to.
		return "", fmt.Errorf("resolve %s: %w", path, ErrNotRepository)
	}
	return canonical(wt.Filesystem.Root()), nil
}

// nearestDir walks up from path to the closest existing directory,
// resolving symlinks along the way.
func nearestDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for dir := abs; ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(dir); err == nil {
			if info.IsDir() {
				return canonical(dir), nil
			}
			return canonical(filepath.Dir(dir)), nil
		}
		if filepath.Dir(dir) == dir {
			return "", os.ErrNotExist
		}
	}
}

// canonical resolves symlinks where possible and cleans the path.
func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return filepath.Clean(resolved)
	}
	return filepath.Clean(path)
}

// GitDir resolves a repository root's git directory, following the
// "gitdir: ..." indirection used by linked worktrees and submodules.
func GitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("stat .git: %w", err)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("read .git file: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if dir, ok := strings.CutPrefix(strings.TrimSpace(line), "gitdir:"); ok {
			dir = strings.TrimSpace(dir)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			return filepath.Clean(dir), nil
		}
	}
	return "", fmt.Errorf(".git file without gitdir pointer")
}

// CurrentBranch returns the short branch name for a repository root, or
// "HEAD" when detached.
func CurrentBranch(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", root, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("head of %s: %w", root, err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "HEAD", nil
}

// Head returns the full hash of the repository's HEAD commit.
func Head(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", root, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("head of %s: %w", root, err)
	}
	return head.Hash().String(), nil
}

// CommitsBetween returns the hashes reachable from HEAD but not from
// base (base..HEAD), newest first.
func CommitsBetween(root, base string) ([]string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", root, err)
	}

	baseHash, err := repo.ResolveRevision(plumbing.Revision(base))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", base, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("head of %s: %w", root, err)
	}

	baseAncestry := make(map[plumbing.Hash]bool)
	baseIter, err := repo.Log(&git.LogOptions{From: *baseHash})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", base, err)
	}
	count := 0
	for {
		c, err := baseIter.Next()
		if err != nil {
			break
		}
		baseAncestry[c.Hash] = true
		if count++; count >= maxRangeCommits {
			break
		}
	}
	baseIter.Close()

	headIter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("log HEAD: %w", err)
	}
	defer headIter.Close()

	var hashes []string
	count = 0
	for {
		c, err := headIter.Next()
		if err != nil {
			break
		}
		if baseAncestry[c.Hash] {
			continue
		}
		hashes = append(hashes, c.Hash.String())
		if count++; count >= maxRangeCommits {
			break
		}
	}
	return hashes, nil
}

// ChangedFiles returns the staged file paths, or, when nothing is staged,
// all tracked files modified in the worktree. Paths are repo-relative and
// sorted for stable output.
func ChangedFiles(root string) ([]string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", root, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree of %s: %w", root, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("status of %s: %w", root, err)
	}

	var staged, unstaged []string
	for path, st := range status {
		if st.Staging != git.Unmodified && st.Staging != git.Untracked {
			staged = append(staged, path)
		} else if st.Worktree != git.Unmodified && st.Worktree != git.Untracked {
			unstaged = append(unstaged, path)
		}
	}

	files := staged
	if len(files) == 0 {
		files = unstaged
	}
	sort.Strings(files)
	return files, nil
}
