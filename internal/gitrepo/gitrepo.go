// Package gitrepo answers two questions about the enclosing git repository:
// where is its root, and what revision is checked out. Nothing is cached;
// every call re-discovers, since the working directory may change between
// calls.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/fclairamb/expkit/internal/apperrors"
)

// RootPath returns the absolute path to the root of the git repository
// enclosing the current working directory. It returns
// apperrors.ErrRepoNotFound when no repository is found walking up to the
// filesystem root.
func RootPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return RootPathFrom(cwd)
}

// RootPathFrom returns the absolute path to the root of the git repository
// enclosing dir.
func RootPathFrom(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w starting from %s", apperrors.ErrRepoNotFound, dir)
		}
		return "", fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("repository worktree: %w", err)
	}

	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return "", fmt.Errorf("absolute root path: %w", err)
	}
	return root, nil
}

// CommitHash returns the full hash of the current HEAD commit, exactly as
// reported by `git rev-parse HEAD` run in the current working directory.
func CommitHash(ctx context.Context) (string, error) {
	return CommitHashIn(ctx, "")
}

// CommitHashIn returns the HEAD commit hash for the repository containing
// dir. A missing git binary and a non-zero exit both surface as a *GitError
// wrapping the process error.
func CommitHashIn(ctx context.Context, dir string) (string, error) {
	args := []string{"rev-parse", "HEAD"}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	// stderr stays detached: failure detail travels in the wrapped error.
	out, err := cmd.Output()
	if err != nil {
		return "", apperrors.NewGitError(args, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// IsDirty reports whether the worktree at dir has uncommitted changes.
func IsDirty(dir string) (bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return false, fmt.Errorf("%w starting from %s", apperrors.ErrRepoNotFound, dir)
		}
		return false, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("repository worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}
	return !status.IsClean(), nil
}

// RemoteURL returns the fetch URL of the origin remote for the repository
// containing dir.
func RemoteURL(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w starting from %s", apperrors.ErrRepoNotFound, dir)
		}
		return "", fmt.Errorf("open repository: %w", err)
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return "", apperrors.ErrRemoteNotConfigured
		}
		return "", fmt.Errorf("remote config: %w", err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", apperrors.ErrRemoteNotConfigured
	}
	return urls[0], nil
}
