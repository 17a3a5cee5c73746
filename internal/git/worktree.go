package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/loomctl/loom/internal/ctxutil"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// WorktreeRunner defines the worktree operations the engine's effects need.
type WorktreeRunner interface {
	// Create creates a new worktree on a new branch, as a sibling directory
	// of the repository.
	Create(ctx context.Context, opts CreateOptions) (*WorktreeInfo, error)

	// List returns all worktrees registered with the repository.
	List(ctx context.Context, repoPath string) ([]WorktreeInfo, error)

	// Remove removes a worktree directory and its registration. If force is
	// true, removes even when the worktree is dirty.
	Remove(ctx context.Context, repoPath, wtPath string, force bool) error

	// IsDirty reports whether a worktree has uncommitted changes.
	IsDirty(ctx context.Context, wtPath string) (bool, error)
}

// CreateOptions contains options for creating a worktree.
type CreateOptions struct {
	RepoPath   string // Path to the main repository
	Name       string // Worktree name, used for the sibling dir suffix
	Branch     string // Branch to create
	BaseBranch string // Branch to create from (default: current HEAD)
}

// WorktreeInfo describes one worktree as reported by git.
type WorktreeInfo struct {
	Path       string // Absolute path to the worktree
	Branch     string // Branch name, empty for a detached HEAD
	HeadCommit string // HEAD commit SHA
	IsMain     bool   // True for the repository's primary worktree
}

// CLIRunner implements WorktreeRunner using the git CLI.
type CLIRunner struct{}

// Ensure CLIRunner implements WorktreeRunner interface.
var _ WorktreeRunner = (*CLIRunner)(nil)

// NewCLIRunner builds the default runner.
func NewCLIRunner() *CLIRunner {
	return &CLIRunner{}
}

// SiblingPath computes the conventional worktree location: a sibling of the
// repository named "<repo>-<name>".
func SiblingPath(repoPath, name string) string {
	parent := filepath.Dir(repoPath)
	return filepath.Join(parent, filepath.Base(repoPath)+"-"+name)
}

// Create creates a new worktree on a new branch.
func (r *CLIRunner) Create(ctx context.Context, opts CreateOptions) (*WorktreeInfo, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("worktree name cannot be empty: %w", loomerrors.ErrEmptyValue)
	}
	if opts.Branch == "" {
		opts.Branch = opts.Name
	}

	wtPath := SiblingPath(opts.RepoPath, opts.Name)
	args := []string{"worktree", "add", wtPath, "-b", opts.Branch}
	if opts.BaseBranch != "" {
		args = append(args, opts.BaseBranch)
	}
	if _, err := RunCommand(ctx, opts.RepoPath, args...); err != nil {
		return nil, err
	}

	head, err := RunCommand(ctx, wtPath, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	return &WorktreeInfo{Path: wtPath, Branch: opts.Branch, HeadCommit: head}, nil
}

// List returns all worktrees registered with the repository, the main
// worktree first, as git reports them.
func (r *CLIRunner) List(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	out, err := RunCommand(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

// Remove removes a worktree.
func (r *CLIRunner) Remove(ctx context.Context, repoPath, wtPath string, force bool) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	args := []string{"worktree", "remove", wtPath}
	if force {
		args = append(args, "--force")
	}
	if _, err := RunCommand(ctx, repoPath, args...); err != nil {
		return err
	}
	// Clear any stale registration left behind by a manual delete.
	_, _ = RunCommand(ctx, repoPath, "worktree", "prune")
	return nil
}

// IsDirty reports whether a worktree has uncommitted changes.
func (r *CLIRunner) IsDirty(ctx context.Context, wtPath string) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}
	out, err := RunCommand(ctx, wtPath, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// parseWorktreeList parses `git worktree list --porcelain` output. Entries
// are separated by blank lines; the first entry is the main worktree.
func parseWorktreeList(out string) []WorktreeInfo {
	var infos []WorktreeInfo
	var cur *WorktreeInfo

	flush := func() {
		if cur != nil {
			infos = append(infos, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur = &WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case cur == nil:
			// Attribute lines before any worktree header; ignore.
		case strings.HasPrefix(line, "HEAD "):
			cur.HeadCommit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	flush()

	if len(infos) > 0 {
		infos[0].IsMain = true
	}
	return infos
}
