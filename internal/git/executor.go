package git

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// WorktreeExecutor resolves worktree effects into their completion actions.
type WorktreeExecutor struct {
	runner WorktreeRunner
}

// NewWorktreeExecutor builds an executor over a worktree runner.
func NewWorktreeExecutor(runner WorktreeRunner) *WorktreeExecutor {
	return &WorktreeExecutor{runner: runner}
}

// Execute implements the effect executor contract for worktree effects.
func (e *WorktreeExecutor) Execute(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	switch eff.Type {
	case domain.EffectCreateWorktree:
		return e.create(ctx, eff)
	case domain.EffectRemoveWorktreeDir:
		return e.remove(ctx, eff)
	default:
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrNoExecutor, eff.Type)
	}
}

func (e *WorktreeExecutor) create(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.CreateWorktreePayload](eff)
	if err != nil {
		return nil, err
	}
	info, err := e.runner.Create(ctx, CreateOptions{
		RepoPath:   p.RepoPath,
		Name:       p.Name,
		Branch:     p.Branch,
		BaseBranch: p.BaseBranch,
	})
	if err != nil {
		return nil, err
	}
	return []domain.Action{
		domain.MustAction(domain.ActionWorktreeCreated, domain.WorktreeCreatedPayload{
			ProjectID:  p.ProjectID,
			WorktreeID: worktreeID(info.Path),
			Path:       info.Path,
			Branch:     info.Branch,
		}),
	}, nil
}

func (e *WorktreeExecutor) remove(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.RemoveWorktreeDirPayload](eff)
	if err != nil {
		return nil, err
	}
	if err := e.runner.Remove(ctx, p.RepoPath, p.Path, p.Force); err != nil {
		return nil, err
	}
	return []domain.Action{
		domain.MustAction(domain.ActionWorktreeRemoved, domain.WorktreeRemovedPayload{
			ProjectID:  p.ProjectID,
			WorktreeID: p.WorktreeID,
		}),
	}, nil
}

// worktreeID derives the same path-stable id the reducers use, so a worktree
// registered by completion matches one registered directly.
func worktreeID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "wt-" + hex.EncodeToString(sum[:6])
}
