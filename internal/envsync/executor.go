package envsync

import (
	"context"
	"fmt"

	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// CopyExecutor resolves CopyEnvFiles effects into EnvCopyFinished actions.
type CopyExecutor struct {
	copier *Copier
}

// NewCopyExecutor builds an executor over a copier.
func NewCopyExecutor(copier *Copier) *CopyExecutor {
	return &CopyExecutor{copier: copier}
}

// Execute implements the effect executor contract for env-sync effects.
// Per-file failures are part of the copy result, not executor errors; only
// an unreadable source worktree fails the effect outright.
func (e *CopyExecutor) Execute(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	if eff.Type != domain.EffectCopyEnvFiles {
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrNoExecutor, eff.Type)
	}
	p, err := domain.DecodeEffectPayload[domain.CopyEnvFilesEffectPayload](eff)
	if err != nil {
		return nil, err
	}
	result, err := e.copier.Copy(ctx, p.FromPath, p.ToPath, p.Patterns)
	if err != nil {
		return nil, err
	}
	return []domain.Action{
		domain.MustAction(domain.ActionEnvCopyFinished, domain.EnvCopyFinishedPayload{
			ProjectID: p.ProjectID,
			Result:    result,
		}),
	}, nil
}
