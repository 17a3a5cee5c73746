package mcp

import (
	"context"
	"fmt"

	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// ServerExecutor resolves MCP server effects into their completion actions.
type ServerExecutor struct {
	controller *Controller
}

// NewServerExecutor builds an executor over a controller.
func NewServerExecutor(controller *Controller) *ServerExecutor {
	return &ServerExecutor{controller: controller}
}

// Execute implements the effect executor contract for MCP effects.
func (e *ServerExecutor) Execute(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	switch eff.Type {
	case domain.EffectSpawnMcpServer:
		return e.spawn(ctx, eff)
	case domain.EffectShutdownMcpServer:
		return e.shutdown(ctx, eff)
	default:
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrNoExecutor, eff.Type)
	}
}

func (e *ServerExecutor) spawn(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.SpawnMcpServerPayload](eff)
	if err != nil {
		return nil, err
	}
	info, err := e.controller.Spawn(ctx, p.WorktreeID, p.WorktreePath)
	if err != nil {
		// A server that refuses to start is a domain outcome, not an
		// executor failure: the completion carries the error so the
		// record lands in the Error state.
		return []domain.Action{
			domain.MustAction(domain.ActionMcpServerStarted, domain.McpServerStartedPayload{
				WorktreeID: p.WorktreeID,
				Error:      err.Error(),
			}),
		}, nil
	}
	return []domain.Action{
		domain.MustAction(domain.ActionMcpServerStarted, domain.McpServerStartedPayload{
			WorktreeID: info.WorktreeID,
			Port:       info.Port,
			ConfigPath: info.ConfigPath,
			Tools:      info.Tools,
		}),
	}, nil
}

func (e *ServerExecutor) shutdown(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.ShutdownMcpServerPayload](eff)
	if err != nil {
		return nil, err
	}
	if err := e.controller.Shutdown(ctx, p.WorktreeID); err != nil {
		return nil, err
	}
	return []domain.Action{
		domain.MustAction(domain.ActionMcpServerStopped, domain.McpServerStoppedPayload{
			WorktreeID: p.WorktreeID,
		}),
	}, nil
}
