package docker

import (
	"context"
	"fmt"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// ContainerExecutor resolves the container effects into ServiceTransitioned
// completion actions. Domain failures (a container that refuses to start)
// come back as completions carrying the error so the record lands in the
// Error state; only unknown effect types error out of Execute itself.
type ContainerExecutor struct {
	client *Client
}

// NewContainerExecutor builds an executor over a docker client.
func NewContainerExecutor(client *Client) *ContainerExecutor {
	return &ContainerExecutor{client: client}
}

// Execute implements the effect executor contract for all container effects.
func (e *ContainerExecutor) Execute(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	switch eff.Type {
	case domain.EffectCreateContainer:
		return e.create(ctx, eff)
	case domain.EffectStartContainer:
		return e.start(ctx, eff)
	case domain.EffectStopContainer:
		return e.stop(ctx, eff)
	case domain.EffectRestartContainer:
		return e.restart(ctx, eff)
	case domain.EffectRemoveContainer:
		return e.remove(ctx, eff)
	case domain.EffectProbeContainers:
		return e.probe(ctx, eff)
	default:
		return nil, fmt.Errorf("%w: %s", loomerrors.ErrNoExecutor, eff.Type)
	}
}

func (e *ContainerExecutor) create(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.CreateContainerPayload](eff)
	if err != nil {
		return nil, err
	}
	if err := e.client.Create(ctx, p.Type, p.ContainerName, p.RequestedPort, p.VolumePath); err != nil {
		return transitioned(p.ServiceID, constants.ServiceStatusCreating, "", 0, "", err), nil
	}
	return transitioned(p.ServiceID, constants.ServiceStatusCreating, constants.ServiceStatusStopped,
		p.RequestedPort, "", nil), nil
}

func (e *ContainerExecutor) start(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.StartContainerPayload](eff)
	if err != nil {
		return nil, err
	}
	port, err := e.client.Start(ctx, p.Type, p.ContainerName, p.RequestedPort, p.VolumePath)
	if err != nil {
		return transitioned(p.ServiceID, constants.ServiceStatusStarting, "", 0, "", err), nil
	}
	return transitioned(p.ServiceID, constants.ServiceStatusStarting, constants.ServiceStatusRunning,
		port, ConnectionString(p.Type, port), nil), nil
}

func (e *ContainerExecutor) stop(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.StopContainerPayload](eff)
	if err != nil {
		return nil, err
	}
	if err := e.client.Stop(ctx, p.ContainerName); err != nil {
		return transitioned(p.ServiceID, constants.ServiceStatusStopping, "", 0, "", err), nil
	}
	return transitioned(p.ServiceID, constants.ServiceStatusStopping, constants.ServiceStatusStopped,
		0, "", nil), nil
}

func (e *ContainerExecutor) restart(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.RestartContainerPayload](eff)
	if err != nil {
		return nil, err
	}
	if err := e.client.Restart(ctx, p.ContainerName); err != nil {
		return transitioned(p.ServiceID, constants.ServiceStatusRestarting, "", 0, "", err), nil
	}
	return transitioned(p.ServiceID, constants.ServiceStatusRestarting, constants.ServiceStatusRunning,
		p.Port, "", nil), nil
}

func (e *ContainerExecutor) remove(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.RemoveContainerPayload](eff)
	if err != nil {
		return nil, err
	}
	if err := e.client.Remove(ctx, p.ContainerName); err != nil {
		return transitioned(p.ServiceID, constants.ServiceStatusRemoving, "", 0, "", err), nil
	}
	return transitioned(p.ServiceID, constants.ServiceStatusRemoving, constants.ServiceStatusNotFound,
		0, "", nil), nil
}

// probe resolves Unknown records by inspecting each container. Inspection
// errors mark individual records, never abort the batch.
func (e *ContainerExecutor) probe(ctx context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.ProbeContainersPayload](eff)
	if err != nil {
		return nil, err
	}
	actions := make([]domain.Action, 0, len(p.ServiceIDs))
	for i, id := range p.ServiceIDs {
		if i >= len(p.ContainerNames) {
			break
		}
		status, serr := e.client.Status(ctx, p.ContainerNames[i])
		if serr != nil {
			actions = append(actions, transitioned(id, constants.ServiceStatusUnknown, "", 0, "", serr)...)
			continue
		}
		if status == constants.ServiceStatusUnknown {
			// Inspect answered but with a state we don't track; leave the
			// record for the next discovery pass.
			continue
		}
		actions = append(actions, transitioned(id, constants.ServiceStatusUnknown, status, 0, "", nil)...)
	}
	return actions, nil
}

// transitioned builds the single completion action for a container effect.
func transitioned(serviceID string, from, to constants.ServiceStatus, port int, conn string, err error) []domain.Action {
	p := domain.ServiceTransitionedPayload{
		ServiceID:        serviceID,
		From:             from,
		To:               to,
		Port:             port,
		ConnectionString: conn,
	}
	if err != nil {
		p.Error = err.Error()
	}
	return []domain.Action{domain.MustAction(domain.ActionServiceTransitioned, p)}
}
