package reducer

import (
	"fmt"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// The services group owns DockerServices. Every transition is checked against
// the service lifecycle FSM; a user action that would skip a state is
// rejected, a stale completion is dropped as a no-op.

func (r *Registry) registerServices() {
	r.handlers[domain.ActionCreateService] = r.createService
	r.handlers[domain.ActionStartService] = r.startService
	r.handlers[domain.ActionStopService] = r.stopService
	r.handlers[domain.ActionRestartService] = r.restartService
	r.handlers[domain.ActionRemoveService] = r.removeService
	r.handlers[domain.ActionDiscoverServices] = r.discoverServices
	r.handlers[domain.ActionServiceTransitioned] = r.serviceTransitioned
}

func (r *Registry) createService(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.CreateServicePayload](action)
	if err != nil {
		return nil, err
	}
	if p.ServiceID == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "service id is required")
	}
	if _, ok := s.DockerServices[p.ServiceID]; ok {
		return nil, rejected(loomerrors.ErrServiceExists, "%s", p.ServiceID)
	}

	containerName := p.ContainerName
	if containerName == "" {
		containerName = "loom-" + p.ServiceID
	}
	port := p.Port
	if port == 0 {
		port = r.caps.DefaultPorts[p.Type]
	}

	s.DockerServices[p.ServiceID] = domain.DockerServiceRecord{
		ID:            p.ServiceID,
		Type:          p.Type,
		ContainerName: containerName,
		Status:        constants.ServiceStatusCreating,
		Port:          port,
		VolumePath:    p.VolumePath,
	}
	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectCreateContainer,
		"container:"+containerName,
		domain.CreateContainerPayload{
			ServiceID:     p.ServiceID,
			Type:          p.Type,
			ContainerName: containerName,
			RequestedPort: port,
			VolumePath:    p.VolumePath,
		},
	)
	return []domain.Effect{eff}, nil
}

func (r *Registry) startService(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	rec, err := r.serviceRef(s, action)
	if err != nil {
		return nil, err
	}
	if err := requireTransition(rec, constants.ServiceStatusStarting); err != nil {
		return nil, err
	}
	rec.Status = constants.ServiceStatusStarting
	rec.LastError = ""
	s.DockerServices[rec.ID] = *rec

	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectStartContainer,
		"container:"+rec.ContainerName,
		domain.StartContainerPayload{
			ServiceID:     rec.ID,
			Type:          rec.Type,
			ContainerName: rec.ContainerName,
			RequestedPort: rec.Port,
			VolumePath:    rec.VolumePath,
		},
	)
	return []domain.Effect{eff}, nil
}

func (r *Registry) stopService(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	rec, err := r.serviceRef(s, action)
	if err != nil {
		return nil, err
	}

	// Error → Stopped is the explicit recovery path; no container work is
	// requested, the record is simply reset.
	if rec.Status == constants.ServiceStatusError {
		rec.Status = constants.ServiceStatusStopped
		rec.LastError = ""
		s.DockerServices[rec.ID] = *rec
		return nil, nil
	}

	cancelling := rec.Status == constants.ServiceStatusStarting
	if err := requireTransition(rec, constants.ServiceStatusStopping); err != nil {
		return nil, err
	}
	rec.Status = constants.ServiceStatusStopping
	s.DockerServices[rec.ID] = *rec

	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectStopContainer,
		"container:"+rec.ContainerName,
		domain.StopContainerPayload{
			ServiceID:     rec.ID,
			ContainerName: rec.ContainerName,
		},
	)
	if cancelling {
		// Stop issued while the start effect is still in flight: the runner
		// cancels the start before running the stop.
		eff = eff.WithCancel()
	}
	return []domain.Effect{eff}, nil
}

func (r *Registry) restartService(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	rec, err := r.serviceRef(s, action)
	if err != nil {
		return nil, err
	}
	if err := requireTransition(rec, constants.ServiceStatusRestarting); err != nil {
		return nil, err
	}
	rec.Status = constants.ServiceStatusRestarting
	s.DockerServices[rec.ID] = *rec

	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectRestartContainer,
		"container:"+rec.ContainerName,
		domain.RestartContainerPayload{
			ServiceID:     rec.ID,
			ContainerName: rec.ContainerName,
			Port:          rec.Port,
		},
	)
	return []domain.Effect{eff}, nil
}

func (r *Registry) removeService(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	rec, err := r.serviceRef(s, action)
	if err != nil {
		return nil, err
	}
	if err := requireTransition(rec, constants.ServiceStatusRemoving); err != nil {
		return nil, err
	}
	rec.Status = constants.ServiceStatusRemoving
	s.DockerServices[rec.ID] = *rec

	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectRemoveContainer,
		"container:"+rec.ContainerName,
		domain.RemoveContainerPayload{
			ServiceID:     rec.ID,
			ContainerName: rec.ContainerName,
		},
	)
	return []domain.Effect{eff}, nil
}

// discoverServices carries no payload; it probes every record still in the
// Unknown state against the container runtime.
func (r *Registry) discoverServices(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	var ids, names []string
	for _, id := range s.ServiceIDs() {
		rec := s.DockerServices[id]
		if rec.Status != constants.ServiceStatusUnknown {
			continue
		}
		ids = append(ids, id)
		names = append(names, rec.ContainerName)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectProbeContainers,
		"container-probe",
		domain.ProbeContainersPayload{ServiceIDs: ids, ContainerNames: names},
	)
	return []domain.Effect{eff}, nil
}

// serviceTransitioned commits the result of a container effect. The payload
// carries the status the effect was issued under; if the record has moved on
// since (a cancellation won the race), the completion is stale and dropped.
func (r *Registry) serviceTransitioned(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.ServiceTransitionedPayload](action)
	if err != nil {
		return nil, err
	}
	rec, ok := s.DockerServices[p.ServiceID]
	if !ok {
		return nil, nil
	}
	if rec.Status != p.From {
		return nil, nil
	}

	if p.Error != "" {
		if !domain.IsValidServiceTransition(rec.Status, constants.ServiceStatusError) {
			return nil, nil
		}
		rec.Status = constants.ServiceStatusError
		rec.LastError = p.Error
		s.DockerServices[rec.ID] = rec
		return []domain.Effect{
			notifyEffect(action, 0, constants.NotificationError, "service %s failed: %s", rec.ID, p.Error),
		}, nil
	}

	if !domain.IsValidServiceTransition(rec.Status, p.To) {
		return nil, fmt.Errorf("%w: service %s: %s -> %s",
			loomerrors.ErrInvalidTransition, rec.ID, rec.Status, p.To)
	}
	rec.Status = p.To
	rec.LastError = ""
	if p.Port != 0 {
		rec.Port = p.Port
	}
	if p.ConnectionString != "" {
		rec.ConnectionString = p.ConnectionString
	}
	s.DockerServices[rec.ID] = rec

	if p.To == constants.ServiceStatusRunning {
		return []domain.Effect{
			notifyEffect(action, 0, constants.NotificationSuccess, "service %s running on port %d", rec.ID, rec.Port),
		}, nil
	}
	return nil, nil
}

// serviceRef decodes a ServiceRefPayload and fetches the record.
func (r *Registry) serviceRef(s *domain.StateTree, action domain.Action) (*domain.DockerServiceRecord, error) {
	p, err := domain.DecodePayload[domain.ServiceRefPayload](action)
	if err != nil {
		return nil, err
	}
	rec, ok := s.DockerServices[p.ServiceID]
	if !ok {
		return nil, rejected(loomerrors.ErrServiceNotFound, "%s", p.ServiceID)
	}
	return &rec, nil
}

// requireTransition rejects a user request whose target state is not
// reachable from the record's current state. In-progress states produce the
// busy-resource rejection so the caller can retry once the effect completes.
func requireTransition(rec *domain.DockerServiceRecord, to constants.ServiceStatus) error {
	if domain.IsValidServiceTransition(rec.Status, to) {
		return nil
	}
	if domain.IsServiceInProgress(rec.Status) {
		return rejected(loomerrors.ErrResourceBusy, "service %s is %s", rec.ID, rec.Status)
	}
	return rejected(loomerrors.ErrInvalidTransition, "service %s: %s -> %s", rec.ID, rec.Status, to)
}
