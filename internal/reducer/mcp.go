package reducer

import (
	"fmt"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// The MCP group owns the McpServer record. It reads the project cursors as a
// derived view to resolve "the active worktree" but never writes them.

func (r *Registry) registerMcp() {
	r.handlers[domain.ActionStartMcpServer] = r.startMcpServer
	r.handlers[domain.ActionStopMcpServer] = r.stopMcpServer
	r.handlers[domain.ActionMcpServerStarted] = r.mcpServerStarted
	r.handlers[domain.ActionMcpServerStopped] = r.mcpServerStopped
	r.handlers[domain.ActionAppendMcpLog] = r.appendMcpLog
}

// startMcpServer carries no payload; the server is always started for the
// active worktree.
func (r *Registry) startMcpServer(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	wt := s.ActiveWorktree()
	if wt == nil {
		return nil, rejected(loomerrors.ErrNoActiveWorktree, "an open project is required")
	}

	var effects []domain.Effect
	if s.McpServer != nil {
		if s.McpServer.WorktreeID == wt.ID {
			if !domain.IsValidMcpTransition(s.McpServer.Status, constants.McpStatusStarting) {
				if s.McpServer.Status == constants.McpStatusStarting {
					return nil, rejected(loomerrors.ErrResourceBusy, "mcp server is already starting")
				}
				return nil, rejected(loomerrors.ErrInvalidTransition, "mcp server: %s -> %s",
					s.McpServer.Status, constants.McpStatusStarting)
			}
		} else {
			// One server instance at a time: the record for the previously
			// active worktree is replaced and its process shut down.
			effects = append(effects, domain.NewEffect(
				effectID(action, len(effects)),
				domain.EffectShutdownMcpServer,
				"mcp:"+s.McpServer.WorktreeID,
				domain.ShutdownMcpServerPayload{WorktreeID: s.McpServer.WorktreeID},
			))
		}
	}

	s.McpServer = &domain.McpServerRecord{
		WorktreeID: wt.ID,
		Status:     constants.McpStatusStarting,
		LogEntries: []domain.McpLogEntry{},
	}
	effects = append(effects, domain.NewEffect(
		effectID(action, len(effects)),
		domain.EffectSpawnMcpServer,
		"mcp:"+wt.ID,
		domain.SpawnMcpServerPayload{WorktreeID: wt.ID, WorktreePath: wt.Path},
	))
	return effects, nil
}

// stopMcpServer carries no payload. The FSM has no transitional stop state:
// the record goes to Stopped immediately and the shutdown effect kills the
// process; its completion destroys the record.
func (r *Registry) stopMcpServer(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	if s.McpServer == nil {
		return nil, rejected(loomerrors.ErrInvalidTransition, "no mcp server record")
	}
	if !domain.IsValidMcpTransition(s.McpServer.Status, constants.McpStatusStopped) {
		return nil, rejected(loomerrors.ErrInvalidTransition, "mcp server: %s -> %s",
			s.McpServer.Status, constants.McpStatusStopped)
	}
	s.McpServer.Status = constants.McpStatusStopped
	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectShutdownMcpServer,
		"mcp:"+s.McpServer.WorktreeID,
		domain.ShutdownMcpServerPayload{WorktreeID: s.McpServer.WorktreeID},
	)
	return []domain.Effect{eff}, nil
}

func (r *Registry) mcpServerStarted(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.McpServerStartedPayload](action)
	if err != nil {
		return nil, err
	}
	// Stale completion: the record was destroyed or replaced, or a stop
	// already won the race.
	if s.McpServer == nil || s.McpServer.WorktreeID != p.WorktreeID {
		return nil, nil
	}
	if s.McpServer.Status != constants.McpStatusStarting {
		return nil, nil
	}
	if p.Error != "" {
		s.McpServer.Status = constants.McpStatusError
		s.McpServer.LastError = p.Error
		return []domain.Effect{
			notifyEffect(action, 0, constants.NotificationError, "mcp server failed to start: %s", p.Error),
		}, nil
	}
	s.McpServer.Status = constants.McpStatusRunning
	s.McpServer.Port = p.Port
	s.McpServer.ConfigPath = p.ConfigPath
	s.McpServer.AvailableTools = append([]string(nil), p.Tools...)
	s.McpServer.LastError = ""
	return []domain.Effect{
		notifyEffect(action, 0, constants.NotificationSuccess, "mcp server listening on port %d", p.Port),
	}, nil
}

func (r *Registry) mcpServerStopped(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.McpServerStoppedPayload](action)
	if err != nil {
		return nil, err
	}
	if s.McpServer == nil || s.McpServer.WorktreeID != p.WorktreeID {
		return nil, nil
	}
	// Process confirmed dead, whether we asked for it or it exited on its
	// own; drop the record either way.
	s.McpServer = nil
	return nil, nil
}

func (r *Registry) appendMcpLog(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.AppendMcpLogPayload](action)
	if err != nil {
		return nil, err
	}
	if s.McpServer == nil || s.McpServer.WorktreeID != p.WorktreeID {
		return nil, nil
	}

	payload := p.Payload
	if len(payload) > r.caps.McpPayloadMaxBytes {
		payload = fmt.Sprintf("[payload truncated: %d bytes]", len(p.Payload))
	}
	entries := append(s.McpServer.LogEntries, domain.McpLogEntry{
		Timestamp: action.Time,
		Direction: p.Direction,
		Method:    p.Method,
		ToolName:  p.ToolName,
		Payload:   payload,
	})
	// Bounded ring: drop oldest once over cap.
	if len(entries) > r.caps.McpLogCap {
		entries = entries[len(entries)-r.caps.McpLogCap:]
	}
	s.McpServer.LogEntries = entries
	return nil, nil
}
