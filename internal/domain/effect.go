package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/loomctl/loom/internal/constants"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// EffectType is the tag of the closed Effect union.
type EffectType string

// Effect type constants.
const (
	// Container runtime.
	EffectCreateContainer  EffectType = "create_container"
	EffectStartContainer   EffectType = "start_container"
	EffectStopContainer    EffectType = "stop_container"
	EffectRestartContainer EffectType = "restart_container"
	EffectRemoveContainer  EffectType = "remove_container"
	EffectProbeContainers  EffectType = "probe_containers"

	// Git worktrees.
	EffectCreateWorktree    EffectType = "create_worktree"
	EffectRemoveWorktreeDir EffectType = "remove_worktree_dir"

	// MCP server.
	EffectSpawnMcpServer    EffectType = "spawn_mcp_server"
	EffectShutdownMcpServer EffectType = "shutdown_mcp_server"

	// Env sync.
	EffectCopyEnvFiles EffectType = "copy_env_files"

	// Cross-domain notification request. Reducers never write another
	// domain's slice directly; they emit this effect and the completion
	// re-enters as an AddNotification action.
	EffectEmitNotification EffectType = "emit_notification"
)

// Effect is an immutable, serializable request to perform an asynchronous
// side effect against an external resource. Like Actions, Effects carry only
// serializable payloads so the in-flight set can be dumped for diagnostics.
type Effect struct {
	// ID is derived deterministically from the originating action
	// ("<action_id>/<n>"), so identical (state, action) inputs produce
	// identical effects.
	ID string `json:"id"`

	// Type is the union tag.
	Type EffectType `json:"type"`

	// ResourceKey identifies the external resource the effect touches (one
	// container name, one worktree path, one server instance). The runner
	// refuses to start a second effect for a key that already has one in
	// flight.
	ResourceKey string `json:"resource_key"`

	// Cancels marks an opposing transition: when set and an effect for the
	// same resource key is in flight, the runner requests best-effort
	// cancellation of the in-flight operation before executing this one.
	Cancels bool `json:"cancels,omitempty"`

	// Payload is the type-specific body, decoded by the executor.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEffect builds an Effect with the payload marshaled. It panics on
// encoding failure; effect payload types contain only scalars and slices.
func NewEffect(id string, t EffectType, resourceKey string, payload any) Effect {
	e := Effect{ID: id, Type: t, ResourceKey: resourceKey}
	if payload == nil {
		return e
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("encode %s payload: %v", t, err))
	}
	e.Payload = raw
	return e
}

// WithCancel returns a copy of the effect with the Cancels flag set.
func (e Effect) WithCancel() Effect {
	e.Cancels = true
	return e
}

// DecodeEffectPayload strictly decodes an effect payload into T.
func DecodeEffectPayload[T any](e Effect) (T, error) {
	var out T
	if len(e.Payload) == 0 {
		return out, fmt.Errorf("%w: %s requires a payload", loomerrors.ErrInvalidPayload, e.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(e.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %s: %s", loomerrors.ErrInvalidPayload, e.Type, err)
	}
	return out, nil
}

// --- Container payloads ---

// CreateContainerPayload creates the container for a new service record.
type CreateContainerPayload struct {
	ServiceID     string                `json:"service_id"`
	Type          constants.ServiceType `json:"type"`
	ContainerName string                `json:"container_name"`
	RequestedPort int                   `json:"requested_port"`
	VolumePath    string                `json:"volume_path,omitempty"`
}

// StartContainerPayload starts a stopped container. The executor probes
// upward from RequestedPort for a free host port before starting; the probed
// port is what the completion action commits, never the requested one when
// occupied.
type StartContainerPayload struct {
	ServiceID     string                `json:"service_id"`
	Type          constants.ServiceType `json:"type"`
	ContainerName string                `json:"container_name"`
	RequestedPort int                   `json:"requested_port"`
	VolumePath    string                `json:"volume_path,omitempty"`
}

// StopContainerPayload stops a running container.
type StopContainerPayload struct {
	ServiceID     string `json:"service_id"`
	ContainerName string `json:"container_name"`
}

// RestartContainerPayload restarts a running container on its current port.
type RestartContainerPayload struct {
	ServiceID     string `json:"service_id"`
	ContainerName string `json:"container_name"`
	Port          int    `json:"port"`
}

// RemoveContainerPayload removes a stopped container.
type RemoveContainerPayload struct {
	ServiceID     string `json:"service_id"`
	ContainerName string `json:"container_name"`
}

// ProbeContainersPayload resolves Unknown records by inspecting the runtime.
type ProbeContainersPayload struct {
	ServiceIDs     []string `json:"service_ids"`
	ContainerNames []string `json:"container_names"`
}

// --- Git payloads ---

// CreateWorktreePayload creates a new worktree on a new branch.
type CreateWorktreePayload struct {
	ProjectID  string `json:"project_id"`
	RepoPath   string `json:"repo_path"`
	Name       string `json:"name"`
	Branch     string `json:"branch"`
	BaseBranch string `json:"base_branch,omitempty"`
}

// RemoveWorktreeDirPayload removes a worktree directory and its registration.
type RemoveWorktreeDirPayload struct {
	ProjectID  string `json:"project_id"`
	WorktreeID string `json:"worktree_id"`
	RepoPath   string `json:"repo_path"`
	Path       string `json:"path"`
	Force      bool   `json:"force,omitempty"`
}

// --- MCP payloads ---

// SpawnMcpServerPayload starts the MCP server for a worktree.
type SpawnMcpServerPayload struct {
	WorktreeID   string `json:"worktree_id"`
	WorktreePath string `json:"worktree_path"`
}

// ShutdownMcpServerPayload stops the MCP server for a worktree.
type ShutdownMcpServerPayload struct {
	WorktreeID string `json:"worktree_id"`
}

// --- Env sync payloads ---

// CopyEnvFilesEffectPayload copies pattern-matched files between worktrees.
type CopyEnvFilesEffectPayload struct {
	ProjectID string   `json:"project_id"`
	FromPath  string   `json:"from_path"`
	ToPath    string   `json:"to_path"`
	Patterns  []string `json:"patterns"`
}

// --- Cross-domain payloads ---

// EmitNotificationPayload requests a notification from another domain's reducer.
type EmitNotificationPayload struct {
	Message string                      `json:"message"`
	Level   constants.NotificationLevel `json:"level"`
}
