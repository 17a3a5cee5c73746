package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loomctl/loom/internal/constants"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// ActionType is the tag of the closed Action union. Unknown tags are a
// validation error, never silently ignored.
type ActionType string

// Action type constants, grouped by owning reducer domain.
const (
	// Projects / worktrees.
	ActionOpenProject          ActionType = "open_project"
	ActionCloseProject         ActionType = "close_project"
	ActionSelectProject        ActionType = "select_project"
	ActionSelectWorktree       ActionType = "select_worktree"
	ActionAddWorktree          ActionType = "add_worktree"
	ActionAddWorktreeNewBranch ActionType = "add_worktree_new_branch"
	ActionRemoveWorktree       ActionType = "remove_worktree"
	ActionWorktreeCreated      ActionType = "worktree_created"
	ActionWorktreeRemoved      ActionType = "worktree_removed"
	ActionSetWorktreeModified  ActionType = "set_worktree_modified"

	// Docker services.
	ActionCreateService      ActionType = "create_service"
	ActionStartService       ActionType = "start_service"
	ActionStopService        ActionType = "stop_service"
	ActionRestartService     ActionType = "restart_service"
	ActionRemoveService      ActionType = "remove_service"
	ActionDiscoverServices   ActionType = "discover_services"
	ActionServiceTransitioned ActionType = "service_transitioned"

	// MCP server.
	ActionStartMcpServer   ActionType = "start_mcp_server"
	ActionStopMcpServer    ActionType = "stop_mcp_server"
	ActionMcpServerStarted ActionType = "mcp_server_started"
	ActionMcpServerStopped ActionType = "mcp_server_stopped"
	ActionAppendMcpLog     ActionType = "append_mcp_log"

	// Notifications.
	ActionAddNotification      ActionType = "add_notification"
	ActionMarkNotificationRead ActionType = "mark_notification_read"
	ActionDismissNotification  ActionType = "dismiss_notification"
	ActionClearNotifications   ActionType = "clear_notifications"

	// Env sync.
	ActionAddEnvPattern    ActionType = "add_env_pattern"
	ActionRemoveEnvPattern ActionType = "remove_env_pattern"
	ActionSetAutoCopy      ActionType = "set_auto_copy"
	ActionCopyEnvFiles     ActionType = "copy_env_files"
	ActionEnvCopyFinished  ActionType = "env_copy_finished"

	// Agent profiles.
	ActionSetAgentRulesEnabled ActionType = "set_agent_rules_enabled"
	ActionAddAgentProfile      ActionType = "add_agent_profile"
	ActionUpdateAgentProfile   ActionType = "update_agent_profile"
	ActionDeleteAgentProfile   ActionType = "delete_agent_profile"
	ActionSetActiveProfile     ActionType = "set_active_profile"

	// Engine-internal.
	ActionEffectFailed ActionType = "effect_failed"
)

// Action is an immutable, serializable request to change state. Every variant
// carries only serializable scalar/structured payloads (no handles, no
// callbacks) so the entire pending-action set can be serialized for
// diagnostics and replay.
//
// Example JSON representation:
//
//	{"id": "a1b2c3", "type": "open_project", "time": "2026-01-02T10:00:00Z",
//	 "payload": {"path": "/abs/path"}}
type Action struct {
	// ID is the unique identifier, assigned at submission.
	ID string `json:"id"`

	// Type is the union tag.
	Type ActionType `json:"type"`

	// Time is the submission timestamp, stamped by the dispatcher. Reducers
	// read timestamps from here so that replaying a recorded action sequence
	// reproduces the same state byte-for-byte.
	Time time.Time `json:"time"`

	// Payload is the type-specific body, decoded by the owning reducer.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewAction builds an Action with the payload marshaled. ID and Time are left
// for the dispatcher to stamp at submission.
func NewAction(t ActionType, payload any) (Action, error) {
	a := Action{Type: t}
	if payload == nil {
		return a, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Action{}, loomerrors.Wrapf(err, "failed to encode %s payload", t)
	}
	a.Payload = raw
	return a, nil
}

// MustAction is NewAction for payloads that are known-marshalable structs.
// It panics on encoding failure; the payload types in this package contain
// only scalars, slices, and maps, which cannot fail to marshal.
func MustAction(t ActionType, payload any) Action {
	a, err := NewAction(t, payload)
	if err != nil {
		panic(err)
	}
	return a
}

// DecodePayload strictly decodes an action payload into T. Unknown fields and
// malformed JSON are structural validation failures (ErrInvalidPayload).
func DecodePayload[T any](a Action) (T, error) {
	var out T
	if len(a.Payload) == 0 {
		return out, fmt.Errorf("%w: %s requires a payload", loomerrors.ErrInvalidPayload, a.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(a.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %s: %s", loomerrors.ErrInvalidPayload, a.Type, err)
	}
	return out, nil
}

// knownActionTypes is the closed set of valid tags.
//
//nolint:gochecknoglobals // Read-only lookup table
var knownActionTypes = map[ActionType]bool{
	ActionOpenProject: true, ActionCloseProject: true,
	ActionSelectProject: true, ActionSelectWorktree: true,
	ActionAddWorktree: true, ActionAddWorktreeNewBranch: true,
	ActionRemoveWorktree: true, ActionWorktreeCreated: true,
	ActionWorktreeRemoved: true, ActionSetWorktreeModified: true,
	ActionCreateService: true, ActionStartService: true,
	ActionStopService: true, ActionRestartService: true,
	ActionRemoveService: true, ActionDiscoverServices: true,
	ActionServiceTransitioned: true,
	ActionStartMcpServer:     true, ActionStopMcpServer: true,
	ActionMcpServerStarted: true, ActionMcpServerStopped: true,
	ActionAppendMcpLog:    true,
	ActionAddNotification: true, ActionMarkNotificationRead: true,
	ActionDismissNotification: true, ActionClearNotifications: true,
	ActionAddEnvPattern: true, ActionRemoveEnvPattern: true,
	ActionSetAutoCopy: true, ActionCopyEnvFiles: true,
	ActionEnvCopyFinished:      true,
	ActionSetAgentRulesEnabled: true, ActionAddAgentProfile: true,
	ActionUpdateAgentProfile: true, ActionDeleteAgentProfile: true,
	ActionSetActiveProfile: true,
	ActionEffectFailed:     true,
}

// IsKnownActionType reports whether t is part of the closed union.
func IsKnownActionType(t ActionType) bool {
	return knownActionTypes[t]
}

// --- Project / worktree payloads ---

// OpenProjectPayload opens the repository at Path as a project tab. Opening a
// path already open is a no-op that switches focus rather than duplicating.
type OpenProjectPayload struct {
	Path string `json:"path"`
}

// CloseProjectPayload closes the project and releases its resources.
type CloseProjectPayload struct {
	ProjectID string `json:"project_id"`
}

// SelectProjectPayload moves the active-project cursor.
type SelectProjectPayload struct {
	Index int `json:"index"`
}

// SelectWorktreePayload moves the active-worktree cursor within the active project.
type SelectWorktreePayload struct {
	Index int `json:"index"`
}

// AddWorktreePayload registers an existing worktree directory with a project.
type AddWorktreePayload struct {
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
	Branch    string `json:"branch"`
}

// AddWorktreeNewBranchPayload creates a new worktree on a new branch.
type AddWorktreeNewBranchPayload struct {
	ProjectID  string `json:"project_id"`
	Name       string `json:"name"`
	BaseBranch string `json:"base_branch,omitempty"`
}

// RemoveWorktreePayload removes a worktree from a project.
type RemoveWorktreePayload struct {
	ProjectID  string `json:"project_id"`
	WorktreeID string `json:"worktree_id"`
	Force      bool   `json:"force,omitempty"`
}

// WorktreeCreatedPayload is the completion of a CreateWorktree effect.
type WorktreeCreatedPayload struct {
	ProjectID  string `json:"project_id"`
	WorktreeID string `json:"worktree_id"`
	Path       string `json:"path"`
	Branch     string `json:"branch"`
}

// WorktreeRemovedPayload is the completion of a RemoveWorktreeDir effect.
type WorktreeRemovedPayload struct {
	ProjectID  string `json:"project_id"`
	WorktreeID string `json:"worktree_id"`
}

// SetWorktreeModifiedPayload flips a worktree's dirty flag.
type SetWorktreeModifiedPayload struct {
	ProjectID  string `json:"project_id"`
	WorktreeID string `json:"worktree_id"`
	Modified   bool   `json:"modified"`
}

// --- Docker service payloads ---

// CreateServicePayload creates a service record and requests container creation.
type CreateServicePayload struct {
	ServiceID     string                `json:"service_id"`
	Type          constants.ServiceType `json:"type"`
	ContainerName string                `json:"container_name,omitempty"`
	Port          int                   `json:"port,omitempty"`
	VolumePath    string                `json:"volume_path,omitempty"`
}

// ServiceRefPayload targets an existing service record.
type ServiceRefPayload struct {
	ServiceID string `json:"service_id"`
}

// ServiceTransitionedPayload is the completion of a container effect. From is
// the in-progress state the effect was issued under; if the record has since
// moved elsewhere (cancellation raced the completion), the reducer applies it
// as a no-op rather than an error.
type ServiceTransitionedPayload struct {
	ServiceID        string                  `json:"service_id"`
	From             constants.ServiceStatus `json:"from"`
	To               constants.ServiceStatus `json:"to"`
	Port             int                     `json:"port,omitempty"`
	ConnectionString string                  `json:"connection_string,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// --- MCP payloads ---

// McpServerStartedPayload is the completion of a SpawnMcpServer effect. A
// non-empty Error means the spawn failed; the reducer moves the record to the
// Error state instead of Running.
type McpServerStartedPayload struct {
	WorktreeID string   `json:"worktree_id"`
	Port       int      `json:"port"`
	ConfigPath string   `json:"config_path"`
	Tools      []string `json:"tools"`
	Error      string   `json:"error,omitempty"`
}

// McpServerStoppedPayload is the completion of a ShutdownMcpServer effect.
type McpServerStoppedPayload struct {
	WorktreeID string `json:"worktree_id"`
}

// AppendMcpLogPayload records one tool call or result against the active
// server's bounded log ring.
type AppendMcpLogPayload struct {
	WorktreeID string                    `json:"worktree_id"`
	Direction  constants.McpLogDirection `json:"direction"`
	Method     string                    `json:"method"`
	ToolName   string                    `json:"tool_name,omitempty"`
	Payload    string                    `json:"payload,omitempty"`
}

// --- Notification payloads ---

// AddNotificationPayload appends a notification to the feed.
type AddNotificationPayload struct {
	Message string                      `json:"message"`
	Level   constants.NotificationLevel `json:"level"`
}

// NotificationRefPayload targets an existing notification.
type NotificationRefPayload struct {
	NotificationID string `json:"notification_id"`
}

// --- Env sync payloads ---

// EnvPatternPayload adds or removes a tracked glob pattern.
type EnvPatternPayload struct {
	ProjectID string `json:"project_id"`
	Pattern   string `json:"pattern"`
}

// SetAutoCopyPayload configures automatic env-file copying for a project.
type SetAutoCopyPayload struct {
	ProjectID      string `json:"project_id"`
	Enabled        bool   `json:"enabled"`
	SourceWorktree string `json:"source_worktree,omitempty"`
}

// CopyEnvFilesPayload requests a copy of tracked files between worktrees.
type CopyEnvFilesPayload struct {
	ProjectID        string `json:"project_id"`
	FromWorktreePath string `json:"from_worktree_path"`
	ToWorktreePath   string `json:"to_worktree_path"`
}

// EnvCopyFinishedPayload is the completion of a CopyEnvFiles effect. The
// result fully replaces the project's previous LastCopyResult.
type EnvCopyFinishedPayload struct {
	ProjectID string     `json:"project_id"`
	Result    CopyResult `json:"result"`
}

// --- Agent profile payloads ---

// SetAgentRulesEnabledPayload toggles rules injection for a project.
type SetAgentRulesEnabledPayload struct {
	ProjectID string `json:"project_id"`
	Enabled   bool   `json:"enabled"`
}

// AddAgentProfilePayload creates a user profile.
type AddAgentProfilePayload struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Rules     string `json:"rules"`
}

// UpdateAgentProfilePayload edits a user profile. Targeting a built-in
// profile is rejected with ErrBuiltinImmutable.
type UpdateAgentProfilePayload struct {
	ProjectID string `json:"project_id"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name,omitempty"`
	Rules     string `json:"rules,omitempty"`
}

// DeleteAgentProfilePayload deletes a user profile. Targeting a built-in
// profile is rejected with ErrBuiltinImmutable.
type DeleteAgentProfilePayload struct {
	ProjectID string `json:"project_id"`
	ProfileID string `json:"profile_id"`
}

// SetActiveProfilePayload selects the active profile, empty id for none.
type SetActiveProfilePayload struct {
	ProjectID string `json:"project_id"`
	ProfileID string `json:"profile_id"`
}

// --- Engine-internal payloads ---

// EffectFailedPayload reports an effect that failed or panicked.
type EffectFailedPayload struct {
	EffectID    string     `json:"effect_id"`
	EffectType  EffectType `json:"effect_type"`
	ResourceKey string     `json:"resource_key,omitempty"`
	Reason      string     `json:"reason"`
}
