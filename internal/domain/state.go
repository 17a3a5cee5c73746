// Package domain provides shared domain types for the loom state engine.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON and YAML field names use snake_case per architecture requirements.
package domain

import (
	"slices"

	"github.com/loomctl/loom/internal/constants"
)

// StateTree is the canonical, fully serializable application state.
//
// The committed StateTree value is owned exclusively by the dispatcher loop.
// Everything outside the loop only ever sees immutable snapshots; reducers
// receive a private clone and return it as the next version. No handles or
// callbacks live anywhere in the tree, so the whole value round-trips through
// the persistence layer byte-for-byte.
type StateTree struct {
	// Projects is the ordered set of open projects. Insertion order is tab
	// order. Paths are unique.
	Projects []Project `json:"projects" yaml:"projects"`

	// ActiveProjectIndex is the cursor into Projects, -1 when none is open.
	ActiveProjectIndex int `json:"active_project_index" yaml:"active_project_index"`

	// ActiveWorktreeIndex is the cursor into the active project's worktrees,
	// -1 when no project is open.
	ActiveWorktreeIndex int `json:"active_worktree_index" yaml:"active_worktree_index"`

	// Notifications is the bounded, ordered notification feed. Oldest entries
	// are evicted FIFO beyond the configured cap.
	Notifications []Notification `json:"notifications" yaml:"notifications"`

	// RecentProjects remembers previously opened project paths, most recent
	// first, deduplicated by path.
	RecentProjects []RecentProject `json:"recent_projects" yaml:"recent_projects"`

	// DockerServices holds one record per managed dev service, keyed by
	// service id. Records are never silently deleted; removal goes through
	// the Removing state.
	DockerServices map[string]DockerServiceRecord `json:"docker_services" yaml:"docker_services"`

	// McpServer is the MCP server record for the active worktree, nil when no
	// worktree is active or the server was destroyed.
	McpServer *McpServerRecord `json:"mcp_server,omitempty" yaml:"mcp_server,omitempty"`

	// EnvConfigs holds per-project env-file sync configuration, keyed by
	// project id.
	EnvConfigs map[string]EnvSyncConfig `json:"env_configs" yaml:"env_configs"`

	// AgentProfiles holds per-project agent rules configuration, keyed by
	// project id.
	AgentProfiles map[string]AgentRulesConfig `json:"agent_profiles" yaml:"agent_profiles"`
}

// NewStateTree returns an empty state with cursors cleared and maps allocated.
func NewStateTree() *StateTree {
	return &StateTree{
		Projects:            []Project{},
		ActiveProjectIndex:  -1,
		ActiveWorktreeIndex: -1,
		Notifications:       []Notification{},
		RecentProjects:      []RecentProject{},
		DockerServices:      map[string]DockerServiceRecord{},
		EnvConfigs:          map[string]EnvSyncConfig{},
		AgentProfiles:       map[string]AgentRulesConfig{},
	}
}

// Clone returns a deep copy of the tree. Reducers mutate the clone and the
// dispatcher commits it; the previous version stays untouched for subscribers
// still holding it.
func (s *StateTree) Clone() *StateTree {
	next := &StateTree{
		Projects:            make([]Project, len(s.Projects)),
		ActiveProjectIndex:  s.ActiveProjectIndex,
		ActiveWorktreeIndex: s.ActiveWorktreeIndex,
		Notifications:       append([]Notification(nil), s.Notifications...),
		RecentProjects:      append([]RecentProject(nil), s.RecentProjects...),
		DockerServices:      make(map[string]DockerServiceRecord, len(s.DockerServices)),
		EnvConfigs:          make(map[string]EnvSyncConfig, len(s.EnvConfigs)),
		AgentProfiles:       make(map[string]AgentRulesConfig, len(s.AgentProfiles)),
	}

	for i := range s.Projects {
		next.Projects[i] = s.Projects[i].clone()
	}
	for id, rec := range s.DockerServices {
		next.DockerServices[id] = rec
	}
	if s.McpServer != nil {
		mcp := s.McpServer.clone()
		next.McpServer = &mcp
	}
	for id, cfg := range s.EnvConfigs {
		next.EnvConfigs[id] = cfg.clone()
	}
	for id, cfg := range s.AgentProfiles {
		next.AgentProfiles[id] = cfg.clone()
	}
	return next
}

// ActiveProject returns a pointer into Projects for the active cursor, or nil.
// The pointer is only valid while the caller owns the tree (i.e., inside a
// reducer operating on its private clone).
func (s *StateTree) ActiveProject() *Project {
	if s.ActiveProjectIndex < 0 || s.ActiveProjectIndex >= len(s.Projects) {
		return nil
	}
	return &s.Projects[s.ActiveProjectIndex]
}

// ActiveWorktree returns a pointer to the active worktree of the active
// project, or nil when no worktree is selected.
func (s *StateTree) ActiveWorktree() *Worktree {
	p := s.ActiveProject()
	if p == nil {
		return nil
	}
	if s.ActiveWorktreeIndex < 0 || s.ActiveWorktreeIndex >= len(p.Worktrees) {
		return nil
	}
	return &p.Worktrees[s.ActiveWorktreeIndex]
}

// ProjectIndexByPath returns the index of the project with the given path, or -1.
func (s *StateTree) ProjectIndexByPath(path string) int {
	for i := range s.Projects {
		if s.Projects[i].Path == path {
			return i
		}
	}
	return -1
}

// ProjectIndexByID returns the index of the project with the given id, or -1.
func (s *StateTree) ProjectIndexByID(id string) int {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

// ServiceIDs returns the service record keys in deterministic (sorted) order.
// Map iteration order must never leak into effects or broadcasts.
func (s *StateTree) ServiceIDs() []string {
	ids := make([]string, 0, len(s.DockerServices))
	for id := range s.DockerServices {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// statusRank is used by tests and the TUI to order service statuses for
// display; it has no behavioral significance.
var statusRank = map[constants.ServiceStatus]int{ //nolint:gochecknoglobals // read-only lookup table
	constants.ServiceStatusError:      0,
	constants.ServiceStatusRunning:    1,
	constants.ServiceStatusStarting:   2,
	constants.ServiceStatusRestarting: 3,
	constants.ServiceStatusStopping:   4,
	constants.ServiceStatusCreating:   5,
	constants.ServiceStatusRemoving:   6,
	constants.ServiceStatusStopped:    7,
	constants.ServiceStatusNotFound:   8,
	constants.ServiceStatusUnknown:    9,
}

// StatusRank returns a display ordering weight for a service status.
func StatusRank(s constants.ServiceStatus) int {
	return statusRank[s]
}
