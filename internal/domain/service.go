package domain

import (
	"github.com/loomctl/loom/internal/constants"
)

// DockerServiceRecord tracks one docker-backed dev service (database, cache,
// broker). Lifecycle is governed by the container state machine; the reducer
// only ever moves a record into the next transitional state, and the terminal
// state arrives with the effect's completion action.
//
// Example JSON representation:
//
//	{
//	    "id": "postgres",
//	    "type": "database",
//	    "container_name": "loom-postgres",
//	    "status": "running",
//	    "port": 5433,
//	    "connection_string": "postgres://localhost:5433/dev",
//	    "volume_path": "/home/dev/.loom/volumes/postgres"
//	}
type DockerServiceRecord struct {
	// ID is the service key in StateTree.DockerServices.
	ID string `json:"id" yaml:"id"`

	// Type classifies the service (database/cache/broker/other).
	Type constants.ServiceType `json:"type" yaml:"type"`

	// ContainerName is the docker container name, the resource key for
	// effect dedup.
	ContainerName string `json:"container_name" yaml:"container_name"`

	// Status is the current lifecycle state.
	Status constants.ServiceStatus `json:"status" yaml:"status"`

	// Port is the assigned host port. This is the probed port actually bound,
	// never the originally requested default when that was occupied.
	Port int `json:"port" yaml:"port"`

	// ConnectionString is the client connection string for the bound port.
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// VolumePath is the host path of the data volume.
	VolumePath string `json:"volume_path,omitempty" yaml:"volume_path,omitempty"`

	// LastError is the reason the record entered Error, empty otherwise.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// serviceTransitions defines all allowed lifecycle transitions.
// Format: from_status -> []to_statuses
//
//	Unknown → Stopped, Running, NotFound
//	NotFound → Creating → Stopped
//	Stopped → Starting → Running
//	Running → Stopping → Stopped
//	Running → Restarting → Running
//	Stopped → Removing → NotFound
//	Creating/Starting/Stopping/Restarting/Removing → Error
//	Error → Stopped
//
//nolint:gochecknoglobals // Read-only lookup table
var serviceTransitions = map[constants.ServiceStatus][]constants.ServiceStatus{
	constants.ServiceStatusUnknown: {
		constants.ServiceStatusStopped,
		constants.ServiceStatusRunning,
		constants.ServiceStatusNotFound,
	},
	constants.ServiceStatusNotFound: {constants.ServiceStatusCreating},
	constants.ServiceStatusCreating: {constants.ServiceStatusStopped, constants.ServiceStatusError},
	constants.ServiceStatusStopped: {
		constants.ServiceStatusStarting,
		constants.ServiceStatusRemoving,
	},
	// Starting → Stopping expresses cancellation: a stop request while the
	// start effect is still in flight.
	constants.ServiceStatusStarting: {
		constants.ServiceStatusRunning,
		constants.ServiceStatusStopping,
		constants.ServiceStatusError,
	},
	constants.ServiceStatusRunning: {
		constants.ServiceStatusStopping,
		constants.ServiceStatusRestarting,
	},
	constants.ServiceStatusStopping:   {constants.ServiceStatusStopped, constants.ServiceStatusError},
	constants.ServiceStatusRestarting: {constants.ServiceStatusRunning, constants.ServiceStatusError},
	constants.ServiceStatusRemoving:   {constants.ServiceStatusNotFound, constants.ServiceStatusError},
	constants.ServiceStatusError:      {constants.ServiceStatusStopped},
}

// inProgressServiceStatuses are the states with an effect in flight.
//
//nolint:gochecknoglobals // Read-only lookup table
var inProgressServiceStatuses = map[constants.ServiceStatus]bool{
	constants.ServiceStatusCreating:   true,
	constants.ServiceStatusStarting:   true,
	constants.ServiceStatusStopping:   true,
	constants.ServiceStatusRestarting: true,
	constants.ServiceStatusRemoving:   true,
}

// IsValidServiceTransition checks if a transition between service statuses is
// allowed. Returns false for self-transitions.
func IsValidServiceTransition(from, to constants.ServiceStatus) bool {
	if from == to {
		return false
	}
	for _, target := range serviceTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsServiceInProgress returns true while an effect for the record is in flight.
func IsServiceInProgress(status constants.ServiceStatus) bool {
	return inProgressServiceStatuses[status]
}

// mcpTransitions defines the MCP server state machine.
//
//	Stopped → Starting → Running → Stopped
//	Starting → Error, Running → Error, Error → Stopped
//
//nolint:gochecknoglobals // Read-only lookup table
var mcpTransitions = map[constants.McpStatus][]constants.McpStatus{
	constants.McpStatusStopped:  {constants.McpStatusStarting},
	constants.McpStatusStarting: {constants.McpStatusRunning, constants.McpStatusError, constants.McpStatusStopped},
	constants.McpStatusRunning:  {constants.McpStatusStopped, constants.McpStatusError},
	constants.McpStatusError:    {constants.McpStatusStopped},
}

// IsValidMcpTransition checks if a transition between MCP statuses is allowed.
func IsValidMcpTransition(from, to constants.McpStatus) bool {
	if from == to {
		return false
	}
	for _, target := range mcpTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}
