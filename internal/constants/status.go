package constants

// ServiceStatus represents the state of a docker-backed dev service in the
// loom state machine. Status values use snake_case for JSON serialization
// compatibility.
type ServiceStatus string

// Service status constants define the valid states a service record can be in.
// These follow the container lifecycle state machine:
//
//	Unknown → Stopped, Running, NotFound
//	NotFound → Creating → Stopped
//	Stopped → Starting → Running
//	Running → Stopping → Stopped
//	Running → Restarting → Running
//	Stopped → Removing → NotFound
//	any in-progress state → Error
//	Error → Stopped
const (
	// ServiceStatusUnknown indicates the container has not been probed yet.
	ServiceStatusUnknown ServiceStatus = "unknown"

	// ServiceStatusNotFound indicates no container exists for this record.
	ServiceStatusNotFound ServiceStatus = "not_found"

	// ServiceStatusCreating indicates a container create operation is in flight.
	ServiceStatusCreating ServiceStatus = "creating"

	// ServiceStatusStopped indicates the container exists but is not running.
	ServiceStatusStopped ServiceStatus = "stopped"

	// ServiceStatusStarting indicates a container start operation is in flight.
	ServiceStatusStarting ServiceStatus = "starting"

	// ServiceStatusRunning indicates the container is up and accepting connections.
	ServiceStatusRunning ServiceStatus = "running"

	// ServiceStatusStopping indicates a container stop operation is in flight.
	ServiceStatusStopping ServiceStatus = "stopping"

	// ServiceStatusRestarting indicates a container restart operation is in flight.
	ServiceStatusRestarting ServiceStatus = "restarting"

	// ServiceStatusRemoving indicates a container remove operation is in flight.
	ServiceStatusRemoving ServiceStatus = "removing"

	// ServiceStatusError indicates the last operation failed.
	// The only recovery transition is Error → Stopped (explicit retry/cleanup).
	ServiceStatusError ServiceStatus = "error"
)

// ServiceType classifies a dev service by the kind of backend it provides.
type ServiceType string

// Service type constants for the resource config table.
const (
	// ServiceTypeDatabase is a database-class service (e.g., postgres).
	ServiceTypeDatabase ServiceType = "database"

	// ServiceTypeCache is a cache-class service (e.g., redis).
	ServiceTypeCache ServiceType = "cache"

	// ServiceTypeBroker is a message-broker-class service (e.g., rabbitmq).
	ServiceTypeBroker ServiceType = "broker"

	// ServiceTypeOther is any service outside the known classes.
	ServiceTypeOther ServiceType = "other"
)

// McpStatus represents the state of a per-worktree MCP server.
type McpStatus string

// MCP server status constants.
//
//	Stopped → Starting → Running → Stopped
//	Starting → Error (bind/spawn failure)
//	Running → Error (unrecoverable tool-call fault)
//	Error → Stopped (explicit stop)
const (
	// McpStatusStopped indicates the server process is not running.
	McpStatusStopped McpStatus = "stopped"

	// McpStatusStarting indicates a spawn operation is in flight.
	McpStatusStarting McpStatus = "starting"

	// McpStatusRunning indicates the server is bound and serving tool calls.
	McpStatusRunning McpStatus = "running"

	// McpStatusError indicates the server failed to start or faulted while running.
	McpStatusError McpStatus = "error"
)

// NotificationLevel classifies a notification by severity.
type NotificationLevel string

// Notification level constants.
const (
	// NotificationInfo is an informational notification.
	NotificationInfo NotificationLevel = "info"

	// NotificationSuccess reports a completed operation.
	NotificationSuccess NotificationLevel = "success"

	// NotificationWarning reports a condition that needs attention.
	NotificationWarning NotificationLevel = "warning"

	// NotificationError reports a failed operation.
	NotificationError NotificationLevel = "error"
)

// McpLogDirection tags an MCP log entry as inbound or outbound.
type McpLogDirection string

// MCP log entry directions.
const (
	// McpLogIn is an inbound tool call.
	McpLogIn McpLogDirection = "in"

	// McpLogOut is an outbound result.
	McpLogOut McpLogDirection = "out"
)
