// Package errors provides centralized error handling for loom.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the engine. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrUnknownAction indicates an action with an unrecognized type tag.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrInvalidPayload indicates an action payload that failed structural
	// validation before reaching a reducer.
	ErrInvalidPayload = errors.New("invalid action payload")

	// ErrDomainRejected indicates a reducer rejected the action because it
	// violates a domain invariant. The wrapped message carries the reason.
	ErrDomainRejected = errors.New("domain rejected")

	// ErrInvalidTransition indicates an attempt to make a state transition
	// not permitted by the resource's lifecycle state machine.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrBuiltinImmutable indicates an edit or delete request targeting a
	// built-in agent profile.
	ErrBuiltinImmutable = errors.New("built-in profile is immutable")

	// ErrProjectNotFound indicates the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrWorktreeNotFound indicates the referenced worktree does not exist.
	ErrWorktreeNotFound = errors.New("worktree not found")

	// ErrWorktreeExists indicates the worktree path is already registered.
	ErrWorktreeExists = errors.New("worktree already exists")

	// ErrBranchExists indicates the branch name is already used by another
	// worktree of the same project.
	ErrBranchExists = errors.New("branch already exists")

	// ErrMainWorktree indicates an operation that is not allowed on the main
	// worktree (e.g., removal).
	ErrMainWorktree = errors.New("cannot remove main worktree")

	// ErrServiceNotFound indicates the referenced service record does not exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceExists indicates a service record with that id already exists.
	ErrServiceExists = errors.New("service already exists")

	// ErrProfileNotFound indicates the referenced agent profile does not exist.
	ErrProfileNotFound = errors.New("agent profile not found")

	// ErrNotificationNotFound indicates the referenced notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNoActiveWorktree indicates an MCP operation was requested with no
	// active worktree selected.
	ErrNoActiveWorktree = errors.New("no active worktree")

	// ErrResourceBusy indicates an effect was rejected because another effect
	// for the same resource key is already in flight.
	ErrResourceBusy = errors.New("resource has an effect in flight")

	// ErrEffectPanic indicates an effect executor panicked. The panic is
	// contained by the runner and surfaced as an EffectFailed action.
	ErrEffectPanic = errors.New("effect panicked")

	// ErrNoExecutor indicates no executor is registered for an effect type.
	ErrNoExecutor = errors.New("no executor for effect type")

	// ErrDispatcherClosed indicates an action was submitted after the
	// dispatcher loop shut down.
	ErrDispatcherClosed = errors.New("dispatcher closed")

	// ErrPortUnavailable indicates no free port was found within the probe
	// budget above the configured default.
	ErrPortUnavailable = errors.New("no free port available")

	// ErrDockerOperation indicates a docker CLI command failed.
	ErrDockerOperation = errors.New("docker operation failed")

	// ErrGitOperation indicates a git command (worktree add/remove, etc.)
	// failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrMcpSpawn indicates the MCP server process failed to spawn or bind.
	ErrMcpSpawn = errors.New("mcp server spawn failed")

	// ErrSchemaTooNew indicates a persisted snapshot whose schema version is
	// newer than this engine understands.
	ErrSchemaTooNew = errors.New("snapshot schema newer than engine")

	// ErrSnapshotCorrupted indicates the snapshot file is unreadable or
	// structurally invalid.
	ErrSnapshotCorrupted = errors.New("snapshot corrupted")

	// ErrLockTimeout indicates a file lock could not be acquired within the
	// timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")
)
