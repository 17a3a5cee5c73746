package domain

import (
	"time"

	"github.com/loomctl/loom/internal/constants"
)

// McpServerRecord tracks the per-worktree MCP server. One record exists per
// active worktree context; it is created when a worktree becomes active and
// destroyed when the worktree is closed or the server is stopped and the
// worktree deactivated.
type McpServerRecord struct {
	// WorktreeID is the worktree this server instance belongs to.
	WorktreeID string `json:"worktree_id" yaml:"worktree_id"`

	// Status is the current lifecycle state.
	Status constants.McpStatus `json:"status" yaml:"status"`

	// Port is the bound port, 0 until Running.
	Port int `json:"port" yaml:"port"`

	// ConfigPath is the discovery config file written for clients.
	ConfigPath string `json:"config_path,omitempty" yaml:"config_path,omitempty"`

	// AvailableTools is the ordered list of tool names the server advertises.
	AvailableTools []string `json:"available_tools" yaml:"available_tools"`

	// LogEntries is the bounded ring of recent tool-call traffic. Oldest
	// entries drop silently once the cap is reached.
	LogEntries []McpLogEntry `json:"log_entries" yaml:"log_entries"`

	// LastError is the reason the record entered Error, empty otherwise.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

func (m McpServerRecord) clone() McpServerRecord {
	m.AvailableTools = append([]string(nil), m.AvailableTools...)
	m.LogEntries = append([]McpLogEntry(nil), m.LogEntries...)
	return m
}

// McpLogEntry is one inbound tool call or outbound result.
type McpLogEntry struct {
	// Timestamp is when the entry was recorded.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Direction is "in" for tool calls, "out" for results.
	Direction constants.McpLogDirection `json:"direction" yaml:"direction"`

	// Method is the RPC method name.
	Method string `json:"method" yaml:"method"`

	// ToolName is set for tool-call methods, empty otherwise.
	ToolName string `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`

	// Payload is a bounded excerpt of the message body. Payloads over the
	// configured threshold are replaced with a placeholder annotation rather
	// than stored verbatim.
	Payload string `json:"payload,omitempty" yaml:"payload,omitempty"`
}
