// Package tui provides the terminal dashboard for loom. It is a pure
// consumer of engine snapshots: every keystroke becomes a dispatched action,
// every view render starts from the latest immutable StateTree. All colors
// use AdaptiveColor for light/dark terminal support.
package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/loomctl/loom/internal/constants"
)

//nolint:gochecknoglobals // Intentional package-level constants for TUI styling API
var (
	// ColorPrimary is blue, used for active states and the focused worktree.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for running services and servers.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for transitional states.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for error states and failed effects.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for stopped and inactive entries.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim/faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
)

// CheckNoColor disables color output when the NO_COLOR environment variable
// is set or TERM=dumb. Call at command start before any rendering.
func CheckNoColor() {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// ServiceStatusColor returns the semantic color for a service status.
func ServiceStatusColor(status constants.ServiceStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.ServiceStatusRunning:
		return ColorSuccess
	case constants.ServiceStatusError:
		return ColorError
	case constants.ServiceStatusCreating,
		constants.ServiceStatusStarting,
		constants.ServiceStatusStopping,
		constants.ServiceStatusRestarting,
		constants.ServiceStatusRemoving:
		return ColorWarning
	default:
		return ColorMuted
	}
}

// ServiceStatusRank orders statuses for display: problems first, then
// transitions in flight, then steady states.
func ServiceStatusRank(status constants.ServiceStatus) int {
	switch status {
	case constants.ServiceStatusError:
		return 0
	case constants.ServiceStatusCreating,
		constants.ServiceStatusStarting,
		constants.ServiceStatusStopping,
		constants.ServiceStatusRestarting,
		constants.ServiceStatusRemoving:
		return 1
	case constants.ServiceStatusRunning:
		return 2
	case constants.ServiceStatusStopped:
		return 3
	default:
		return 4
	}
}

// McpStatusColor returns the semantic color for an MCP server status.
func McpStatusColor(status constants.McpStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.McpStatusRunning:
		return ColorSuccess
	case constants.McpStatusStarting:
		return ColorWarning
	case constants.McpStatusError:
		return ColorError
	default:
		return ColorMuted
	}
}

// NotificationColor returns the semantic color for a notification level.
func NotificationColor(level constants.NotificationLevel) lipgloss.AdaptiveColor {
	switch level {
	case constants.NotificationSuccess:
		return ColorSuccess
	case constants.NotificationWarning:
		return ColorWarning
	case constants.NotificationError:
		return ColorError
	default:
		return ColorMuted
	}
}

// statusIcon gives the triple-redundant icon per service status so status is
// readable without color.
func statusIcon(status constants.ServiceStatus) string {
	switch status {
	case constants.ServiceStatusRunning:
		return "●"
	case constants.ServiceStatusError:
		return "✗"
	case constants.ServiceStatusStopped, constants.ServiceStatusNotFound:
		return "○"
	case constants.ServiceStatusUnknown:
		return "?"
	default:
		return "◐"
	}
}
