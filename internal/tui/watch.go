package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/engine"
)

// SnapshotMsg carries one committed state version from the broadcast hub.
type SnapshotMsg engine.Snapshot

// ClosedMsg signals that the hub subscription ended.
type ClosedMsg struct{}

// WatchModel is the Bubble Tea model for the live state dashboard. It holds
// only the latest snapshot; rendering never reaches back into the engine.
type WatchModel struct {
	snapshots <-chan engine.Snapshot
	cancel    func()

	state      *domain.StateTree
	version    uint64
	lastAction domain.ActionType
	lastUpdate time.Time

	width, height int
	quitting      bool
}

// NewWatchModel creates a dashboard over a hub subscription. The initial
// state is rendered immediately; later versions stream in as SnapshotMsg.
func NewWatchModel(initial *domain.StateTree, version uint64, snapshots <-chan engine.Snapshot, cancel func()) *WatchModel {
	return &WatchModel{
		snapshots: snapshots,
		cancel:    cancel,
		state:     initial,
		version:   version,
		width:     80,
		height:    24,
	}
}

// Init starts waiting for the first snapshot.
func (m *WatchModel) Init() tea.Cmd {
	return m.waitForSnapshot()
}

// Update handles messages and returns the updated model and any commands.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.state = msg.State
		m.version = msg.Version
		m.lastAction = msg.Action.Type
		m.lastUpdate = time.Now()
		return m, m.waitForSnapshot()

	case ClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the current state to a string.
func (m *WatchModel) View() string {
	if m.quitting || m.state == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("loom"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  v%d", m.version)))
	b.WriteString("\n\n")

	m.renderProjects(&b)
	m.renderServices(&b)
	m.renderMcp(&b)
	m.renderNotifications(&b)

	if !m.lastUpdate.IsZero() {
		b.WriteString(StyleDim.Render(fmt.Sprintf("\n%s · last action %s",
			m.lastUpdate.Format("15:04:05"), m.lastAction)))
	}
	b.WriteString("\nPress 'q' to quit")
	return b.String()
}

// Version returns the rendered state version (useful for testing).
func (m *WatchModel) Version() uint64 { return m.version }

// IsQuitting returns true if the model is in quitting state.
func (m *WatchModel) IsQuitting() bool { return m.quitting }

// waitForSnapshot blocks on the hub channel inside a command, turning each
// received version into a message.
func (m *WatchModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.snapshots
		if !ok {
			return ClosedMsg{}
		}
		return SnapshotMsg(snap)
	}
}

func (m *WatchModel) renderProjects(b *strings.Builder) {
	if len(m.state.Projects) == 0 {
		b.WriteString("No open projects. Run 'loom open <path>'.\n")
		return
	}

	for i, project := range m.state.Projects {
		name := project.Name
		if i == m.state.ActiveProjectIndex {
			name = titleStyle.Render("[" + name + "]")
		} else {
			name = StyleDim.Render(name)
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(name)
	}
	b.WriteString("\n")

	active := m.state.ActiveProject()
	if active == nil {
		return
	}
	for i, wt := range active.Worktrees {
		marker := "  "
		if i == m.state.ActiveWorktreeIndex {
			marker = lipgloss.NewStyle().Foreground(ColorPrimary).Render("> ")
		}
		branch := wt.Branch
		if wt.IsMain {
			branch = "main checkout"
		}
		line := fmt.Sprintf("%s%s  %s", marker, branch, StyleDim.Render(wt.Path))
		if wt.IsModified {
			line += lipgloss.NewStyle().Foreground(ColorWarning).Render(" *")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *WatchModel) renderServices(b *strings.Builder) {
	if len(m.state.DockerServices) == 0 {
		return
	}

	records := make([]domain.DockerServiceRecord, 0, len(m.state.DockerServices))
	for _, rec := range m.state.DockerServices {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		ri, rj := ServiceStatusRank(records[i].Status), ServiceStatusRank(records[j].Status)
		if ri != rj {
			return ri < rj
		}
		return records[i].ID < records[j].ID
	})

	b.WriteString(StyleBold.Render("Services"))
	b.WriteString("\n")
	for _, rec := range records {
		style := lipgloss.NewStyle().Foreground(ServiceStatusColor(rec.Status))
		line := fmt.Sprintf("  %s %-12s %-10s", statusIcon(rec.Status), rec.ID, rec.Status)
		if rec.Port > 0 {
			line += fmt.Sprintf(" :%d", rec.Port)
		}
		if rec.LastError != "" {
			line += "  " + rec.LastError
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m *WatchModel) renderMcp(b *strings.Builder) {
	rec := m.state.McpServer
	if rec == nil {
		return
	}
	style := lipgloss.NewStyle().Foreground(McpStatusColor(rec.Status))
	line := fmt.Sprintf("MCP %s :%d (%d tools, %d log entries)",
		rec.Status, rec.Port, len(rec.AvailableTools), len(rec.LogEntries))
	b.WriteString(style.Render(line))
	b.WriteString("\n\n")
}

func (m *WatchModel) renderNotifications(b *strings.Builder) {
	const shown = 5
	n := len(m.state.Notifications)
	if n == 0 {
		return
	}

	b.WriteString(StyleBold.Render("Notifications"))
	b.WriteString("\n")
	start := n - shown
	if start < 0 {
		start = 0
	}
	// Newest last in state, newest first on screen.
	for i := n - 1; i >= start; i-- {
		ntf := m.state.Notifications[i]
		style := lipgloss.NewStyle().Foreground(NotificationColor(ntf.Level))
		prefix := "•"
		if ntf.Read {
			prefix = " "
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			prefix,
			style.Render(string(ntf.Level)),
			ntf.Message))
	}
}
