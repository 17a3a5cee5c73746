// Package mcp manages the per-worktree MCP server process: spawning it with
// a generated config file, tracking the running process, and shutting it
// down. State transitions stay in the engine; this package only runs the
// process and reports what happened.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/ctxutil"
	loomerrors "github.com/loomctl/loom/internal/errors"
	"github.com/loomctl/loom/internal/netutil"
)

// defaultTools is the tool set the server exposes to agents.
//
//nolint:gochecknoglobals // Read-only lookup table
var defaultTools = []string{
	"read_file",
	"list_worktrees",
	"run_tests",
	"git_status",
	"git_diff",
}

// serverConfig is what gets written to the worktree's .loom-mcp.json.
type serverConfig struct {
	WorktreeID   string   `json:"worktree_id"`
	WorktreePath string   `json:"worktree_path"`
	Port         int      `json:"port"`
	Tools        []string `json:"tools"`
}

// ServerInfo describes a spawned server.
type ServerInfo struct {
	WorktreeID string
	Port       int
	ConfigPath string
	Tools      []string
}

// Controller spawns and stops MCP server processes, one per worktree.
type Controller struct {
	command  string
	basePort int
	logger   zerolog.Logger

	mu    sync.Mutex
	procs map[string]*exec.Cmd
}

// ControllerOption customizes construction.
type ControllerOption func(*Controller)

// WithCommand overrides the server binary to spawn.
func WithCommand(cmd string) ControllerOption {
	return func(c *Controller) {
		if cmd != "" {
			c.command = cmd
		}
	}
}

// WithBasePort overrides the first port probed for a new server.
func WithBasePort(port int) ControllerOption {
	return func(c *Controller) {
		if port > 0 {
			c.basePort = port
		}
	}
}

// NewController builds a controller.
func NewController(logger zerolog.Logger, opts ...ControllerOption) *Controller {
	c := &Controller{
		command:  constants.DefaultMcpCommand,
		basePort: constants.DefaultMcpBasePort,
		logger:   logger.With().Str("component", "mcp").Logger(),
		procs:    make(map[string]*exec.Cmd),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spawn starts a server for a worktree. It probes a free port, writes the
// config file into the worktree, and launches the process detached from the
// effect's context: effect cancellation must not kill a server that already
// started.
func (c *Controller) Spawn(ctx context.Context, worktreeID, worktreePath string) (*ServerInfo, error) {
	c.mu.Lock()
	_, running := c.procs[worktreeID]
	c.mu.Unlock()
	if running {
		return nil, fmt.Errorf("%w: server already running for worktree %s",
			loomerrors.ErrMcpSpawn, worktreeID)
	}

	port, err := netutil.FindFreePort(c.basePort, constants.DefaultPortProbeLimit)
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(worktreePath, constants.McpConfigFileName)
	cfg := serverConfig{
		WorktreeID:   worktreeID,
		WorktreePath: worktreePath,
		Port:         port,
		Tools:        defaultTools,
	}
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, loomerrors.Wrap(err, "failed to encode mcp config")
	}
	if err := os.WriteFile(configPath, raw, 0o600); err != nil {
		return nil, loomerrors.Wrapf(err, "failed to write %s", configPath)
	}

	// The process must outlive the spawn effect, so it does not inherit ctx.
	cmd := exec.Command(c.command, "--config", configPath, "--port", strconv.Itoa(port)) //#nosec G204 -- command comes from local config
	cmd.Dir = worktreePath
	if err := cmd.Start(); err != nil {
		_ = os.Remove(configPath)
		return nil, fmt.Errorf("%s: %s: %w", c.command, err, loomerrors.ErrMcpSpawn)
	}

	c.mu.Lock()
	c.procs[worktreeID] = cmd
	c.mu.Unlock()

	// Reap the process when it exits so it never zombies.
	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		if c.procs[worktreeID] == cmd {
			delete(c.procs, worktreeID)
		}
		c.mu.Unlock()
		c.logger.Debug().Str("worktree_id", worktreeID).Err(err).Msg("mcp server exited")
	}()

	if err := ctxutil.Canceled(ctx); err != nil {
		// Spawn raced a cancellation; tear the process down again.
		_ = c.Shutdown(context.WithoutCancel(ctx), worktreeID)
		return nil, err
	}

	c.logger.Info().
		Str("worktree_id", worktreeID).
		Int("port", port).
		Msg("mcp server started")
	return &ServerInfo{
		WorktreeID: worktreeID,
		Port:       port,
		ConfigPath: configPath,
		Tools:      defaultTools,
	}, nil
}

// Shutdown stops the server for a worktree. Stopping a worktree with no
// running server is a no-op, which is what lets shutdown effects be issued
// unconditionally.
func (c *Controller) Shutdown(_ context.Context, worktreeID string) error {
	c.mu.Lock()
	cmd, ok := c.procs[worktreeID]
	delete(c.procs, worktreeID)
	c.mu.Unlock()
	if !ok || cmd.Process == nil {
		return nil
	}

	// Ask politely, then insist.
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return loomerrors.Wrapf(cmd.Process.Kill(), "failed to kill mcp server for %s", worktreeID)
	}
	killTimer := time.AfterFunc(constants.McpShutdownGrace, func() {
		_ = cmd.Process.Kill()
	})
	defer killTimer.Stop()
	return nil
}

// Running reports whether a server is tracked for the worktree.
func (c *Controller) Running(worktreeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.procs[worktreeID]
	return ok
}
