package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/loomctl/loom/internal/config"
	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/docker"
	"github.com/loomctl/loom/internal/domain"
	"github.com/loomctl/loom/internal/effect"
	"github.com/loomctl/loom/internal/engine"
	"github.com/loomctl/loom/internal/envsync"
	"github.com/loomctl/loom/internal/git"
	"github.com/loomctl/loom/internal/mcp"
	"github.com/loomctl/loom/internal/persist"
	"github.com/loomctl/loom/internal/reducer"
	"github.com/loomctl/loom/internal/signal"
	"github.com/loomctl/loom/internal/tui"
)

// AddRunCommand adds the run command to the parent command.
func AddRunCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the session engine and live dashboard",
		Long: `Run loads the persisted session snapshot, starts the state engine with
all effect executors attached, reconciles docker service records against the
actual container runtime, and opens the live dashboard.

The session is saved back to the snapshot on exit unless --no-save is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSession(cmd.Context(), flags)
		},
	}
	parent.AddCommand(cmd)
}

// runSession wires the whole engine together and blocks until the dashboard
// exits or a shutdown signal arrives.
func runSession(ctx context.Context, flags *GlobalFlags) error {
	logger := GetLogger()

	handler := signal.NewHandler(ctx)
	defer handler.Stop()
	ctx = handler.Context()

	cfg, err := config.Load(logger.WithContext(ctx))
	if err != nil {
		return err
	}

	store, err := openStore(cfg, flags, logger)
	if err != nil {
		return err
	}
	state, err := store.Load(ctx)
	if err != nil {
		return err
	}

	journalPath, err := cfg.JournalPath()
	if err != nil {
		return err
	}
	journal, err := engine.OpenJournal(journalPath)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	counters := &engine.Counters{}
	eng := buildEngine(state, cfg, journal, counters, logger)
	eng.Start()
	defer func() {
		eng.Close()
		logger.Info().
			Uint64("actions_applied", counters.ActionsApplied()).
			Uint64("actions_rejected", counters.ActionsRejected()).
			Uint64("effects_started", counters.EffectsStarted()).
			Uint64("effects_failed", counters.EffectsFailed()).
			Uint64("snapshots_dropped", counters.SnapshotsDropped()).
			Msg("engine stopped")
	}()

	// Reconcile persisted service records against the real container
	// runtime before showing anything.
	if _, err := eng.Dispatch(ctx, domain.MustAction(domain.ActionDiscoverServices, nil)); err != nil {
		logger.Warn().Err(err).Msg("service discovery dispatch failed")
	}

	// Server processes never survive a restart; clear any record the
	// snapshot carried over.
	if state.McpServer != nil {
		stopped := domain.MustAction(domain.ActionMcpServerStopped,
			domain.McpServerStoppedPayload{WorktreeID: state.McpServer.WorktreeID})
		if _, err := eng.Dispatch(ctx, stopped); err != nil {
			logger.Warn().Err(err).Msg("stale mcp record cleanup failed")
		}
	}

	if err := runDashboard(ctx, eng); err != nil {
		return err
	}

	if flags.NoSave {
		logger.Info().Msg("snapshot save skipped")
		return nil
	}
	if flags.SavePath != "" {
		store = persist.NewStore(flags.SavePath, logger)
	}
	finalState, version := eng.Snapshot()
	if err := store.Save(context.WithoutCancel(ctx), finalState); err != nil {
		return err
	}
	logger.Info().Uint64("version", version).Str("path", store.Path()).Msg("session saved")
	return nil
}

// openStore resolves the snapshot location, letting --load-state override
// the configured path.
func openStore(cfg *config.Config, flags *GlobalFlags, logger zerolog.Logger) (*persist.Store, error) {
	path := flags.StatePath
	if path == "" {
		var err error
		if path, err = cfg.StatePath(); err != nil {
			return nil, err
		}
	}
	return persist.NewStore(path, logger), nil
}

// buildEngine assembles the engine with every executor the effect union
// needs.
func buildEngine(state *domain.StateTree, cfg *config.Config, journal *engine.Journal, metrics engine.Metrics, logger zerolog.Logger) *engine.Engine {
	registry := reducer.NewRegistry(reducerCaps(cfg))

	eng := engine.New(state, registry, logger, engine.Options{
		QueueSize: cfg.Engine.QueueSize,
		HubBuffer: cfg.Engine.HubBuffer,
		Journal:   journal,
		Metrics:   metrics,
		RunnerOptions: []effect.RunnerOption{
			effect.WithParallelism(cfg.Effects.Parallelism),
			effect.WithTimeout(cfg.Effects.Timeout),
		},
	})

	containers := docker.NewContainerExecutor(docker.NewClient())
	for _, t := range []domain.EffectType{
		domain.EffectCreateContainer,
		domain.EffectStartContainer,
		domain.EffectStopContainer,
		domain.EffectRestartContainer,
		domain.EffectRemoveContainer,
		domain.EffectProbeContainers,
	} {
		eng.RegisterExecutor(t, containers)
	}

	worktrees := git.NewWorktreeExecutor(git.NewCLIRunner())
	eng.RegisterExecutor(domain.EffectCreateWorktree, worktrees)
	eng.RegisterExecutor(domain.EffectRemoveWorktreeDir, worktrees)

	servers := mcp.NewServerExecutor(mcp.NewController(logger,
		mcp.WithCommand(cfg.Mcp.Command),
		mcp.WithBasePort(cfg.Mcp.BasePort)))
	eng.RegisterExecutor(domain.EffectSpawnMcpServer, servers)
	eng.RegisterExecutor(domain.EffectShutdownMcpServer, servers)

	eng.RegisterExecutor(domain.EffectCopyEnvFiles,
		envsync.NewCopyExecutor(envsync.NewCopier(logger)))
	eng.RegisterExecutor(domain.EffectEmitNotification, effect.NotifyExecutor{})

	return eng
}

// reducerCaps maps the configured bounds into reducer caps.
func reducerCaps(cfg *config.Config) reducer.Caps {
	return reducer.Caps{
		NotificationCap:    cfg.Caps.Notifications,
		McpLogCap:          cfg.Caps.McpLog,
		McpPayloadMaxBytes: cfg.Caps.McpPayloadMaxBytes,
		RecentProjectsCap:  cfg.Caps.RecentProjects,
		DefaultPorts: map[constants.ServiceType]int{
			constants.ServiceTypeDatabase: cfg.Services.DatabasePort,
			constants.ServiceTypeCache:    cfg.Services.CachePort,
			constants.ServiceTypeBroker:   cfg.Services.BrokerPort,
			constants.ServiceTypeOther:    0,
		},
	}
}

// runDashboard shows the live watch view until the user quits or the
// context is canceled.
func runDashboard(ctx context.Context, eng *engine.Engine) error {
	tui.CheckNoColor()

	snapshots, cancel := eng.Subscribe()
	defer cancel()

	state, version := eng.Snapshot()
	model := tui.NewWatchModel(state, version, snapshots, cancel)
	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		// An interrupt signal kills the program through the context; that is
		// a normal exit and the snapshot still gets saved.
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
