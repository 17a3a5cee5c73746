package reducer

import (
	"path/filepath"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// The projects group owns Projects, the two cursors, and RecentProjects.

func (r *Registry) registerProjects() {
	r.handlers[domain.ActionOpenProject] = r.openProject
	r.handlers[domain.ActionCloseProject] = r.closeProject
	r.handlers[domain.ActionSelectProject] = r.selectProject
	r.handlers[domain.ActionSelectWorktree] = r.selectWorktree
	r.handlers[domain.ActionAddWorktree] = r.addWorktree
	r.handlers[domain.ActionAddWorktreeNewBranch] = r.addWorktreeNewBranch
	r.handlers[domain.ActionRemoveWorktree] = r.removeWorktree
	r.handlers[domain.ActionWorktreeCreated] = r.worktreeCreated
	r.handlers[domain.ActionWorktreeRemoved] = r.worktreeRemoved
	r.handlers[domain.ActionSetWorktreeModified] = r.setWorktreeModified
}

func (r *Registry) openProject(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.OpenProjectPayload](action)
	if err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "project path is required")
	}
	path := filepath.Clean(p.Path)

	// Already open: switch focus, refresh recency, nothing else changes.
	if idx := s.ProjectIndexByPath(path); idx >= 0 {
		s.ActiveProjectIndex = idx
		s.ActiveWorktreeIndex = mainWorktreeIndex(&s.Projects[idx])
		r.touchRecent(s, path, action)
		return nil, nil
	}

	projectID := stableID("prj", path)
	main := domain.Worktree{
		ID:     stableID("wt", path),
		Path:   path,
		Branch: "",
		IsMain: true,
	}
	s.Projects = append(s.Projects, domain.Project{
		ID:        projectID,
		Path:      path,
		Name:      filepath.Base(path),
		Worktrees: []domain.Worktree{main},
	})
	s.ActiveProjectIndex = len(s.Projects) - 1
	s.ActiveWorktreeIndex = 0
	r.touchRecent(s, path, action)
	return nil, nil
}

func (r *Registry) closeProject(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.CloseProjectPayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProjectNotFound, "%s", p.ProjectID)
	}

	// Closing a project must release any MCP server owned by its worktrees,
	// active tab or not. The shutdown is requested per worktree; shutting
	// down a server that is not running completes as a no-op.
	var effects []domain.Effect
	for i := range s.Projects[idx].Worktrees {
		wt := &s.Projects[idx].Worktrees[i]
		effects = append(effects, domain.NewEffect(
			effectID(action, len(effects)),
			domain.EffectShutdownMcpServer,
			"mcp:"+wt.ID,
			domain.ShutdownMcpServerPayload{WorktreeID: wt.ID},
		))
	}

	s.Projects = append(s.Projects[:idx], s.Projects[idx+1:]...)

	switch {
	case len(s.Projects) == 0:
		s.ActiveProjectIndex = -1
		s.ActiveWorktreeIndex = -1
	case s.ActiveProjectIndex > idx:
		// A tab left of the active one disappeared; the cursor shifts with it.
		s.ActiveProjectIndex--
	case s.ActiveProjectIndex == idx:
		// The active tab closed; select the previous tab, clamped.
		if s.ActiveProjectIndex >= len(s.Projects) {
			s.ActiveProjectIndex = len(s.Projects) - 1
		}
		s.ActiveWorktreeIndex = mainWorktreeIndex(&s.Projects[s.ActiveProjectIndex])
	}
	return effects, nil
}

func (r *Registry) selectProject(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.SelectProjectPayload](action)
	if err != nil {
		return nil, err
	}
	if p.Index < 0 || p.Index >= len(s.Projects) {
		return nil, rejected(loomerrors.ErrValueOutOfRange, "project index %d of %d", p.Index, len(s.Projects))
	}
	s.ActiveProjectIndex = p.Index
	s.ActiveWorktreeIndex = mainWorktreeIndex(&s.Projects[p.Index])
	return nil, nil
}

func (r *Registry) selectWorktree(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.SelectWorktreePayload](action)
	if err != nil {
		return nil, err
	}
	project := s.ActiveProject()
	if project == nil {
		return nil, rejected(loomerrors.ErrProjectNotFound, "no active project")
	}
	if p.Index < 0 || p.Index >= len(project.Worktrees) {
		return nil, rejected(loomerrors.ErrValueOutOfRange, "worktree index %d of %d", p.Index, len(project.Worktrees))
	}
	s.ActiveWorktreeIndex = p.Index
	return nil, nil
}

func (r *Registry) addWorktree(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.AddWorktreePayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProjectNotFound, "%s", p.ProjectID)
	}
	project := &s.Projects[idx]
	path := filepath.Clean(p.Path)
	if project.WorktreeIndexByPath(path) >= 0 {
		return nil, rejected(loomerrors.ErrWorktreeExists, "%s", path)
	}
	if p.Branch != "" && project.HasBranch(p.Branch) {
		return nil, rejected(loomerrors.ErrBranchExists, "%s", p.Branch)
	}
	project.Worktrees = append(project.Worktrees, domain.Worktree{
		ID:     stableID("wt", path),
		Path:   path,
		Branch: p.Branch,
	})
	return nil, nil
}

func (r *Registry) addWorktreeNewBranch(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.AddWorktreeNewBranchPayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProjectNotFound, "%s", p.ProjectID)
	}
	if p.Name == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "worktree name is required")
	}
	project := &s.Projects[idx]
	if project.HasBranch(p.Name) {
		return nil, rejected(loomerrors.ErrBranchExists, "%s", p.Name)
	}

	// State stays unchanged until the worktree actually exists on disk; the
	// WorktreeCreated completion commits the new entry.
	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectCreateWorktree,
		"worktree:"+project.Path+"#"+p.Name,
		domain.CreateWorktreePayload{
			ProjectID:  project.ID,
			RepoPath:   project.Path,
			Name:       p.Name,
			Branch:     p.Name,
			BaseBranch: p.BaseBranch,
		},
	)
	return []domain.Effect{eff}, nil
}

func (r *Registry) removeWorktree(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.RemoveWorktreePayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProjectNotFound, "%s", p.ProjectID)
	}
	project := &s.Projects[idx]
	wtIdx := project.WorktreeIndexByID(p.WorktreeID)
	if wtIdx < 0 {
		return nil, rejected(loomerrors.ErrWorktreeNotFound, "%s", p.WorktreeID)
	}
	wt := project.Worktrees[wtIdx]
	if wt.IsMain {
		return nil, rejected(loomerrors.ErrMainWorktree, "%s", wt.Path)
	}
	if wt.IsModified && !p.Force {
		return nil, rejected(loomerrors.ErrResourceBusy, "worktree %s has uncommitted changes", wt.Path)
	}

	// The entry survives until WorktreeRemoved confirms the directory is gone.
	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectRemoveWorktreeDir,
		"worktree:"+wt.Path,
		domain.RemoveWorktreeDirPayload{
			ProjectID:  project.ID,
			WorktreeID: wt.ID,
			RepoPath:   project.Path,
			Path:       wt.Path,
			Force:      p.Force,
		},
	)
	return []domain.Effect{eff}, nil
}

func (r *Registry) worktreeCreated(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.WorktreeCreatedPayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		// Project closed while the effect was in flight.
		return nil, nil
	}
	project := &s.Projects[idx]
	if project.WorktreeIndexByPath(p.Path) >= 0 {
		return nil, nil
	}
	project.Worktrees = append(project.Worktrees, domain.Worktree{
		ID:     p.WorktreeID,
		Path:   p.Path,
		Branch: p.Branch,
	})
	if idx == s.ActiveProjectIndex {
		s.ActiveWorktreeIndex = len(project.Worktrees) - 1
	}
	effects := []domain.Effect{
		notifyEffect(action, 0, constants.NotificationSuccess, "worktree %s created on branch %s", p.Path, p.Branch),
	}
	// Auto-copy seeds the fresh worktree with the project's tracked env
	// files. The env-sync config is read-only here; the copy outcome lands
	// through EnvCopyFinished.
	if cfg, ok := s.EnvConfigs[p.ProjectID]; ok && cfg.AutoCopyEnabled && len(cfg.TrackedPatterns) > 0 {
		from := cfg.SourceWorktree
		if from == "" {
			if mainIdx := mainWorktreeIndex(project); mainIdx >= 0 {
				from = project.Worktrees[mainIdx].Path
			}
		}
		if from != "" && from != p.Path {
			effects = append(effects, domain.NewEffect(
				effectID(action, len(effects)),
				domain.EffectCopyEnvFiles,
				"envcopy:"+p.Path,
				domain.CopyEnvFilesEffectPayload{
					ProjectID: p.ProjectID,
					FromPath:  from,
					ToPath:    p.Path,
					Patterns:  append([]string(nil), cfg.TrackedPatterns...),
				},
			))
		}
	}
	return effects, nil
}

func (r *Registry) worktreeRemoved(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.WorktreeRemovedPayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		return nil, nil
	}
	project := &s.Projects[idx]
	wtIdx := project.WorktreeIndexByID(p.WorktreeID)
	if wtIdx < 0 {
		return nil, nil
	}
	project.Worktrees = append(project.Worktrees[:wtIdx], project.Worktrees[wtIdx+1:]...)
	if idx == s.ActiveProjectIndex && s.ActiveWorktreeIndex >= len(project.Worktrees) {
		s.ActiveWorktreeIndex = len(project.Worktrees) - 1
	}
	return nil, nil
}

func (r *Registry) setWorktreeModified(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.SetWorktreeModifiedPayload](action)
	if err != nil {
		return nil, err
	}
	idx := s.ProjectIndexByID(p.ProjectID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProjectNotFound, "%s", p.ProjectID)
	}
	project := &s.Projects[idx]
	wtIdx := project.WorktreeIndexByID(p.WorktreeID)
	if wtIdx < 0 {
		return nil, rejected(loomerrors.ErrWorktreeNotFound, "%s", p.WorktreeID)
	}
	project.Worktrees[wtIdx].IsModified = p.Modified
	return nil, nil
}

// touchRecent moves path to the front of RecentProjects, deduplicated and
// capped. The timestamp is the action's submission stamp.
func (r *Registry) touchRecent(s *domain.StateTree, path string, action domain.Action) {
	entry := domain.RecentProject{Path: path, OpenedAt: action.Time}
	out := make([]domain.RecentProject, 0, len(s.RecentProjects)+1)
	out = append(out, entry)
	for _, rp := range s.RecentProjects {
		if rp.Path == path {
			continue
		}
		out = append(out, rp)
	}
	if len(out) > r.caps.RecentProjectsCap {
		out = out[:r.caps.RecentProjectsCap]
	}
	s.RecentProjects = out
}

// mainWorktreeIndex returns the index of the project's main worktree,
// falling back to 0.
func mainWorktreeIndex(p *domain.Project) int {
	for i := range p.Worktrees {
		if p.Worktrees[i].IsMain {
			return i
		}
	}
	return 0
}
