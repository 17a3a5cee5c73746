package reducer

import (
	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// The env-sync group owns EnvConfigs. Configs are keyed by project id, which
// is stable across close/reopen cycles, so sync settings survive.

func (r *Registry) registerEnvSync() {
	r.handlers[domain.ActionAddEnvPattern] = r.addEnvPattern
	r.handlers[domain.ActionRemoveEnvPattern] = r.removeEnvPattern
	r.handlers[domain.ActionSetAutoCopy] = r.setAutoCopy
	r.handlers[domain.ActionCopyEnvFiles] = r.copyEnvFiles
	r.handlers[domain.ActionEnvCopyFinished] = r.envCopyFinished
}

func (r *Registry) addEnvPattern(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.EnvPatternPayload](action)
	if err != nil {
		return nil, err
	}
	if p.Pattern == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "pattern is required")
	}
	cfg := s.EnvConfigs[p.ProjectID]
	if cfg.HasPattern(p.Pattern) {
		// Duplicate pattern: identical state version, nothing to do.
		return nil, nil
	}
	cfg.TrackedPatterns = append(cfg.TrackedPatterns, p.Pattern)
	s.EnvConfigs[p.ProjectID] = cfg
	return nil, nil
}

func (r *Registry) removeEnvPattern(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.EnvPatternPayload](action)
	if err != nil {
		return nil, err
	}
	cfg, ok := s.EnvConfigs[p.ProjectID]
	if !ok {
		return nil, nil
	}
	for i, pat := range cfg.TrackedPatterns {
		if pat == p.Pattern {
			cfg.TrackedPatterns = append(cfg.TrackedPatterns[:i], cfg.TrackedPatterns[i+1:]...)
			s.EnvConfigs[p.ProjectID] = cfg
			return nil, nil
		}
	}
	return nil, nil
}

func (r *Registry) setAutoCopy(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.SetAutoCopyPayload](action)
	if err != nil {
		return nil, err
	}
	cfg := s.EnvConfigs[p.ProjectID]
	cfg.AutoCopyEnabled = p.Enabled
	if p.SourceWorktree != "" {
		cfg.SourceWorktree = p.SourceWorktree
	}
	s.EnvConfigs[p.ProjectID] = cfg
	return nil, nil
}

func (r *Registry) copyEnvFiles(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.CopyEnvFilesPayload](action)
	if err != nil {
		return nil, err
	}
	cfg, ok := s.EnvConfigs[p.ProjectID]
	if !ok || len(cfg.TrackedPatterns) == 0 {
		return nil, rejected(loomerrors.ErrEmptyValue, "project %s has no tracked patterns", p.ProjectID)
	}
	if p.FromWorktreePath == "" || p.ToWorktreePath == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "source and destination worktree paths are required")
	}

	eff := domain.NewEffect(
		effectID(action, 0),
		domain.EffectCopyEnvFiles,
		"envcopy:"+p.ToWorktreePath,
		domain.CopyEnvFilesEffectPayload{
			ProjectID: p.ProjectID,
			FromPath:  p.FromWorktreePath,
			ToPath:    p.ToWorktreePath,
			Patterns:  append([]string(nil), cfg.TrackedPatterns...),
		},
	)
	return []domain.Effect{eff}, nil
}

// envCopyFinished commits the copy outcome. The result replaces the previous
// one wholesale; partial results never merge.
func (r *Registry) envCopyFinished(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.EnvCopyFinishedPayload](action)
	if err != nil {
		return nil, err
	}
	cfg, ok := s.EnvConfigs[p.ProjectID]
	if !ok {
		return nil, nil
	}
	result := p.Result
	cfg.LastCopyResult = &result
	s.EnvConfigs[p.ProjectID] = cfg

	if len(result.FailedFiles) > 0 {
		return []domain.Effect{
			notifyEffect(action, 0, constants.NotificationWarning,
				"env copy finished: %d copied, %d failed", len(result.CopiedFiles), len(result.FailedFiles)),
		}, nil
	}
	return nil, nil
}
