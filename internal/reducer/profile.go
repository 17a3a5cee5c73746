package reducer

import (
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// The agent-profiles group owns AgentProfiles. Built-in profiles are seeded
// on first touch and can never be edited or deleted.

func (r *Registry) registerProfiles() {
	r.handlers[domain.ActionSetAgentRulesEnabled] = r.setAgentRulesEnabled
	r.handlers[domain.ActionAddAgentProfile] = r.addAgentProfile
	r.handlers[domain.ActionUpdateAgentProfile] = r.updateAgentProfile
	r.handlers[domain.ActionDeleteAgentProfile] = r.deleteAgentProfile
	r.handlers[domain.ActionSetActiveProfile] = r.setActiveProfile
}

func (r *Registry) setAgentRulesEnabled(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.SetAgentRulesEnabledPayload](action)
	if err != nil {
		return nil, err
	}
	cfg := profileConfig(s, p.ProjectID)
	cfg.Enabled = p.Enabled
	s.AgentProfiles[p.ProjectID] = cfg
	return nil, nil
}

func (r *Registry) addAgentProfile(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.AddAgentProfilePayload](action)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "profile name is required")
	}
	cfg := profileConfig(s, p.ProjectID)
	cfg.Profiles = append(cfg.Profiles, domain.AgentProfile{
		ID:    stableID("prf", action.ID),
		Name:  p.Name,
		Rules: p.Rules,
	})
	s.AgentProfiles[p.ProjectID] = cfg
	return nil, nil
}

func (r *Registry) updateAgentProfile(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.UpdateAgentProfilePayload](action)
	if err != nil {
		return nil, err
	}
	cfg := profileConfig(s, p.ProjectID)
	idx := cfg.ProfileIndexByID(p.ProfileID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProfileNotFound, "%s", p.ProfileID)
	}
	if cfg.Profiles[idx].BuiltIn {
		return nil, rejected(loomerrors.ErrBuiltinImmutable, "%s", p.ProfileID)
	}
	if p.Name != "" {
		cfg.Profiles[idx].Name = p.Name
	}
	if p.Rules != "" {
		cfg.Profiles[idx].Rules = p.Rules
	}
	s.AgentProfiles[p.ProjectID] = cfg
	return nil, nil
}

func (r *Registry) deleteAgentProfile(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.DeleteAgentProfilePayload](action)
	if err != nil {
		return nil, err
	}
	cfg := profileConfig(s, p.ProjectID)
	idx := cfg.ProfileIndexByID(p.ProfileID)
	if idx < 0 {
		return nil, rejected(loomerrors.ErrProfileNotFound, "%s", p.ProfileID)
	}
	if cfg.Profiles[idx].BuiltIn {
		return nil, rejected(loomerrors.ErrBuiltinImmutable, "%s", p.ProfileID)
	}
	cfg.Profiles = append(cfg.Profiles[:idx], cfg.Profiles[idx+1:]...)
	if cfg.ActiveProfileID == p.ProfileID {
		cfg.ActiveProfileID = ""
	}
	s.AgentProfiles[p.ProjectID] = cfg
	return nil, nil
}

func (r *Registry) setActiveProfile(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.SetActiveProfilePayload](action)
	if err != nil {
		return nil, err
	}
	cfg := profileConfig(s, p.ProjectID)
	if p.ProfileID != "" && cfg.ProfileIndexByID(p.ProfileID) < 0 {
		return nil, rejected(loomerrors.ErrProfileNotFound, "%s", p.ProfileID)
	}
	cfg.ActiveProfileID = p.ProfileID
	s.AgentProfiles[p.ProjectID] = cfg
	return nil, nil
}

// profileConfig fetches a project's rules config, seeding the built-in
// profiles on first touch.
func profileConfig(s *domain.StateTree, projectID string) domain.AgentRulesConfig {
	if cfg, ok := s.AgentProfiles[projectID]; ok {
		return cfg
	}
	return domain.AgentRulesConfig{Profiles: domain.BuiltinProfiles()}
}
