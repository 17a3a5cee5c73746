package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

func TestAgentProfiles(t *testing.T) {
	r := NewRegistry(DefaultCaps())

	t.Run("first touch seeds builtins", func(t *testing.T) {
		s, _ := apply(t, r, domain.NewStateTree(), 1, domain.ActionSetAgentRulesEnabled,
			domain.SetAgentRulesEnabledPayload{ProjectID: "prj-1", Enabled: true})

		cfg := s.AgentProfiles["prj-1"]
		assert.True(t, cfg.Enabled)
		require.Len(t, cfg.Profiles, len(domain.BuiltinProfiles()))
		for _, p := range cfg.Profiles {
			assert.True(t, p.BuiltIn)
		}
	})

	t.Run("add user profile", func(t *testing.T) {
		s, _ := apply(t, r, domain.NewStateTree(), 1, domain.ActionAddAgentProfile,
			domain.AddAgentProfilePayload{ProjectID: "prj-1", Name: "reviewer", Rules: "be strict"})

		cfg := s.AgentProfiles["prj-1"]
		added := cfg.Profiles[len(cfg.Profiles)-1]
		assert.Equal(t, "reviewer", added.Name)
		assert.False(t, added.BuiltIn)
	})

	t.Run("update user profile", func(t *testing.T) {
		s, _ := apply(t, r, domain.NewStateTree(), 1, domain.ActionAddAgentProfile,
			domain.AddAgentProfilePayload{ProjectID: "prj-1", Name: "reviewer", Rules: "be strict"})
		cfg := s.AgentProfiles["prj-1"]
		id := cfg.Profiles[len(cfg.Profiles)-1].ID

		s, _ = apply(t, r, s, 2, domain.ActionUpdateAgentProfile,
			domain.UpdateAgentProfilePayload{ProjectID: "prj-1", ProfileID: id, Rules: "be kind"})

		cfg = s.AgentProfiles["prj-1"]
		assert.Equal(t, "be kind", cfg.Profiles[cfg.ProfileIndexByID(id)].Rules)
	})

	t.Run("builtin profiles immutable", func(t *testing.T) {
		s, _ := apply(t, r, domain.NewStateTree(), 1, domain.ActionSetAgentRulesEnabled,
			domain.SetAgentRulesEnabledPayload{ProjectID: "prj-1", Enabled: true})
		builtinID := s.AgentProfiles["prj-1"].Profiles[0].ID

		_, _, err := r.Apply(s, stamp(t, 2, domain.ActionUpdateAgentProfile,
			domain.UpdateAgentProfilePayload{ProjectID: "prj-1", ProfileID: builtinID, Name: "hacked"}))
		require.ErrorIs(t, err, loomerrors.ErrBuiltinImmutable)

		_, _, err = r.Apply(s, stamp(t, 3, domain.ActionDeleteAgentProfile,
			domain.DeleteAgentProfilePayload{ProjectID: "prj-1", ProfileID: builtinID}))
		require.ErrorIs(t, err, loomerrors.ErrBuiltinImmutable)
	})

	t.Run("delete clears active selection", func(t *testing.T) {
		s, _ := apply(t, r, domain.NewStateTree(), 1, domain.ActionAddAgentProfile,
			domain.AddAgentProfilePayload{ProjectID: "prj-1", Name: "reviewer"})
		cfg := s.AgentProfiles["prj-1"]
		id := cfg.Profiles[len(cfg.Profiles)-1].ID
		s, _ = apply(t, r, s, 2, domain.ActionSetActiveProfile,
			domain.SetActiveProfilePayload{ProjectID: "prj-1", ProfileID: id})
		require.Equal(t, id, s.AgentProfiles["prj-1"].ActiveProfileID)

		s, _ = apply(t, r, s, 3, domain.ActionDeleteAgentProfile,
			domain.DeleteAgentProfilePayload{ProjectID: "prj-1", ProfileID: id})

		assert.Empty(t, s.AgentProfiles["prj-1"].ActiveProfileID)
	})

	t.Run("activating unknown profile rejected", func(t *testing.T) {
		_, _, err := r.Apply(domain.NewStateTree(), stamp(t, 1, domain.ActionSetActiveProfile,
			domain.SetActiveProfilePayload{ProjectID: "prj-1", ProfileID: "prf-nope"}))
		require.ErrorIs(t, err, loomerrors.ErrProfileNotFound)
	})
}
