package domain

// AgentRulesConfig is the per-project configuration for agent rules profiles.
type AgentRulesConfig struct {
	// Enabled toggles rules injection for the project.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Profiles is the ordered list of profiles. IDs are unique. Built-in
	// profiles are immutable: edit and delete requests are rejected.
	Profiles []AgentProfile `json:"profiles" yaml:"profiles"`

	// ActiveProfileID selects the profile in effect, empty for none.
	ActiveProfileID string `json:"active_profile_id,omitempty" yaml:"active_profile_id,omitempty"`
}

func (c AgentRulesConfig) clone() AgentRulesConfig {
	c.Profiles = append([]AgentProfile(nil), c.Profiles...)
	return c
}

// ProfileIndexByID returns the index of the profile with the given id, or -1.
func (c *AgentRulesConfig) ProfileIndexByID(id string) int {
	for i := range c.Profiles {
		if c.Profiles[i].ID == id {
			return i
		}
	}
	return -1
}

// AgentProfile is one named set of agent rules.
type AgentProfile struct {
	// ID is the unique identifier within the project's profile list.
	ID string `json:"id" yaml:"id"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`

	// Rules is the rules text injected when the profile is active.
	Rules string `json:"rules" yaml:"rules"`

	// BuiltIn marks profiles shipped with loom. Built-in profiles cannot be
	// edited or deleted.
	BuiltIn bool `json:"built_in" yaml:"built_in"`
}

// BuiltinProfiles returns the profiles seeded into every new project config.
func BuiltinProfiles() []AgentProfile {
	return []AgentProfile{
		{
			ID:      "builtin-default",
			Name:    "Default",
			Rules:   "Follow the repository conventions. Keep changes minimal and focused.",
			BuiltIn: true,
		},
		{
			ID:      "builtin-strict",
			Name:    "Strict review",
			Rules:   "Every change requires tests. Never modify generated files.",
			BuiltIn: true,
		},
	}
}
