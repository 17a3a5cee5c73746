// Package reducer provides the pure state-transition functions of the loom
// engine. Given identical (state, action) inputs a reducer always returns
// identical (next state, effects) outputs; nothing in this package performs
// I/O, reads clocks, or generates randomness. Timestamps come from the
// action's submission stamp and derived ids are hashed from stable inputs,
// which is what makes recorded action sequences replayable.
//
// Each domain owns its slice of the StateTree and must not write another
// domain's slice; cross-domain consequences are expressed as Effects.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/engine, internal/effect, internal/cli
package reducer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// Caps carries the bounded-collection limits and resource defaults reducers
// need. Values are injected from config once at startup; reducers themselves
// never read configuration.
type Caps struct {
	// NotificationCap bounds StateTree.Notifications (FIFO eviction).
	NotificationCap int

	// McpLogCap bounds McpServerRecord.LogEntries (ring, silent drop).
	McpLogCap int

	// McpPayloadMaxBytes is the threshold above which MCP log payloads are
	// replaced with a placeholder annotation.
	McpPayloadMaxBytes int

	// RecentProjectsCap bounds StateTree.RecentProjects.
	RecentProjectsCap int

	// DefaultPorts maps service types to their default host port.
	DefaultPorts map[constants.ServiceType]int
}

// DefaultCaps returns the built-in limits.
func DefaultCaps() Caps {
	return Caps{
		NotificationCap:    constants.DefaultNotificationCap,
		McpLogCap:          constants.DefaultMcpLogCap,
		McpPayloadMaxBytes: constants.DefaultMcpPayloadMaxBytes,
		RecentProjectsCap:  constants.DefaultRecentProjectsCap,
		DefaultPorts: map[constants.ServiceType]int{
			constants.ServiceTypeDatabase: constants.DefaultDatabasePort,
			constants.ServiceTypeCache:    constants.DefaultCachePort,
			constants.ServiceTypeBroker:   constants.DefaultBrokerPort,
			constants.ServiceTypeOther:    0,
		},
	}
}

// handler mutates its private clone of the state and returns the effects the
// transition requests. Returning an error leaves the committed state untouched.
type handler func(state *domain.StateTree, action domain.Action) ([]domain.Effect, error)

// Registry routes actions to the owning reducer group.
type Registry struct {
	caps     Caps
	handlers map[domain.ActionType]handler
}

// NewRegistry builds a registry with every domain group registered.
func NewRegistry(caps Caps) *Registry {
	r := &Registry{caps: caps, handlers: make(map[domain.ActionType]handler)}
	r.registerProjects()
	r.registerServices()
	r.registerMcp()
	r.registerNotifications()
	r.registerEnvSync()
	r.registerProfiles()
	return r
}

// Apply runs the owning reducer against an immutable view of state and
// returns the next version. On any error the input state is returned
// unchanged and no effects are produced; no partial mutation is ever visible.
func (r *Registry) Apply(state *domain.StateTree, action domain.Action) (*domain.StateTree, []domain.Effect, error) {
	if !domain.IsKnownActionType(action.Type) {
		return state, nil, fmt.Errorf("%w: %q", loomerrors.ErrUnknownAction, action.Type)
	}
	h, ok := r.handlers[action.Type]
	if !ok {
		return state, nil, fmt.Errorf("%w: %q has no registered reducer", loomerrors.ErrUnknownAction, action.Type)
	}

	next := state.Clone()
	effects, err := h(next, action)
	if err != nil {
		return state, nil, err
	}
	return next, effects, nil
}

// rejected wraps a sentinel into the DomainRejected category with a reason.
func rejected(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", loomerrors.ErrDomainRejected, sentinel, fmt.Sprintf(format, args...))
}

// effectID derives the nth effect id from the originating action, keeping
// effect identity a pure function of the action.
func effectID(action domain.Action, n int) string {
	return fmt.Sprintf("%s/%d", action.ID, n)
}

// stableID hashes a namespace and a stable key (usually a path) into a short
// identifier. Reopening the same project yields the same id, which is what
// lets per-project config maps survive a close/reopen cycle.
func stableID(prefix, key string) string {
	sum := sha256.Sum256([]byte(key))
	return prefix + "-" + hex.EncodeToString(sum[:6])
}

// notifyEffect builds the cross-domain notification request.
func notifyEffect(action domain.Action, n int, level constants.NotificationLevel, format string, args ...any) domain.Effect {
	return domain.NewEffect(effectID(action, n), domain.EffectEmitNotification, effectID(action, n),
		domain.EmitNotificationPayload{
			Message: fmt.Sprintf(format, args...),
			Level:   level,
		})
}
