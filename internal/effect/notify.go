package effect

import (
	"context"

	"github.com/loomctl/loom/internal/domain"
)

// NotifyExecutor resolves EmitNotification effects. Reducers may not write
// the notifications slice from another domain, so the request takes a round
// trip through this executor and re-enters as an AddNotification action.
type NotifyExecutor struct{}

// Ensure NotifyExecutor implements Executor interface.
var _ Executor = (*NotifyExecutor)(nil)

// Execute implements Executor.
func (NotifyExecutor) Execute(_ context.Context, eff domain.Effect) ([]domain.Action, error) {
	p, err := domain.DecodeEffectPayload[domain.EmitNotificationPayload](eff)
	if err != nil {
		return nil, err
	}
	return []domain.Action{
		domain.MustAction(domain.ActionAddNotification, domain.AddNotificationPayload{
			Message: p.Message,
			Level:   p.Level,
		}),
	}, nil
}
