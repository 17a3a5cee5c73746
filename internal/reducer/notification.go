package reducer

import (
	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

// The notifications group owns the Notifications feed. EffectFailed lands
// here too: a failed or panicked effect surfaces as an error notification.

func (r *Registry) registerNotifications() {
	r.handlers[domain.ActionAddNotification] = r.addNotification
	r.handlers[domain.ActionMarkNotificationRead] = r.markNotificationRead
	r.handlers[domain.ActionDismissNotification] = r.dismissNotification
	r.handlers[domain.ActionClearNotifications] = r.clearNotifications
	r.handlers[domain.ActionEffectFailed] = r.effectFailed
}

func (r *Registry) addNotification(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.AddNotificationPayload](action)
	if err != nil {
		return nil, err
	}
	if p.Message == "" {
		return nil, rejected(loomerrors.ErrEmptyValue, "notification message is required")
	}
	r.appendNotification(s, action, p.Message, p.Level)
	return nil, nil
}

func (r *Registry) markNotificationRead(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.NotificationRefPayload](action)
	if err != nil {
		return nil, err
	}
	for i := range s.Notifications {
		if s.Notifications[i].ID == p.NotificationID {
			s.Notifications[i].Read = true
			return nil, nil
		}
	}
	return nil, rejected(loomerrors.ErrNotificationNotFound, "%s", p.NotificationID)
}

func (r *Registry) dismissNotification(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.NotificationRefPayload](action)
	if err != nil {
		return nil, err
	}
	for i := range s.Notifications {
		if s.Notifications[i].ID == p.NotificationID {
			s.Notifications = append(s.Notifications[:i], s.Notifications[i+1:]...)
			return nil, nil
		}
	}
	return nil, rejected(loomerrors.ErrNotificationNotFound, "%s", p.NotificationID)
}

func (r *Registry) clearNotifications(s *domain.StateTree, _ domain.Action) ([]domain.Effect, error) {
	s.Notifications = []domain.Notification{}
	return nil, nil
}

func (r *Registry) effectFailed(s *domain.StateTree, action domain.Action) ([]domain.Effect, error) {
	p, err := domain.DecodePayload[domain.EffectFailedPayload](action)
	if err != nil {
		return nil, err
	}
	r.appendNotification(s, action,
		string(p.EffectType)+" failed: "+p.Reason,
		constants.NotificationError)
	return nil, nil
}

// appendNotification adds one entry and evicts the oldest past the cap. The
// id and timestamp derive from the action so replays reproduce them exactly.
func (r *Registry) appendNotification(s *domain.StateTree, action domain.Action, message string, level constants.NotificationLevel) {
	if level == "" {
		level = constants.NotificationInfo
	}
	s.Notifications = append(s.Notifications, domain.Notification{
		ID:        stableID("ntf", action.ID),
		Message:   message,
		Level:     level,
		Timestamp: action.Time,
	})
	if len(s.Notifications) > r.caps.NotificationCap {
		s.Notifications = s.Notifications[len(s.Notifications)-r.caps.NotificationCap:]
	}
}
