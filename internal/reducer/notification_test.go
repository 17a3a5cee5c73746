package reducer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomctl/loom/internal/constants"
	"github.com/loomctl/loom/internal/domain"
	loomerrors "github.com/loomctl/loom/internal/errors"
)

func TestNotifications(t *testing.T) {
	caps := DefaultCaps()
	caps.NotificationCap = 3
	r := NewRegistry(caps)

	add := func(t *testing.T, s *domain.StateTree, n int, msg string) *domain.StateTree {
		s, _ = apply(t, r, s, n, domain.ActionAddNotification,
			domain.AddNotificationPayload{Message: msg, Level: constants.NotificationInfo})
		return s
	}

	t.Run("fifo eviction beyond cap", func(t *testing.T) {
		s := domain.NewStateTree()
		for i := 1; i <= 5; i++ {
			s = add(t, s, i, fmt.Sprintf("message %d", i))
		}

		require.Len(t, s.Notifications, 3)
		assert.Equal(t, "message 3", s.Notifications[0].Message, "oldest evicted first")
		assert.Equal(t, "message 5", s.Notifications[2].Message)
	})

	t.Run("mark read", func(t *testing.T) {
		s := add(t, domain.NewStateTree(), 1, "hello")
		id := s.Notifications[0].ID

		s, _ = apply(t, r, s, 2, domain.ActionMarkNotificationRead,
			domain.NotificationRefPayload{NotificationID: id})
		assert.True(t, s.Notifications[0].Read)
	})

	t.Run("dismiss removes entry", func(t *testing.T) {
		s := add(t, domain.NewStateTree(), 1, "hello")
		s = add(t, s, 2, "world")
		id := s.Notifications[0].ID

		s, _ = apply(t, r, s, 3, domain.ActionDismissNotification,
			domain.NotificationRefPayload{NotificationID: id})

		require.Len(t, s.Notifications, 1)
		assert.Equal(t, "world", s.Notifications[0].Message)
	})

	t.Run("unknown id rejected", func(t *testing.T) {
		_, _, err := r.Apply(domain.NewStateTree(), stamp(t, 1, domain.ActionMarkNotificationRead,
			domain.NotificationRefPayload{NotificationID: "ntf-nope"}))
		require.ErrorIs(t, err, loomerrors.ErrNotificationNotFound)
	})

	t.Run("clear empties the feed", func(t *testing.T) {
		s := add(t, domain.NewStateTree(), 1, "hello")
		s, _ = apply(t, r, s, 2, domain.ActionClearNotifications, nil)
		assert.Empty(t, s.Notifications)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		_, _, err := r.Apply(domain.NewStateTree(), stamp(t, 1, domain.ActionAddNotification,
			domain.AddNotificationPayload{Message: ""}))
		require.ErrorIs(t, err, loomerrors.ErrDomainRejected)
	})
}

func TestEffectFailed(t *testing.T) {
	r := NewRegistry(DefaultCaps())

	s, effects := apply(t, r, domain.NewStateTree(), 1, domain.ActionEffectFailed,
		domain.EffectFailedPayload{
			EffectID:    "act-0001/0",
			EffectType:  domain.EffectStartContainer,
			ResourceKey: "container:loom-pg",
			Reason:      "runtime not available",
		})

	assert.Empty(t, effects)
	require.Len(t, s.Notifications, 1)
	assert.Equal(t, constants.NotificationError, s.Notifications[0].Level)
	assert.Contains(t, s.Notifications[0].Message, "start_container failed")
	assert.Contains(t, s.Notifications[0].Message, "runtime not available")
}
