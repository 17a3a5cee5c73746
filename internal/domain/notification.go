package domain

import (
	"time"

	"github.com/loomctl/loom/internal/constants"
)

// Notification is one entry in the bounded notification feed. Failures that
// are user-visible surface here rather than as out-of-band logging, so the
// UI discovers them through the same state it already observes.
type Notification struct {
	// ID is the unique identifier for the notification.
	ID string `json:"id" yaml:"id"`

	// Message is the human-readable text.
	Message string `json:"message" yaml:"message"`

	// Level is the severity classification.
	Level constants.NotificationLevel `json:"level" yaml:"level"`

	// Timestamp is when the notification was created.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Read marks whether the user has seen the notification.
	Read bool `json:"read" yaml:"read"`
}
