// Package clock abstracts the time source. Action stamping, effect metrics
// and notification timestamps all read through a Clock so tests can pin time
// to fixed instants instead of sleeping.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

var _ Clock = RealClock{}
