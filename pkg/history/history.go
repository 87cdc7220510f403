// Package history stores bounded per-user conversation logs and language
// preferences. Reads are windowed: a message is visible only while it is
// inside the sliding time window and among the newest messages, and both
// bounds are recomputed on every read.
package history

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role names one of the two message roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Message is one entry in a user's conversation log. The store assigns
// Timestamp at append time, in UTC; it is never mutated afterwards.
type Message struct {
	User      string    `json:"user"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Window bounds what History returns. Both conditions apply together: a
// message is visible only when it is no older than MaxAge AND among the
// newest MaxMessages.
type Window struct {
	MaxAge      time.Duration
	MaxMessages int
}

// DefaultWindow returns the production window of one hour and twenty
// messages.
func DefaultWindow() Window {
	return Window{MaxAge: time.Hour, MaxMessages: 20}
}

// Cutoff returns the oldest visible timestamp relative to now.
func (w Window) Cutoff(now time.Time) time.Time {
	return now.Add(-w.MaxAge)
}

// OrDefault returns w, or the default window when w is zero.
func (w Window) OrDefault() Window {
	if w == (Window{}) {
		return DefaultWindow()
	}
	return w
}
