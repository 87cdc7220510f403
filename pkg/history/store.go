package history

import (
	"context"

	"github.com/parlancehq/parlance/pkg/document"
)

// Store persists conversation logs and language preferences. Operations
// for the same user are serialized; different users proceed concurrently.
type Store interface {
	// AddMessage appends a message with a store-assigned UTC timestamp.
	AddMessage(ctx context.Context, user, role, content string) error

	// History returns the user's visible messages in ascending timestamp
	// order, windowed against the clock at call time.
	History(ctx context.Context, user string) ([]Message, error)

	// Reset deletes all of the user's messages. The language preference
	// survives a reset.
	Reset(ctx context.Context, user string) error

	// SetLanguage persists the user's language preference.
	SetLanguage(ctx context.Context, user string, lang document.Language) error

	// UserLanguage returns the stored preference, or def when unset. An
	// unset preference is not an error.
	UserLanguage(ctx context.Context, user string, def document.Language) (document.Language, error)

	Close() error
}
