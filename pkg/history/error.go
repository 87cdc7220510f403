package history

import "errors"

// ErrInvalidRole indicates a message role other than user or assistant.
var ErrInvalidRole = errors.New("invalid message role")

// ErrUnavailable indicates the persistence layer cannot be reached.
// Callers degrade to answering without history rather than failing the
// whole request.
var ErrUnavailable = errors.New("history store unavailable")
