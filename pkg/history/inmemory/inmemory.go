// Package inmemory keeps conversation history in process memory. It
// backs tests and scratch environments; nothing survives a restart.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/history"
)

// Config holds the settings for an in-memory history store.
type Config struct {
	// Window bounds reads. Zero means the default one hour and twenty
	// messages.
	Window history.Window

	// Now is the clock reads window against. Defaults to time.Now.
	Now func() time.Time
}

// Store is an in-memory history store.
type Store struct {
	window history.Window
	now    func() time.Time
	locks  *history.LockTable

	mu    sync.Mutex
	msgs  map[string][]history.Message
	prefs map[string]document.Language
}

var _ history.Store = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	window := cfg.Window.OrDefault()
	if window.MaxAge <= 0 || window.MaxMessages <= 0 {
		return nil, fmt.Errorf("history window requires a positive max age and message count")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		window: window,
		now:    now,
		locks:  history.NewLockTable(history.DefaultLockShards),
		msgs:   make(map[string][]history.Message),
		prefs:  make(map[string]document.Language),
	}, nil
}

func (s *Store) AddMessage(_ context.Context, user, role, content string) error {
	if user == "" {
		return fmt.Errorf("user id is required")
	}
	if !history.ValidRole(role) {
		return fmt.Errorf("%w: %q", history.ErrInvalidRole, role)
	}
	defer s.locks.Lock(user)()

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.msgs[user], history.Message{
		User:      user,
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	})
	// Entries beyond the newest MaxMessages could never be read again.
	if len(list) > s.window.MaxMessages {
		list = list[len(list)-s.window.MaxMessages:]
	}
	s.msgs[user] = list
	return nil
}

func (s *Store) History(_ context.Context, user string) ([]history.Message, error) {
	if user == "" {
		return nil, fmt.Errorf("user id is required")
	}
	defer s.locks.Lock(user)()

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.window.Cutoff(s.now().UTC())
	visible := []history.Message{}
	for _, m := range s.msgs[user] {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		visible = append(visible, m)
	}
	return visible, nil
}

func (s *Store) Reset(_ context.Context, user string) error {
	if user == "" {
		return fmt.Errorf("user id is required")
	}
	defer s.locks.Lock(user)()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.msgs, user)
	return nil
}

func (s *Store) SetLanguage(_ context.Context, user string, lang document.Language) error {
	if user == "" {
		return fmt.Errorf("user id is required")
	}
	if lang == "" {
		return fmt.Errorf("language is required")
	}
	defer s.locks.Lock(user)()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[user] = lang
	return nil
}

func (s *Store) UserLanguage(_ context.Context, user string, def document.Language) (document.Language, error) {
	if user == "" {
		return "", fmt.Errorf("user id is required")
	}
	defer s.locks.Lock(user)()

	s.mu.Lock()
	defer s.mu.Unlock()
	if lang, ok := s.prefs[user]; ok {
		return lang, nil
	}
	return def, nil
}

func (s *Store) Close() error {
	return nil
}
