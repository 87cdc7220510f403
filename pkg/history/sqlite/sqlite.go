// Package sqlite persists conversation history in a SQLite database. It
// is the default history store: one file under the dot directory, no
// external service.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/history"
)

// Timestamps are unix nanoseconds in UTC; integer comparison keeps the
// window filter exact.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_user_ts ON messages (user_id, ts);

CREATE TABLE IF NOT EXISTS prefs (
	user_id TEXT PRIMARY KEY,
	language TEXT NOT NULL
);
`

// Config holds the settings for a SQLite history store.
type Config struct {
	// DBPath is the database file path. Required.
	DBPath string

	// Window bounds reads. Zero means the default one hour and twenty
	// messages.
	Window history.Window

	// Now is the clock reads window against. Defaults to time.Now.
	Now func() time.Time
}

// Store is a SQLite-backed history store.
type Store struct {
	db     *sql.DB
	window history.Window
	now    func() time.Time
	locks  *history.LockTable
	logger *zap.Logger
}

var _ history.Store = (*Store)(nil)

// NewStore opens the history database at cfg.DBPath, creating the file
// and schema when absent.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	window := cfg.Window.OrDefault()
	if window.MaxAge <= 0 || window.MaxMessages <= 0 {
		return nil, fmt.Errorf("history window requires a positive max age and message count")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening history database: %v", history.ErrUnavailable, err)
	}
	// Single connection: sqlite is single-writer, and :memory: databases
	// exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating history schema: %v", history.ErrUnavailable, err)
	}

	logger.Debug("history store opened", zap.String("path", cfg.DBPath))

	return &Store{
		db:     db,
		window: window,
		now:    now,
		locks:  history.NewLockTable(history.DefaultLockShards),
		logger: logger,
	}, nil
}

func (s *Store) AddMessage(ctx context.Context, user, role, content string) error {
	if user == "" {
		return fmt.Errorf("user id is required")
	}
	if !history.ValidRole(role) {
		return fmt.Errorf("%w: %q", history.ErrInvalidRole, role)
	}
	defer s.locks.Lock(user)()

	ts := s.now().UTC().UnixNano()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (user_id, ts, role, content) VALUES (?, ?, ?, ?)`,
		user, ts, role, content,
	); err != nil {
		return fmt.Errorf("%w: appending message: %v", history.ErrUnavailable, err)
	}
	return s.prune(ctx, user)
}

// prune drops rows beyond the newest MaxMessages for the user. Reads cap
// at MaxMessages, so the dropped rows could never become visible again.
func (s *Store) prune(ctx context.Context, user string) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE user_id = ? AND id NOT IN (
			SELECT id FROM messages WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?
		)`,
		user, user, s.window.MaxMessages,
	); err != nil {
		return fmt.Errorf("%w: pruning history: %v", history.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, user string) ([]history.Message, error) {
	if user == "" {
		return nil, fmt.Errorf("user id is required")
	}
	defer s.locks.Lock(user)()

	cutoff := s.window.Cutoff(s.now().UTC()).UnixNano()
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, role, content FROM messages
		WHERE user_id = ? AND ts >= ?
		ORDER BY ts DESC, id DESC
		LIMIT ?`,
		user, cutoff, s.window.MaxMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: reading history: %v", history.ErrUnavailable, err)
	}
	defer rows.Close()

	msgs := []history.Message{}
	for rows.Next() {
		var (
			ts            int64
			role, content string
		)
		if err := rows.Scan(&ts, &role, &content); err != nil {
			return nil, fmt.Errorf("%w: scanning message: %v", history.ErrUnavailable, err)
		}
		msgs = append(msgs, history.Message{
			User:      user,
			Role:      role,
			Content:   content,
			Timestamp: time.Unix(0, ts).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading history: %v", history.ErrUnavailable, err)
	}

	// The newest-first query caps the count; reversing restores
	// chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) Reset(ctx context.Context, user string) error {
	if user == "" {
		return fmt.Errorf("user id is required")
	}
	defer s.locks.Lock(user)()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, user); err != nil {
		return fmt.Errorf("%w: resetting history: %v", history.ErrUnavailable, err)
	}
	s.logger.Debug("history reset", zap.String("user", user))
	return nil
}

func (s *Store) SetLanguage(ctx context.Context, user string, lang document.Language) error {
	if user == "" {
		return fmt.Errorf("user id is required")
	}
	if lang == "" {
		return fmt.Errorf("language is required")
	}
	defer s.locks.Lock(user)()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (user_id, language) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET language = excluded.language`,
		user, lang.String(),
	); err != nil {
		return fmt.Errorf("%w: storing language preference: %v", history.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) UserLanguage(ctx context.Context, user string, def document.Language) (document.Language, error) {
	if user == "" {
		return "", fmt.Errorf("user id is required")
	}
	defer s.locks.Lock(user)()

	var lang string
	err := s.db.QueryRowContext(ctx, `SELECT language FROM prefs WHERE user_id = ?`, user).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading language preference: %v", history.ErrUnavailable, err)
	}
	return document.Language(lang), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
