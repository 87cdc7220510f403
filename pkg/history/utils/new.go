// Package historyutils builds history stores from provider
// configuration.
package historyutils

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/history/inmemory"
	"github.com/parlancehq/parlance/pkg/history/postgres"
	"github.com/parlancehq/parlance/pkg/history/sqlite"
)

// HistoryFileName is the sqlite database file created inside the data
// directory.
const HistoryFileName = "history.db"

type NewStoreOpts struct {
	// ProviderType selects the backend: "sqlite", "postgres" or
	// "memory".
	ProviderType string

	// TargetURL is the backend address: a data directory for sqlite, a
	// connection string for postgres, unused for memory.
	TargetURL string

	// Window bounds reads. Zero means the default window.
	Window history.Window

	Logger *zap.Logger
}

// NewStore builds a history store for the configured provider.
func NewStore(ctx context.Context, o *NewStoreOpts) (history.Store, error) {
	switch o.ProviderType {
	case "sqlite":
		if o.TargetURL == "" {
			return nil, fmt.Errorf("sqlite history store requires a data directory")
		}
		return sqlite.NewStore(sqlite.Config{
			DBPath: filepath.Join(o.TargetURL, HistoryFileName),
			Window: o.Window,
		}, o.Logger)
	case "postgres":
		if o.TargetURL == "" {
			return nil, fmt.Errorf("postgres history store requires a connection string")
		}
		return postgres.NewStore(ctx, postgres.Config{
			ConnString: o.TargetURL,
			Window:     o.Window,
		}, o.Logger)
	case "memory":
		return inmemory.NewStore(inmemory.Config{Window: o.Window})
	default:
		return nil, fmt.Errorf("unsupported history provider: %s", o.ProviderType)
	}
}

// WindowFrom converts configured bounds (minutes, count) into a Window;
// zero values keep the defaults.
func WindowFrom(maxAgeMinutes, maxMessages uint) history.Window {
	w := history.DefaultWindow()
	if maxAgeMinutes > 0 {
		w.MaxAge = time.Duration(maxAgeMinutes) * time.Minute
	}
	if maxMessages > 0 {
		w.MaxMessages = int(maxMessages)
	}
	return w
}
