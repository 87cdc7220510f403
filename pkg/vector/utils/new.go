// Package vectorutils is the vector store utility package
package vectorutils

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/vector"
	"github.com/parlancehq/parlance/pkg/vector/chroma"
	"github.com/parlancehq/parlance/pkg/vector/qdrant"
	"github.com/parlancehq/parlance/pkg/vector/sqlitevec"
)

type NewStoreOpts struct {
	ProviderType string

	// TargetURL is the backend address: a data directory for sqlite
	// stores, a server URL for chroma, host[:port] for qdrant.
	TargetURL string

	// Language scopes the store: sqlite stores live in their own
	// database file per language, chroma and qdrant in their own
	// collection per language.
	Language document.Language

	Dimensions uint
	Logger     *zap.Logger
}

func NewStore(o *NewStoreOpts) (vector.Store, error) {
	switch o.ProviderType {
	case "sqlite":
		if o.TargetURL == "" {
			return nil, fmt.Errorf("sqlite vector store requires a data directory")
		}
		return sqlitevec.NewStore(sqlitevec.Config{
			DBPath:     filepath.Join(o.TargetURL, fmt.Sprintf("vectors-%s.db", o.Language)),
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewStore(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: fmt.Sprintf("parlance-%s", o.Language),
		}, o.Logger)
	case "qdrant":
		host, port := o.TargetURL, 0
		if h, p, err := net.SplitHostPort(o.TargetURL); err == nil {
			host = h
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		return qdrant.NewStore(qdrant.Config{
			Host:           host,
			Port:           port,
			CollectionName: fmt.Sprintf("parlance-%s", o.Language),
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

type NewStoresOpts struct {
	ProviderType string
	TargetURL    string
	Languages    []document.Language
	Dimensions   uint
	Logger       *zap.Logger
}

// NewStores builds one store per configured language. The language set is
// fixed for the lifetime of the returned map.
func NewStores(o *NewStoresOpts) (map[document.Language]vector.Store, error) {
	if len(o.Languages) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}

	stores := make(map[document.Language]vector.Store, len(o.Languages))
	for _, lang := range o.Languages {
		store, err := NewStore(&NewStoreOpts{
			ProviderType: o.ProviderType,
			TargetURL:    o.TargetURL,
			Language:     lang,
			Dimensions:   o.Dimensions,
			Logger:       o.Logger,
		})
		if err != nil {
			for _, opened := range stores {
				opened.Close()
			}
			return nil, fmt.Errorf("creating %s store for language %q: %w", o.ProviderType, lang, err)
		}
		stores[lang] = store
	}

	return stores, nil
}

// CloseStores closes every store in the map, returning the first error.
func CloseStores(stores map[document.Language]vector.Store) error {
	var firstErr error
	for _, store := range stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
