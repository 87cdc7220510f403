package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Loader reads corpus documents from a root directory laid out as
// <root>/<language>/<file>. Only regular files with a recognized extension
// are loaded; each language directory is read flat, without recursion.
type Loader struct {
	root      string
	languages []Language
	logger    *zap.Logger
}

// loadableExts are the file extensions treated as corpus documents.
var loadableExts = map[string]bool{
	".txt": true,
	".md":  true,
}

func NewLoader(root string, languages []Language, logger *zap.Logger) (*Loader, error) {
	if root == "" {
		return nil, fmt.Errorf("corpus root is required")
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		root:      root,
		languages: languages,
		logger:    logger,
	}, nil
}

// Failure records a source that could not be read. Failures do not abort a
// load; the remaining documents are still returned.
type Failure struct {
	Source   string
	Language Language
	Err      error
}

// Result is the outcome of a corpus load.
type Result struct {
	Documents []Document
	Failed    []Failure
}

// Load reads every document for every configured language. A missing language
// directory yields no documents for that language and is not an error. An
// unreadable file is reported in Result.Failed and does not stop the load.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	result := &Result{}

	for _, lang := range l.languages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := filepath.Join(l.root, string(lang))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Debug("no corpus directory for language",
					zap.String("language", string(lang)),
					zap.String("dir", dir),
				)
				continue
			}
			return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !loadableExts[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}

			source := string(lang) + "/" + entry.Name()
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				l.logger.Warn("skipping unreadable source",
					zap.String("source", source),
					zap.Error(err),
				)
				result.Failed = append(result.Failed, Failure{
					Source:   source,
					Language: lang,
					Err:      err,
				})
				continue
			}

			result.Documents = append(result.Documents, Document{
				Source:   source,
				Language: lang,
				Text:     string(data),
			})
		}
	}

	l.logger.Debug("corpus loaded",
		zap.Int("documents", len(result.Documents)),
		zap.Int("failed", len(result.Failed)),
	)

	return result, nil
}
