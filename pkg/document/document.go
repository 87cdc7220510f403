// Package document defines the corpus model: source files organized into one
// directory per language, each file a document to be chunked and indexed.
package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage indicates a language code outside the configured set.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is a lowercase language code such as "en" or "ru".
// The supported set is fixed at startup from configuration; languages are
// never inferred from document content.
type Language string

func (l Language) String() string {
	return string(l)
}

// Languages converts configured language codes into Language values,
// lowercasing and dropping empties. Order is preserved.
func Languages(codes []string) []Language {
	out := make([]Language, 0, len(codes))
	for _, c := range codes {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		out = append(out, Language(c))
	}
	return out
}

// ParseLanguage validates a user-supplied language code against the supported
// set. Matching is case-insensitive.
func ParseLanguage(s string, supported []Language) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range supported {
		if l == lang {
			return lang, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

// Document is a single source file from the corpus.
type Document struct {
	// Source identifies the document within the corpus, as a slash-separated
	// relative path like "en/refund-policy.txt".
	Source string

	// Language is the language directory the document was loaded from.
	Language Language

	// Text is the full file content.
	Text string
}
