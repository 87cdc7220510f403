package search

import (
	"strings"

	"github.com/parlancehq/parlance/pkg/document"
)

// defaultPunctuation is stripped from queries before tokenization. Hyphens
// stay: they carry meaning inside compound words.
const defaultPunctuation = `.,!?;:()[]{}"'«»`

// Rule describes how queries in one language are normalized before
// embedding. Rules are data: supporting a new language means adding a row,
// not a code branch.
type Rule struct {
	// Lowercase folds the query to lower case.
	Lowercase bool

	// StripPunctuation lists runes replaced with spaces.
	StripPunctuation string

	// Stopwords are dropped after tokenization.
	Stopwords []string
}

// DefaultRules returns the built-in normalization table for English and
// Russian queries. The stopword rows hold query glue words only; content
// words always survive.
func DefaultRules() map[document.Language]Rule {
	return map[document.Language]Rule{
		"en": {
			Lowercase:        true,
			StripPunctuation: defaultPunctuation,
			Stopwords: []string{
				"a", "an", "the", "is", "are", "was", "were", "be",
				"do", "does", "did", "to", "of", "in", "on", "at",
				"for", "and", "or", "what", "which", "how", "i",
				"my", "me", "it", "its", "with", "can", "please",
			},
		},
		"ru": {
			Lowercase:        true,
			StripPunctuation: defaultPunctuation,
			Stopwords: []string{
				"и", "в", "во", "не", "на", "я", "с", "со", "как",
				"а", "то", "у", "же", "вы", "бы", "по", "это",
				"мне", "мой", "что", "или", "ли", "за", "от", "к",
				"до", "из", "о", "об", "при",
			},
		},
	}
}

type compiledRule struct {
	lowercase bool
	strip     string
	stopwords map[string]struct{}
}

// Preprocessor normalizes queries using a per-language rule table.
type Preprocessor struct {
	rules map[document.Language]compiledRule
}

func NewPreprocessor(rules map[document.Language]Rule) *Preprocessor {
	compiled := make(map[document.Language]compiledRule, len(rules))
	for lang, rule := range rules {
		stopwords := make(map[string]struct{}, len(rule.Stopwords))
		for _, w := range rule.Stopwords {
			stopwords[w] = struct{}{}
		}
		compiled[lang] = compiledRule{
			lowercase: rule.Lowercase,
			strip:     rule.StripPunctuation,
			stopwords: stopwords,
		}
	}
	return &Preprocessor{rules: compiled}
}

// Normalize applies the language's rule to the query. Languages without a
// rule row get whitespace collapsing only. A query of nothing but stopwords
// keeps its words: normalization must never turn a real query into an empty
// string.
func (p *Preprocessor) Normalize(query string, lang document.Language) string {
	rule, ok := p.rules[lang]
	if !ok {
		return strings.Join(strings.Fields(query), " ")
	}

	text := query
	if rule.lowercase {
		text = strings.ToLower(text)
	}
	if rule.strip != "" {
		text = strings.Map(func(r rune) rune {
			if strings.ContainsRune(rule.strip, r) {
				return ' '
			}
			return r
		}, text)
	}

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := rule.stopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		kept = words
	}
	return strings.Join(kept, " ")
}
