// Package chunker splits corpus documents into bounded, overlapping chunks.
//
// Chunks are contiguous rune slices of the source text: each chunk starts a
// fixed overlap before the previous chunk's end, so concatenating the chunks
// with the overlap prefixes dropped reconstructs the document exactly. Cut
// points prefer paragraph breaks, then sentence ends, then whitespace, all
// searched within a bounded window from the size limit; a hard cut is the
// last resort so no chunk ever exceeds the limit.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/parlancehq/parlance/pkg/document"
)

// Config holds chunking settings. All sizes are in runes, not bytes, so
// multi-byte scripts are bounded the same way as ASCII.
type Config struct {
	// ChunkSize is the maximum chunk length.
	ChunkSize uint

	// Overlap is how many runes consecutive chunks share.
	Overlap uint

	// BoundaryWindow is how far back from the size limit a cut point may be
	// moved to land on a natural boundary.
	BoundaryWindow uint
}

// Chunk is one bounded piece of a document, identified by the content hash of
// its normalized text.
type Chunk struct {
	// Source is the originating document's source id.
	Source string

	// Language is the originating document's language.
	Language document.Language

	// Seq is the chunk's position within the document, starting at 0.
	Seq int

	// Text is the raw chunk text, a contiguous slice of the document.
	Text string

	// Hash is the content fingerprint of the normalized text.
	Hash string
}

type Chunker struct {
	size    int
	overlap int
	window  int
}

func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", cfg.Overlap, cfg.ChunkSize)
	}
	if cfg.Overlap+cfg.BoundaryWindow >= cfg.ChunkSize {
		return nil, fmt.Errorf(
			"overlap %d plus boundary window %d must be smaller than chunk size %d",
			cfg.Overlap, cfg.BoundaryWindow, cfg.ChunkSize,
		)
	}

	return &Chunker{
		size:    int(cfg.ChunkSize),
		overlap: int(cfg.Overlap),
		window:  int(cfg.BoundaryWindow),
	}, nil
}

// Split chunks a document. The result is deterministic for identical input.
// An empty or whitespace-only document yields no chunks.
func (c *Chunker) Split(doc document.Document) []Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	runes := []rune(doc.Text)
	n := len(runes)

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.cutPoint(runes, start, end)
		}

		text := string(runes[start:end])
		chunks = append(chunks, Chunk{
			Source:   doc.Source,
			Language: doc.Language,
			Seq:      len(chunks),
			Text:     text,
			Hash:     Fingerprint(text),
		})

		if end == n {
			break
		}
		start = end - c.overlap
	}

	return chunks
}

// cutPoint finds where to end a chunk that would otherwise be cut at limit.
// It scans the trailing boundary window for, in order of preference, a
// paragraph break, a sentence end, and any whitespace. Returned cut points
// always lie in (start, limit] so the loop in Split makes progress.
func (c *Chunker) cutPoint(runes []rune, start, limit int) int {
	lo := limit - c.window
	if lo <= start {
		lo = start + 1
	}

	// Paragraph break: cut after the blank line.
	for i := limit - 1; i >= lo; i-- {
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i + 1
		}
	}

	// Sentence end: cut after terminal punctuation followed by whitespace.
	for i := limit - 2; i >= lo; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}

	// Any whitespace: cut after it so the next chunk starts on a word.
	for i := limit - 1; i >= lo; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	}
	return false
}
