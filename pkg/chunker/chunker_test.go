package chunker_test

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/chunker"
	"github.com/parlancehq/parlance/pkg/document"
)

var _ = Describe("Chunker", func() {
	newChunker := func(size, overlap, window uint) *chunker.Chunker {
		c, err := chunker.New(chunker.Config{
			ChunkSize:      size,
			Overlap:        overlap,
			BoundaryWindow: window,
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	doc := func(text string) document.Document {
		return document.Document{Source: "en/doc.txt", Language: "en", Text: text}
	}

	// reconstruct drops each chunk's leading overlap runes (except the first)
	// and concatenates the rest.
	reconstruct := func(chunks []chunker.Chunk, overlap int) string {
		var b strings.Builder
		for i, ch := range chunks {
			if i == 0 {
				b.WriteString(ch.Text)
				continue
			}
			runes := []rune(ch.Text)
			b.WriteString(string(runes[overlap:]))
		}
		return b.String()
	}

	Describe("New", func() {
		It("rejects a zero chunk size", func() {
			_, err := chunker.New(chunker.Config{ChunkSize: 0, Overlap: 0})
			Expect(err).To(HaveOccurred())
		})

		It("rejects overlap not smaller than chunk size", func() {
			_, err := chunker.New(chunker.Config{ChunkSize: 100, Overlap: 100})
			Expect(err).To(HaveOccurred())
		})

		It("rejects overlap plus window reaching chunk size", func() {
			_, err := chunker.New(chunker.Config{ChunkSize: 100, Overlap: 50, BoundaryWindow: 50})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Split", func() {
		It("returns nil for an empty document", func() {
			c := newChunker(100, 20, 30)
			Expect(c.Split(doc(""))).To(BeNil())
		})

		It("returns nil for a whitespace-only document", func() {
			c := newChunker(100, 20, 30)
			Expect(c.Split(doc("  \n\t  \n "))).To(BeNil())
		})

		It("returns a single chunk for a short document", func() {
			c := newChunker(100, 20, 30)
			text := "Refunds are issued within 14 days."

			chunks := c.Split(doc(text))
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal(text))
			Expect(chunks[0].Seq).To(Equal(0))
			Expect(chunks[0].Source).To(Equal("en/doc.txt"))
			Expect(chunks[0].Language).To(Equal(document.Language("en")))
			Expect(chunks[0].Hash).To(Equal(chunker.Fingerprint(text)))
		})

		It("never exceeds the chunk size in runes", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("Sentence number one. ", 40)

			chunks := c.Split(doc(text))
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for _, ch := range chunks {
				Expect(utf8.RuneCountInString(ch.Text)).To(BeNumerically("<=", 100))
			}
		})

		It("bounds multi-byte scripts by runes, not bytes", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("Возврат средств занимает четырнадцать дней. ", 20)

			chunks := c.Split(doc(text))
			Expect(len(chunks)).To(BeNumerically(">", 1))
			for _, ch := range chunks {
				Expect(utf8.RuneCountInString(ch.Text)).To(BeNumerically("<=", 100))
			}
			Expect(reconstruct(chunks, 20)).To(Equal(text))
		})

		It("reconstructs the document when overlap prefixes are dropped", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30)

			chunks := c.Split(doc(text))
			Expect(reconstruct(chunks, 20)).To(Equal(text))
		})

		It("reconstructs text with no natural boundaries", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("a", 250)

			chunks := c.Split(doc(text))
			Expect(chunks).To(HaveLen(3))
			Expect(reconstruct(chunks, 20)).To(Equal(text))
		})

		It("prefers sentence ends over hard cuts", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("Sentence number one. ", 40)

			chunks := c.Split(doc(text))
			for i, ch := range chunks {
				if i == len(chunks)-1 {
					continue
				}
				Expect(strings.HasSuffix(ch.Text, ".")).To(BeTrue(),
					"chunk %d should end at a sentence boundary, got %q", i, ch.Text)
			}
		})

		It("prefers paragraph breaks over sentence ends", func() {
			c := newChunker(100, 20, 30)
			para := strings.Repeat("word ", 16) // 80 runes
			text := para + "\n\n" + para + "\n\n" + para

			chunks := c.Split(doc(text))
			Expect(len(chunks)).To(BeNumerically(">", 1))
			Expect(strings.HasSuffix(chunks[0].Text, "\n\n")).To(BeTrue())
			Expect(reconstruct(chunks, 20)).To(Equal(text))
		})

		It("assigns increasing sequence numbers", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("Some sentence here. ", 40)

			chunks := c.Split(doc(text))
			for i, ch := range chunks {
				Expect(ch.Seq).To(Equal(i))
			}
		})

		It("is deterministic", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("Deterministic output required. ", 25)

			first := c.Split(doc(text))
			second := c.Split(doc(text))
			Expect(second).To(Equal(first))
		})

		It("fingerprints every chunk", func() {
			c := newChunker(100, 20, 30)
			text := strings.Repeat("Hashes identify chunks. ", 25)

			chunks := c.Split(doc(text))
			for _, ch := range chunks {
				Expect(ch.Hash).To(HaveLen(64))
				Expect(ch.Hash).To(Equal(chunker.Fingerprint(ch.Text)))
			}
		})
	})
})
