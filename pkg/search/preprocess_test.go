package search_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/search"
)

var _ = Describe("Preprocessor", func() {
	var pre *search.Preprocessor

	BeforeEach(func() {
		pre = search.NewPreprocessor(search.DefaultRules())
	})

	It("should lowercase, strip punctuation and drop stopwords for english", func() {
		Expect(pre.Normalize("What is the refund policy?", "en")).To(Equal("refund policy"))
	})

	It("should drop russian stopwords", func() {
		Expect(pre.Normalize("Как мне вернуть деньги?", "ru")).To(Equal("вернуть деньги"))
	})

	It("should fold cyrillic case", func() {
		Expect(pre.Normalize("ВОЗВРАТ Средств", "ru")).To(Equal("возврат средств"))
	})

	It("should only collapse whitespace for languages without a rule", func() {
		Expect(pre.Normalize("  Hello   World  ", "de")).To(Equal("Hello World"))
	})

	It("should keep a query made entirely of stopwords", func() {
		Expect(pre.Normalize("what is it", "en")).To(Equal("what is it"))
	})

	It("should treat stripped punctuation as a word boundary", func() {
		Expect(pre.Normalize("refund,policy", "en")).To(Equal("refund policy"))
	})

	It("should keep hyphens inside compound words", func() {
		Expect(pre.Normalize("re-index the corpus", "en")).To(Equal("re-index corpus"))
	})

	It("should return empty for whitespace-only input", func() {
		Expect(pre.Normalize("   ", "en")).To(Equal(""))
	})

	It("should honor a custom rule table", func() {
		custom := search.NewPreprocessor(map[document.Language]search.Rule{
			"xx": {Stopwords: []string{"foo"}},
		})
		Expect(custom.Normalize("Foo foo bar", "xx")).To(Equal("Foo bar"))
	})
})
