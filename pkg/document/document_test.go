package document_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/document"
)

var _ = Describe("Language", func() {
	supported := document.Languages([]string{"en", "ru"})

	Describe("Languages", func() {
		It("lowercases and drops empty codes", func() {
			langs := document.Languages([]string{"EN", " ru ", "", "De"})
			Expect(langs).To(Equal([]document.Language{"en", "ru", "de"}))
		})
	})

	Describe("ParseLanguage", func() {
		It("accepts a supported code", func() {
			lang, err := document.ParseLanguage("en", supported)
			Expect(err).NotTo(HaveOccurred())
			Expect(lang).To(Equal(document.Language("en")))
		})

		It("is case-insensitive", func() {
			lang, err := document.ParseLanguage("RU", supported)
			Expect(err).NotTo(HaveOccurred())
			Expect(lang).To(Equal(document.Language("ru")))
		})

		It("rejects an unsupported code", func() {
			_, err := document.ParseLanguage("fr", supported)
			Expect(err).To(MatchError(document.ErrUnsupportedLanguage))
		})

		It("rejects an empty code", func() {
			_, err := document.ParseLanguage("", supported)
			Expect(err).To(MatchError(document.ErrUnsupportedLanguage))
		})
	})
})
