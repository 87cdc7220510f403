package chunker_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/chunker"
)

var _ = Describe("Fingerprint", func() {
	Describe("Normalize", func() {
		It("collapses whitespace runs to single spaces", func() {
			Expect(chunker.Normalize("refund   policy\n\tapplies")).To(Equal("refund policy applies"))
		})

		It("trims leading and trailing whitespace", func() {
			Expect(chunker.Normalize("  hello world \n")).To(Equal("hello world"))
		})

		It("returns empty for whitespace-only input", func() {
			Expect(chunker.Normalize(" \n\t ")).To(Equal(""))
		})
	})

	Describe("Fingerprint", func() {
		It("returns 64 lowercase hex characters", func() {
			hash := chunker.Fingerprint("some chunk text")
			Expect(hash).To(HaveLen(64))
			Expect(hash).To(MatchRegexp("^[0-9a-f]{64}$"))
		})

		It("is stable across whitespace variants", func() {
			a := chunker.Fingerprint("refund policy applies")
			b := chunker.Fingerprint("  refund\n\npolicy\tapplies ")
			Expect(b).To(Equal(a))
		})

		It("differs for different content", func() {
			a := chunker.Fingerprint("refund policy")
			b := chunker.Fingerprint("deposit policy")
			Expect(b).NotTo(Equal(a))
		})

		It("handles non-ASCII content", func() {
			a := chunker.Fingerprint("возврат средств")
			b := chunker.Fingerprint("возврат  средств")
			Expect(b).To(Equal(a))
		})
	})
})
