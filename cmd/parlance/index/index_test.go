package indexcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	indexcmder "github.com/parlancehq/parlance/cmd/parlance/index"
)

var _ = Describe("NewIndexCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := indexcmder.NewIndexCmd()
		Expect(cmd.Use).To(Equal("index"))
	})

	It("registers the pipeline flags from the shared registry", func() {
		cmd := indexcmder.NewIndexCmd()
		for _, name := range []string{
			"corpus", "languages", "chunk-size", "chunk-overlap",
			"embedding-provider", "embedding-target", "embedding-model", "embedding-dimensions",
			"vector-store-provider", "vector-store-target",
			"events-provider", "events-topic",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), "missing flag %s", name)
		}
	})

	It("defaults flags from the default config", func() {
		cmd := indexcmder.NewIndexCmd()
		Expect(cmd.Flags().Lookup("corpus").DefValue).To(Equal("corpus"))
		Expect(cmd.Flags().Lookup("chunk-size").DefValue).To(Equal("1000"))
		Expect(cmd.Flags().Lookup("embedding-provider").DefValue).To(Equal("ollama"))
	})

	It("registers the run-mode flags", func() {
		cmd := indexcmder.NewIndexCmd()
		Expect(cmd.Flags().Lookup("watch")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("json")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("workers")).NotTo(BeNil())
	})

	It("uses the short corpus flag", func() {
		cmd := indexcmder.NewIndexCmd()
		Expect(cmd.Flags().ShorthandLookup("c")).NotTo(BeNil())
	})
})
