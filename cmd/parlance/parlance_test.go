package parlancecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	parlancecmder "github.com/parlancehq/parlance/cmd/parlance"
)

var _ = Describe("NewParlanceCmd", func() {
	It("creates the root command", func() {
		cmd := parlancecmder.NewParlanceCmd()
		Expect(cmd.Use).To(Equal("parlance"))
	})

	It("registers every subcommand", func() {
		cmd := parlancecmder.NewParlanceCmd()
		cmds := cmd.Commands()
		names := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"index", "search", "console", "history",
			"serve", "status", "config", "version",
		))
	})

	It("declares the global flags", func() {
		cmd := parlancecmder.NewParlanceCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
