package qdrant_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/vector"
	"github.com/parlancehq/parlance/pkg/vector/qdrant"
)

var _ = Describe("Store", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewStore", func() {
		It("should return an error when the host is empty", func() {
			_, err := qdrant.NewStore(qdrant.Config{Dimensions: 4}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("qdrant host is required"))
		})

		It("should return an error when dimensions are not configured", func() {
			_, err := qdrant.NewStore(qdrant.Config{Host: "localhost"}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("dimensions"))
		})

		It("should bootstrap a collection on a running instance", func() {
			// Store operations are covered by integration tests against a
			// live Qdrant.
			Skip("Requires running Qdrant instance")
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Store", func() {
			var _ vector.Store = (*qdrant.Store)(nil)
		})
	})
})
