package postgres_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/history/postgres"
)

var _ = Describe("Store", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewStore", func() {
		It("should require a connection string", func() {
			_, err := postgres.NewStore(ctx, postgres.Config{}, zap.NewNop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("connection string is required"))
		})

		It("should reject a window without a message bound", func() {
			_, err := postgres.NewStore(ctx, postgres.Config{
				ConnString: "postgres://localhost:5432/parlance",
				Window:     history.Window{MaxAge: time.Hour},
			}, zap.NewNop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("history window"))
		})
	})

	Describe("Operations", func() {
		It("should store and window messages", func() {
			Skip("Requires running PostgreSQL instance")
		})
	})
})

var _ = Describe("Interface compliance", func() {
	It("should implement history.Store", func() {
		var _ history.Store = (*postgres.Store)(nil)
	})
})
