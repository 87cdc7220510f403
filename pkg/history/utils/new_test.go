package historyutils_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/history"
	historyutils "github.com/parlancehq/parlance/pkg/history/utils"
)

var _ = Describe("NewStore", func() {
	var (
		ctx    context.Context
		tmpDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "historyutils-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tmpDir)).To(Succeed())
	})

	It("should build a sqlite store inside the data directory", func() {
		store, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
			ProviderType: "sqlite",
			TargetURL:    tmpDir,
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer store.Close()

		Expect(filepath.Join(tmpDir, "history.db")).To(BeAnExistingFile())
	})

	It("should require a data directory for sqlite stores", func() {
		_, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
			ProviderType: "sqlite",
			Logger:       zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("data directory"))
	})

	It("should require a connection string for postgres stores", func() {
		_, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
			ProviderType: "postgres",
			Logger:       zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("connection string"))
	})

	It("should build a memory store", func() {
		store, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
			ProviderType: "memory",
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Close()).To(Succeed())
	})

	It("should reject an unsupported provider", func() {
		_, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
			ProviderType: "redis",
			Logger:       zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unsupported history provider"))
	})
})

var _ = Describe("WindowFrom", func() {
	It("should keep the defaults for zero values", func() {
		Expect(historyutils.WindowFrom(0, 0)).To(Equal(history.DefaultWindow()))
	})

	It("should apply configured bounds", func() {
		w := historyutils.WindowFrom(90, 5)
		Expect(w.MaxAge).To(Equal(90 * time.Minute))
		Expect(w.MaxMessages).To(Equal(5))
	})
})
