package eventstreamutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	eventstreamutils "github.com/parlancehq/parlance/pkg/eventstream/utils"
)

var _ = Describe("NewPublisher", func() {
	It("should default to the nop publisher", func() {
		pub, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			Logger: zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).NotTo(BeNil())
		Expect(pub.Close()).To(Succeed())
	})

	It("should build the nop publisher explicitly", func() {
		pub, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "nop",
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).NotTo(BeNil())
	})

	It("should build a kafka publisher without connecting", func() {
		pub, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "kafka",
			Brokers:      []string{"localhost:9092"},
			Topic:        "parlance.indexing",
			Logger:       zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).NotTo(BeNil())
		Expect(pub.Close()).To(Succeed())
	})

	It("should require brokers for the kafka provider", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "kafka",
			Topic:        "parlance.indexing",
			Logger:       zap.NewNop(),
		})
		Expect(err).To(MatchError(ContainSubstring("at least one broker is required")))
	})

	It("should reject unsupported providers", func() {
		_, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: "rabbitmq",
			Logger:       zap.NewNop(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported events provider")))
	})
})
