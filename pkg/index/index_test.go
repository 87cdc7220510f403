package index_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/chunker"
	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/eventstream"
	"github.com/parlancehq/parlance/pkg/index"
	testutils "github.com/parlancehq/parlance/pkg/utils/test"
	"github.com/parlancehq/parlance/pkg/vector"
)

// Paragraph lengths sit between the chunker's boundary window and its chunk
// size, so every paragraph becomes exactly one chunk under the test config.
const (
	paraInvoices     = "Invoices are issued on the first business day of each month."
	paraPayment      = "Payment is due within fourteen calendar days of the invoice date."
	paraCards        = "We accept all major credit cards and direct bank transfers."
	paraRefunds      = "Refunds are issued to the original payment method within seven days."
	paraPartial      = "Partial refunds apply when only part of an order is returned."
	paraGift         = "Gift purchases are refunded as store credit to the recipient."
	paraShipping     = "Orders ship from our warehouse within two business days."
	paraTracking     = "Tracking numbers are emailed as soon as the carrier collects."
	paraPolicyFooter = "This policy was last updated in March and is reviewed quarterly."
	paraDeskFooter   = "Questions about this policy go to the customer support desk."

	paraPaymentThirty = "Payment is due within thirty calendar days of the invoice date."
)

var _ = Describe("Indexer", func() {
	var (
		ctx     context.Context
		dir     string
		enStore *testutils.MockVectorStore
		emb     *testutils.MockEmbedder
		pub     *testutils.MockPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		enStore = testutils.NewMockVectorStore()
		emb = testutils.NewMockEmbedder(8)
		pub = testutils.NewMockPublisher()
	})

	writeDoc := func(lang, name string, paras ...string) {
		langDir := filepath.Join(dir, lang)
		Expect(os.MkdirAll(langDir, 0o755)).To(Succeed())
		text := strings.Join(paras, "\n\n")
		Expect(os.WriteFile(filepath.Join(langDir, name), []byte(text), 0o644)).To(Succeed())
	}

	// writeCorpus lays down the three-document corpus: ten distinct
	// paragraphs plus the two footers both billing and shipping repeat.
	writeCorpus := func() {
		writeDoc("en", "billing.txt", paraInvoices, paraPolicyFooter, paraPayment, paraCards)
		writeDoc("en", "refunds.txt", paraRefunds, paraDeskFooter, paraPartial, paraGift)
		writeDoc("en", "shipping.txt", paraPolicyFooter, paraDeskFooter, paraShipping, paraTracking)
	}

	newIndexer := func(languages []document.Language, stores map[document.Language]vector.Store, workers uint) *index.Indexer {
		loader, err := document.NewLoader(dir, languages, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ck, err := chunker.New(chunker.Config{ChunkSize: 80, Overlap: 0, BoundaryWindow: 40})
		Expect(err).NotTo(HaveOccurred())

		ix, err := index.New(&index.Config{
			Loader:     loader,
			Chunker:    ck,
			Embedder:   emb,
			Stores:     stores,
			Publisher:  pub,
			NumWorkers: workers,
			Logger:     zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return ix
	}

	enIndexer := func(workers uint) *index.Indexer {
		return newIndexer(
			[]document.Language{"en"},
			map[document.Language]vector.Store{"en": enStore},
			workers,
		)
	}

	bySource := func(report *index.Report, path string) index.SourceReport {
		for _, sr := range report.Sources {
			if sr.Path == path {
				return sr
			}
		}
		Fail("no report entry for source " + path)
		return index.SourceReport{}
	}

	Describe("New", func() {
		It("should require a loader", func() {
			_, err := index.New(&index.Config{})
			Expect(err).To(MatchError(ContainSubstring("loader is required")))
		})

		It("should require a chunker", func() {
			loader, err := document.NewLoader(dir, []document.Language{"en"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			_, err = index.New(&index.Config{Loader: loader})
			Expect(err).To(MatchError(ContainSubstring("chunker is required")))
		})

		It("should require an embedder", func() {
			loader, err := document.NewLoader(dir, []document.Language{"en"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			ck, err := chunker.New(chunker.Config{ChunkSize: 80, Overlap: 0, BoundaryWindow: 40})
			Expect(err).NotTo(HaveOccurred())

			_, err = index.New(&index.Config{Loader: loader, Chunker: ck})
			Expect(err).To(MatchError(ContainSubstring("embedder is required")))
		})

		It("should require at least one language store", func() {
			loader, err := document.NewLoader(dir, []document.Language{"en"}, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			ck, err := chunker.New(chunker.Config{ChunkSize: 80, Overlap: 0, BoundaryWindow: 40})
			Expect(err).NotTo(HaveOccurred())

			_, err = index.New(&index.Config{Loader: loader, Chunker: ck, Embedder: emb})
			Expect(err).To(MatchError(ContainSubstring("at least one language store is required")))
		})
	})

	Describe("Reindex", func() {
		It("should report added, updated, skipped, and total_records for a corpus with duplicate chunks", func() {
			writeCorpus()
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Added).To(Equal(10))
			Expect(report.Updated).To(Equal(0))
			Expect(report.Skipped).To(Equal(2))
			Expect(report.Removed).To(Equal(0))
			Expect(report.TotalRecords).To(Equal(10))
			Expect(report.Sources).To(HaveLen(3))
			Expect(report.Elapsed).To(BeNumerically(">", 0))
			Expect(report.Errored()).To(Equal(0))

			billing := bySource(report, "en/billing.txt")
			Expect(billing.Status).To(Equal(index.SourceStatusAdded))
			Expect(billing.ChunkCount).To(Equal(4))
			Expect(billing.Added).To(Equal(4))

			// Shipping repeats both footers, so only its own two
			// paragraphs are new.
			shipping := bySource(report, "en/shipping.txt")
			Expect(shipping.Status).To(Equal(index.SourceStatusAdded))
			Expect(shipping.ChunkCount).To(Equal(4))
			Expect(shipping.Added).To(Equal(2))
			Expect(shipping.Skipped).To(Equal(2))
		})

		It("should skip everything on an immediate second run", func() {
			writeCorpus()
			ix := enIndexer(1)

			_, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Added).To(Equal(0))
			Expect(report.Updated).To(Equal(0))
			Expect(report.Skipped).To(Equal(12))
			Expect(report.Removed).To(Equal(0))
			Expect(report.TotalRecords).To(Equal(10))
			for _, sr := range report.Sources {
				Expect(sr.Status).To(Equal(index.SourceStatusSkipped))
			}
		})

		It("should add the new hash and remove the stale one when a paragraph changes", func() {
			writeCorpus()
			ix := enIndexer(1)

			_, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			writeDoc("en", "billing.txt", paraInvoices, paraPolicyFooter, paraPaymentThirty, paraCards)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Added).To(Equal(1))
			Expect(report.Updated).To(Equal(0))
			Expect(report.Skipped).To(Equal(11))
			Expect(report.Removed).To(Equal(1))
			Expect(report.TotalRecords).To(Equal(10))

			billing := bySource(report, "en/billing.txt")
			Expect(billing.Status).To(Equal(index.SourceStatusAdded))
			Expect(billing.Added).To(Equal(1))
			Expect(billing.Removed).To(Equal(1))
		})

		It("should report an update when only whitespace changes inside a chunk", func() {
			writeCorpus()
			ix := enIndexer(1)

			_, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			// Same normalized text, so the hash is unchanged, but the raw
			// chunk text differs.
			doubleSpaced := strings.Replace(paraPayment, "fourteen calendar", "fourteen  calendar", 1)
			writeDoc("en", "billing.txt", paraInvoices, paraPolicyFooter, doubleSpaced, paraCards)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Added).To(Equal(0))
			Expect(report.Updated).To(Equal(1))
			Expect(report.Skipped).To(Equal(11))
			Expect(report.Removed).To(Equal(0))
			Expect(report.TotalRecords).To(Equal(10))
			Expect(bySource(report, "en/billing.txt").Status).To(Equal(index.SourceStatusUpdated))
		})

		It("should keep a shared chunk alive until no source produces it", func() {
			writeCorpus()
			ix := enIndexer(1)

			_, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			// Billing drops the policy footer, but shipping still carries
			// it, so the record must survive billing's removal pass.
			writeDoc("en", "billing.txt", paraInvoices, paraPayment, paraCards)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Removed).To(Equal(0))
			Expect(report.TotalRecords).To(Equal(10))

			// Once shipping drops it too, nothing produces the footer and
			// it goes away.
			writeDoc("en", "shipping.txt", paraDeskFooter, paraShipping, paraTracking)

			report, err = ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Removed).To(Equal(1))
			Expect(report.TotalRecords).To(Equal(9))

			size, err := enStore.Size(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(size).To(Equal(9))
		})

		It("should remove every record when a document becomes empty", func() {
			writeDoc("en", "billing.txt", paraInvoices, paraPolicyFooter, paraPayment, paraCards)
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Added).To(Equal(4))
			Expect(report.TotalRecords).To(Equal(4))

			writeDoc("en", "billing.txt", "")

			report, err = ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			billing := bySource(report, "en/billing.txt")
			Expect(billing.Status).To(Equal(index.SourceStatusSkipped))
			Expect(billing.ChunkCount).To(Equal(0))
			Expect(billing.Removed).To(Equal(4))
			Expect(report.TotalRecords).To(Equal(0))
		})

		It("should continue past a source whose embedding fails", func() {
			writeCorpus()
			// The refunds document's first chunk carries its paragraph
			// plus the blank-line separator.
			emb.FailOn = paraRefunds + "\n\n"
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errored()).To(Equal(1))

			refunds := bySource(report, "en/refunds.txt")
			Expect(refunds.Status).To(Equal(index.SourceStatusError))
			Expect(refunds.Err).To(ContainSubstring("embedding chunks"))
			Expect(refunds.Added).To(Equal(0))

			// Billing indexed fully; shipping picked up the desk footer
			// that refunds failed to add.
			Expect(bySource(report, "en/billing.txt").Added).To(Equal(4))
			shipping := bySource(report, "en/shipping.txt")
			Expect(shipping.Added).To(Equal(3))
			Expect(shipping.Skipped).To(Equal(1))

			Expect(report.Added).To(Equal(7))
			Expect(report.TotalRecords).To(Equal(7))
		})

		It("should report every source as errored when the store rejects upserts", func() {
			writeCorpus()
			enStore.UpsertErr = vector.ErrUnavailable
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errored()).To(Equal(3))
			Expect(report.Added).To(Equal(0))
			Expect(report.TotalRecords).To(Equal(0))
			for _, sr := range report.Sources {
				Expect(sr.Status).To(Equal(index.SourceStatusError))
				Expect(sr.Err).To(ContainSubstring("upserting records"))
			}
		})

		It("should report unreadable sources and keep indexing the rest", func() {
			writeCorpus()
			Expect(os.Symlink(
				filepath.Join(dir, "missing.txt"),
				filepath.Join(dir, "en", "broken.txt"),
			)).To(Succeed())
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Sources).To(HaveLen(4))
			Expect(report.Added).To(Equal(10))

			broken := bySource(report, "en/broken.txt")
			Expect(broken.Status).To(Equal(index.SourceStatusError))
			Expect(broken.Err).NotTo(BeEmpty())
		})

		It("should report an error for a language without a store", func() {
			writeDoc("en", "billing.txt", paraInvoices, paraPolicyFooter, paraPayment, paraCards)
			writeDoc("ru", "refunds.txt", "Возврат средств занимает до четырнадцати календарных дней после заявки.")
			ix := newIndexer(
				[]document.Language{"en", "ru"},
				map[document.Language]vector.Store{"en": enStore},
				1,
			)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Errored()).To(Equal(1))
			Expect(bySource(report, "en/billing.txt").Added).To(Equal(4))

			russian := bySource(report, "ru/refunds.txt")
			Expect(russian.Status).To(Equal(index.SourceStatusError))
			Expect(russian.Err).To(ContainSubstring(`no vector store for language "ru"`))
		})

		It("should index each language into its own store", func() {
			ruStore := testutils.NewMockVectorStore()
			writeDoc("en", "billing.txt", paraInvoices, paraPolicyFooter, paraPayment, paraCards)
			writeDoc("ru", "delivery.txt",
				"Возврат средств занимает до четырнадцати календарных дней после заявки.",
				"Доставка по стране выполняется курьерской службой за три дня.",
			)
			ix := newIndexer(
				[]document.Language{"en", "ru"},
				map[document.Language]vector.Store{"en": enStore, "ru": ruStore},
				1,
			)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Added).To(Equal(6))
			Expect(report.TotalRecords).To(Equal(6))

			enSize, err := enStore.Size(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(enSize).To(Equal(4))

			ruSize, err := ruStore.Size(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ruSize).To(Equal(2))
		})

		It("should publish a source event per source and one corpus event", func() {
			writeCorpus()
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())

			events := pub.SourceEvents()
			Expect(events).To(HaveLen(3))
			Expect(events[0].SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
			Expect(events[0].EventType).To(Equal(eventstream.EventTypeSourceIndexed))
			Expect(events[0].EventID).NotTo(BeEmpty())
			Expect(events[0].EventID).NotTo(Equal(events[1].EventID))
			Expect(events[0].EmittedAt.IsZero()).To(BeFalse())
			Expect(events[0].Source).To(Equal("en/billing.txt"))
			Expect(events[0].Language).To(Equal("en"))
			Expect(events[0].Status).To(Equal(string(index.SourceStatusAdded)))
			Expect(events[0].Added).To(Equal(4))

			corpus := pub.CorpusEvents()
			Expect(corpus).To(HaveLen(1))
			Expect(corpus[0].EventType).To(Equal(eventstream.EventTypeCorpusIndexed))
			Expect(corpus[0].Added).To(Equal(report.Added))
			Expect(corpus[0].Skipped).To(Equal(report.Skipped))
			Expect(corpus[0].TotalRecords).To(Equal(report.TotalRecords))
			Expect(corpus[0].Sources).To(Equal(3))
		})

		It("should keep indexing when event publishing fails", func() {
			writeCorpus()
			pub.SourceErr = eventstream.ErrNilEvent
			pub.CorpusErr = eventstream.ErrNilEvent
			ix := enIndexer(1)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Added).To(Equal(10))
			Expect(report.TotalRecords).To(Equal(10))
		})

		It("should fan out across the worker pool with stable totals", func() {
			writeDoc("en", "a.txt", paraInvoices)
			writeDoc("en", "b.txt", paraPayment)
			writeDoc("en", "c.txt", paraCards)
			writeDoc("en", "d.txt", paraRefunds)
			writeDoc("en", "e.txt", paraShipping)
			writeDoc("en", "f.txt", paraTracking)
			ix := enIndexer(4)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Added).To(Equal(6))
			Expect(report.TotalRecords).To(Equal(6))
			Expect(report.Sources).To(HaveLen(6))
			for _, sr := range report.Sources {
				Expect(sr.Status).To(Equal(index.SourceStatusAdded))
				Expect(sr.ChunkCount).To(Equal(1))
			}
		})

		It("should return an empty report for an empty corpus", func() {
			ix := enIndexer(0)

			report, err := ix.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Sources).To(BeEmpty())
			Expect(report.Added).To(Equal(0))
			Expect(report.TotalRecords).To(Equal(0))
			Expect(pub.CorpusEvents()).To(HaveLen(1))
		})
	})
})
