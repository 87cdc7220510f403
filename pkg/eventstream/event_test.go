package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals SourceIndexedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.SourceIndexedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeSourceIndexed,
			EventID:       "evt_123",
			EmittedAt:     now,
			Source:        "en/faq.md",
			Language:      "en",
			Status:        "added",
			ChunkCount:    12,
			Added:         12,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("language"))
		Expect(got).To(HaveKey("status"))
		Expect(got).To(HaveKey("chunk_count"))
		Expect(got).NotTo(HaveKey("error"))
	})

	It("marshals CorpusIndexedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.CorpusIndexedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeCorpusIndexed,
			EventID:       "evt_456",
			EmittedAt:     now,
			Added:         10,
			Skipped:       2,
			TotalRecords:  10,
			Sources:       3,
			DurationMs:    1500,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("total_records"))
		Expect(got).To(HaveKey("sources"))
		Expect(got).To(HaveKey("duration_ms"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeSourceIndexed).To(Equal("parlance.source.indexed"))
		Expect(eventstream.EventTypeCorpusIndexed).To(Equal("parlance.corpus.indexed"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
