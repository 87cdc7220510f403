package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/dotdir"
)

var _ = Describe("IndexState", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "indexstate-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadIndexState", func() {
		It("returns nil when no state exists", func() {
			state, err := m.LoadIndexState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("round-trips a saved state", func() {
			saved := &dotdir.IndexState{
				IndexedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				Corpus:       "/srv/corpus",
				Languages:    []string{"en", "ru"},
				Sources:      4,
				Added:        10,
				Skipped:      2,
				TotalRecords: 10,
			}
			Expect(m.SaveIndexState(saved, tmpDir)).To(Succeed())

			loaded, err := m.LoadIndexState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Corpus).To(Equal("/srv/corpus"))
			Expect(loaded.Languages).To(Equal([]string{"en", "ru"}))
			Expect(loaded.Added).To(Equal(10))
			Expect(loaded.Skipped).To(Equal(2))
			Expect(loaded.TotalRecords).To(Equal(10))
			Expect(loaded.IndexedAt.Equal(saved.IndexedAt)).To(BeTrue())
		})

		It("fails on a corrupt state file", func() {
			path := filepath.Join(tmpDir, "lastindex.json")
			Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

			_, err := m.LoadIndexState(tmpDir)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveIndexState", func() {
		It("rejects a nil state", func() {
			Expect(m.SaveIndexState(nil, tmpDir)).NotTo(Succeed())
		})
	})

	Describe("ClearIndexState", func() {
		It("removes an existing state file", func() {
			state := &dotdir.IndexState{IndexedAt: time.Now(), Sources: 1}
			Expect(m.SaveIndexState(state, tmpDir)).To(Succeed())

			Expect(m.ClearIndexState(tmpDir)).To(Succeed())

			loaded, err := m.LoadIndexState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("is a no-op when no state exists", func() {
			Expect(m.ClearIndexState(tmpDir)).To(Succeed())
		})
	})
})
