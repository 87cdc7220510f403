package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/parlancehq/parlance/pkg/embeddings"
	"github.com/parlancehq/parlance/pkg/embeddings/openai"
)

type embedItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

var _ = Describe("Embedder", func() {
	Describe("NewEmbedder", func() {
		It("should return an error when dimensions are not configured", func() {
			_, err := openai.NewEmbedder(openai.Config{APIKey: "sk-test"})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("dimensions"))
		})

		It("should return an error when no API key is available", func() {
			original, had := os.LookupEnv(openai.APIKeyEnv)
			os.Unsetenv(openai.APIKeyEnv)
			defer func() {
				if had {
					os.Setenv(openai.APIKeyEnv, original)
				}
			}()

			_, err := openai.NewEmbedder(openai.Config{Dimensions: 1536})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("API key"))
		})

		It("should fall back to the environment for the API key", func() {
			original, had := os.LookupEnv(openai.APIKeyEnv)
			os.Setenv(openai.APIKeyEnv, "sk-from-env")
			defer func() {
				if had {
					os.Setenv(openai.APIKeyEnv, original)
				} else {
					os.Unsetenv(openai.APIKeyEnv)
				}
			}()

			embedder, err := openai.NewEmbedder(openai.Config{Dimensions: 1536})
			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.Dimensions()).To(Equal(uint(1536)))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement embeddings.Embedder", func() {
			var _ embeddings.Embedder = (*openai.Embedder)(nil)
		})
	})

	Describe("EmbedBatch", func() {
		It("should post a bearer-authenticated request to /embeddings", func() {
			var gotPath, gotAuth string
			var gotReq struct {
				Model      string   `json:"model"`
				Input      []string `json:"input"`
				Dimensions uint     `json:"dimensions"`
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				_ = json.NewDecoder(r.Body).Decode(&gotReq)

				items := make([]embedItem, len(gotReq.Input))
				for i := range gotReq.Input {
					items[i] = embedItem{Index: i, Embedding: []float32{float32(i), 0, 0}}
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"data": items})
			}))
			defer server.Close()

			embedder, err := openai.NewEmbedder(openai.Config{
				BaseURL:    server.URL,
				APIKey:     "sk-test",
				Model:      "text-embedding-3-small",
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())

			vecs, err := embedder.EmbedBatch(context.Background(), []string{"hello", "world"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vecs).To(HaveLen(2))

			Expect(gotPath).To(Equal("/embeddings"))
			Expect(gotAuth).To(Equal("Bearer sk-test"))
			Expect(gotReq.Model).To(Equal("text-embedding-3-small"))
			Expect(gotReq.Input).To(Equal([]string{"hello", "world"}))
			Expect(gotReq.Dimensions).To(Equal(uint(3)))
		})

		It("should order embeddings by their declared index", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Respond out of order; the index field is authoritative.
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data": []embedItem{
						{Index: 1, Embedding: []float32{2, 0, 0}},
						{Index: 0, Embedding: []float32{1, 0, 0}},
					},
				})
			}))
			defer server.Close()

			embedder, err := openai.NewEmbedder(openai.Config{
				BaseURL:    server.URL,
				APIKey:     "sk-test",
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())

			vecs, err := embedder.EmbedBatch(context.Background(), []string{"first", "second"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vecs[0][0]).To(BeNumerically("==", 1))
			Expect(vecs[1][0]).To(BeNumerically("==", 2))
		})

		It("should wrap non-200 responses in ErrEmbedding", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			}))
			defer server.Close()

			embedder, err := openai.NewEmbedder(openai.Config{
				BaseURL:    server.URL,
				APIKey:     "sk-test",
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = embedder.Embed(context.Background(), "hello")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("429"))
		})

		It("should reject a response missing embeddings", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"data": []embedItem{}})
			}))
			defer server.Close()

			embedder, err := openai.NewEmbedder(openai.Config{
				BaseURL:    server.URL,
				APIKey:     "sk-test",
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = embedder.Embed(context.Background(), "hello")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
		})

		It("should reject embeddings with the wrong dimensionality", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data": []embedItem{{Index: 0, Embedding: []float32{1, 2}}},
				})
			}))
			defer server.Close()

			embedder, err := openai.NewEmbedder(openai.Config{
				BaseURL:    server.URL,
				APIKey:     "sk-test",
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = embedder.Embed(context.Background(), "hello")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("expected 3"))
		})

		It("should reject over-long inputs with ErrInputTooLong", func() {
			embedder, err := openai.NewEmbedder(openai.Config{
				BaseURL:       "http://localhost:1",
				APIKey:        "sk-test",
				Dimensions:    3,
				MaxInputRunes: 4,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = embedder.Embed(context.Background(), "this is too long")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, embeddings.ErrInputTooLong)).To(BeTrue())
		})
	})
})
