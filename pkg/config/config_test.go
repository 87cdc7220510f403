package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/parlancehq/parlance/pkg/config"
)

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewDefaultConfig", func() {
		It("populates every section", func() {
			cfg := config.NewDefaultConfig()
			Expect(cfg.Corpus.Root).To(Equal("corpus"))
			Expect(cfg.Corpus.Languages).To(Equal([]string{"en", "ru"}))
			Expect(cfg.Chunker.ChunkSize).To(BeNumerically(">", cfg.Chunker.Overlap))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
			Expect(cfg.VectorStore.Provider).To(Equal("sqlite"))
			Expect(cfg.Search.TopK).To(Equal(uint(25)))
			Expect(cfg.Search.Threshold).To(Equal(0.3))
			Expect(cfg.History.Provider).To(Equal("sqlite"))
			Expect(cfg.History.MaxMessages).To(Equal(uint(20)))
			Expect(cfg.History.MaxAgeMinutes).To(Equal(uint(60)))
			Expect(cfg.API.Listen).To(Equal(":8081"))
			Expect(cfg.Events.Provider).To(Equal("nop"))
		})
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Search.TopK).To(Equal(uint(25)))
			Expect(cfg.Embedding.Model).To(Equal("embeddinggemma"))
		})

		It("merges defaults into a partial config file", func() {
			content := `
[corpus]
root = "/srv/docs"

[embedding]
model = "text-embedding-3-small"
dimensions = 1536
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			// Values from the file
			Expect(cfg.Corpus.Root).To(Equal("/srv/docs"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))

			// Defaults fill the gaps
			Expect(cfg.Corpus.Languages).To(Equal([]string{"en", "ru"}))
			Expect(cfg.History.MaxMessages).To(Equal(uint(20)))
			Expect(cfg.Search.Threshold).To(Equal(0.3))
		})

		It("rejects an unsupported config version", func() {
			content := "version = 99\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = cfger.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config through disk", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Corpus.Root = "/data/kb"
			cfg.Search.TopK = 10
			Expect(cfger.SaveConfig(cfg)).To(Succeed())

			loaded, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Corpus.Root).To(Equal("/data/kb"))
			Expect(loaded.Search.TopK).To(Equal(uint(10)))
		})

		It("rejects a nil config", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfger.SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Describe("GetConfigValue and SetConfigValue", func() {
		var cfger *config.Configer

		BeforeEach(func() {
			var err error
			cfger, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and gets a string key", func() {
			Expect(cfger.SetConfigValue("embedding.model", "nomic-embed-text")).To(Succeed())
			got, err := cfger.GetConfigValue("embedding.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("nomic-embed-text"))
		})

		It("sets and gets a uint key", func() {
			Expect(cfger.SetConfigValue("search.top_k", "15")).To(Succeed())
			got, err := cfger.GetConfigValue("search.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("15"))
		})

		It("sets and gets a list key with comma separation", func() {
			Expect(cfger.SetConfigValue("corpus.languages", "en, ru, de")).To(Succeed())
			got, err := cfger.GetConfigValue("corpus.languages")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("en,ru,de"))
		})

		It("rejects an invalid uint value", func() {
			Expect(cfger.SetConfigValue("search.top_k", "lots")).NotTo(Succeed())
		})

		It("rejects an out-of-range threshold", func() {
			Expect(cfger.SetConfigValue("search.threshold", "1.5")).NotTo(Succeed())
		})

		It("rejects an unknown key", func() {
			err := cfger.SetConfigValue("nope.nothing", "x")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))

			_, err = cfger.GetConfigValue("nope.nothing")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("includes every registered key exactly once", func() {
			keys := config.ValidConfigKeys()
			seen := map[string]int{}
			for _, k := range keys {
				seen[k]++
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			for k, n := range seen {
				Expect(n).To(Equal(1), "key %s appears %d times", k, n)
			}
			Expect(keys).To(ContainElement("corpus.root"))
			Expect(keys).To(ContainElement("history.max_messages"))
			Expect(keys).To(ContainElement("events.topic"))
		})
	})

	Describe("PresetConfig", func() {
		It("returns the ollama preset", func() {
			cfg, err := config.PresetConfig("ollama")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("returns the openai preset", func() {
			cfg, err := config.PresetConfig("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("rejects unknown presets", func() {
			_, err := config.PresetConfig("cohere")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("serves defaults when nothing else is set", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":8081"))
		Expect(v.GetUint("search.top_k")).To(Equal(uint(25)))
		Expect(v.GetStringSlice("corpus.languages")).To(Equal([]string{"en", "ru"}))
	})

	It("reads values from config.toml", func() {
		content := "[api]\nlisten = \":9999\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":9999"))
	})

	It("lets environment variables override the file", func() {
		content := "[api]\nlisten = \":9999\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

		Expect(os.Setenv("PARLANCE_API_LISTEN", ":7070")).To(Succeed())
		DeferCleanup(func() { os.Unsetenv("PARLANCE_API_LISTEN") })

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":7070"))
	})

	It("fails on a malformed config file", func() {
		content := "[api\nlisten=::\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

		_, err := config.InitViper(tmpDir)
		Expect(err).To(HaveOccurred())
	})

	It("binds registered flags above env and file", func() {
		content := "[api]\nlisten = \":9999\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		fs := config.DefaultFlagSet()
		var listen string
		config.AddStringFlag(cmd, fs, config.FlagAPIListen, &listen)
		Expect(cmd.Flags().Set("listen", ":6060")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagAPIListen})
		Expect(v.GetString("api.listen")).To(Equal(":6060"))
	})

	It("ignores unknown registry keys when binding", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), []string{"nonexistent"})
		Expect(v.GetString("api.listen")).To(Equal(":8081"))
	})

	It("AddStringFlag pulls name, shorthand, and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		fs := config.DefaultFlagSet()
		var target string
		config.AddStringFlag(cmd, fs, config.FlagAPITarget, &target)

		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("http://localhost:8081"))
	})
})
