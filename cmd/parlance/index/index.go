// Package indexcmder provides the index command for building the vector index
// from the document corpus.
package indexcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/chunker"
	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/config"
	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/dotdir"
	embeddingutils "github.com/parlancehq/parlance/pkg/embeddings/utils"
	eventstreamutils "github.com/parlancehq/parlance/pkg/eventstream/utils"
	"github.com/parlancehq/parlance/pkg/index"
	"github.com/parlancehq/parlance/pkg/logger"
	vectorutils "github.com/parlancehq/parlance/pkg/vector/utils"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	updatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// watchDebounce is how long the corpus must stay quiet after a file event
// before a reindex starts.
const watchDebounce = 500 * time.Millisecond

type indexCommander struct {
	corpusRoot     string
	languages      []string
	chunkSize      uint
	chunkOverlap   uint
	boundaryWindow uint

	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	embeddingTimeout  time.Duration

	vectorProvider string
	vectorTarget   string

	eventsProvider string
	eventsBrokers  []string
	eventsTopic    string

	workers uint
	watch   bool
	jsonOut bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

const indexLongDesc string = `Index the document corpus.

Walks the corpus root, which holds one subdirectory per language code
(corpus/en/, corpus/ru/, ...), chunks every document, embeds each chunk,
and upserts the vectors into the per-language stores. Unchanged chunks
are detected by content hash and skipped without re-embedding; records
whose chunks disappeared from their source are removed. Reindexing an
unchanged corpus is a no-op.

Use --watch to keep running and reindex whenever corpus files change.
Use --json to print the full indexing report as JSON.

Examples:
  parlance index
  parlance index --corpus ./corpus --languages en,ru
  parlance index --embedding-provider openai --embedding-model text-embedding-3-small
  parlance index --watch
  parlance index --json`

const indexShortDesc string = "Index the document corpus"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	indexFlags := []string{
		config.FlagCorpusRoot,
		config.FlagLanguages,
		config.FlagChunkSize,
		config.FlagChunkOverlap,
		config.FlagEmbeddingProv,
		config.FlagEmbeddingTgt,
		config.FlagEmbeddingModel,
		config.FlagEmbeddingDims,
		config.FlagVectorStoreProv,
		config.FlagVectorStoreTgt,
		config.FlagEventsProvider,
		config.FlagEventsTopic,
	}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), indexFlags)

			cmder.corpusRoot = v.GetString("corpus.root")
			cmder.languages = config.GetStringList(v, "corpus.languages")
			cmder.chunkSize = v.GetUint("chunker.chunk_size")
			cmder.chunkOverlap = v.GetUint("chunker.overlap")
			cmder.boundaryWindow = v.GetUint("chunker.boundary_window")
			cmder.embeddingProvider = v.GetString("embedding.provider")
			cmder.embeddingTarget = v.GetString("embedding.target")
			cmder.embeddingModel = v.GetString("embedding.model")
			cmder.embeddingDims = v.GetUint("embedding.dimensions")
			cmder.embeddingTimeout = time.Duration(v.GetUint("embedding.timeout_seconds")) * time.Second
			cmder.vectorProvider = v.GetString("vector_store.provider")
			cmder.vectorTarget = v.GetString("vector_store.target")
			cmder.eventsProvider = v.GetString("events.provider")
			cmder.eventsBrokers = config.GetStringList(v, "events.brokers")
			cmder.eventsTopic = v.GetString("events.topic")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagCorpusRoot, &cmder.corpusRoot)
	config.AddStringSliceFlag(cmd, fs, config.FlagLanguages, &cmder.languages)
	config.AddUintFlag(cmd, fs, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, fs, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, fs, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().UintVar(&cmder.workers, "workers", 4, "Number of sources indexed concurrently")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Watch the corpus and reindex on changes")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the indexing report as JSON")

	return cmd
}

func (c *indexCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	langs := document.Languages(c.languages)
	if len(langs) == 0 {
		return fmt.Errorf("at least one language is required")
	}

	// The sqlite provider keeps its database files in the .parlance/
	// directory unless a target directory is configured.
	vectorTarget := c.vectorTarget
	if c.vectorProvider == "sqlite" && vectorTarget == "" {
		dir, err := dotdir.NewManager().Target(c.configDir)
		if err != nil {
			return fmt.Errorf("resolving data dir: %w", err)
		}
		vectorTarget = dir
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProvider,
		TargetURL:    c.embeddingTarget,
		Model:        c.embeddingModel,
		Dimensions:   c.embeddingDims,
		Timeout:      c.embeddingTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	stores, err := vectorutils.NewStores(&vectorutils.NewStoresOpts{
		ProviderType: c.vectorProvider,
		TargetURL:    vectorTarget,
		Languages:    langs,
		Dimensions:   c.embeddingDims,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector stores: %w", err)
	}
	defer vectorutils.CloseStores(stores)

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.eventsProvider,
		Brokers:      c.eventsBrokers,
		Topic:        c.eventsTopic,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	loader, err := document.NewLoader(c.corpusRoot, langs, c.logger)
	if err != nil {
		return fmt.Errorf("creating loader: %w", err)
	}

	chkr, err := chunker.New(chunker.Config{
		ChunkSize:      c.chunkSize,
		Overlap:        c.chunkOverlap,
		BoundaryWindow: c.boundaryWindow,
	})
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}

	ix, err := index.New(&index.Config{
		Loader:     loader,
		Chunker:    chkr,
		Embedder:   embedder,
		Stores:     stores,
		Publisher:  publisher,
		NumWorkers: c.workers,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}

	if err := c.reindexOnce(ctx, ix, langs); err != nil {
		return err
	}

	if !c.watch {
		return nil
	}
	return c.watchCorpus(func() error { return c.reindexOnce(ctx, ix, langs) })
}

func (c *indexCommander) reindexOnce(ctx context.Context, ix *index.Indexer, langs []document.Language) error {
	var report *index.Report
	var err error

	if c.jsonOut {
		report, err = ix.Reindex(ctx)
	} else {
		err = cliui.Step(os.Stdout, fmt.Sprintf("Indexing %s", c.corpusRoot), func() error {
			var stepErr error
			report, stepErr = ix.Reindex(ctx)
			return stepErr
		})
	}
	if err != nil {
		return fmt.Errorf("indexing corpus: %w", err)
	}

	if err := c.saveState(report, langs); err != nil {
		c.logger.Warn("could not save index state", zap.Error(err))
	}

	if c.jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	c.printReport(report)
	return nil
}

func (c *indexCommander) saveState(report *index.Report, langs []document.Language) error {
	codes := make([]string, len(langs))
	for i, l := range langs {
		codes[i] = l.String()
	}

	state := &dotdir.IndexState{
		IndexedAt:    time.Now(),
		Corpus:       c.corpusRoot,
		Languages:    codes,
		Sources:      len(report.Sources),
		Added:        report.Added,
		Updated:      report.Updated,
		Skipped:      report.Skipped,
		Removed:      report.Removed,
		TotalRecords: report.TotalRecords,
	}
	return dotdir.NewManager().SaveIndexState(state, c.configDir)
}

func (c *indexCommander) printReport(report *index.Report) {
	fmt.Println()

	for _, sr := range report.Sources {
		style := statusStyle(sr.Status)
		fmt.Printf("  %s  %s  %s\n",
			style.Render(fmt.Sprintf("%-7s", string(sr.Status))),
			cliui.NameStyle.Render(sr.Path),
			cliui.DimStyle.Render(fmt.Sprintf("%d chunks  +%d ~%d =%d -%d",
				sr.ChunkCount, sr.Added, sr.Updated, sr.Skipped, sr.Removed)),
		)
		if sr.Err != "" {
			fmt.Printf("           %s\n", errorStyle.Render(sr.Err))
		}
	}

	fmt.Printf("\n  %s %d sources  %s  %s  %s  %s\n",
		headerStyle.Render("Indexed"),
		len(report.Sources),
		addedStyle.Render(fmt.Sprintf("+%d added", report.Added)),
		updatedStyle.Render(fmt.Sprintf("~%d updated", report.Updated)),
		skippedStyle.Render(fmt.Sprintf("=%d skipped", report.Skipped)),
		cliui.DimStyle.Render(fmt.Sprintf("-%d removed", report.Removed)),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Total records:"),
		cliui.ValueStyle.Render(strconv.Itoa(report.TotalRecords)),
	)

	if n := report.Errored(); n > 0 {
		fmt.Printf("  %s %d sources failed\n\n", cliui.FailMark, n)
	}
}

func statusStyle(status index.SourceStatus) lipgloss.Style {
	switch status {
	case index.SourceStatusAdded:
		return addedStyle
	case index.SourceStatusUpdated:
		return updatedStyle
	case index.SourceStatusError:
		return errorStyle
	default:
		return skippedStyle
	}
}

// watchCorpus blocks, reindexing after every quiet period that follows a
// corpus file change, until the process receives SIGINT or SIGTERM.
func (c *indexCommander) watchCorpus(reindex func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.corpusRoot); err != nil {
		return fmt.Errorf("watching %s: %w", c.corpusRoot, err)
	}

	// fsnotify does not recurse; each language directory needs its own watch.
	for _, lang := range document.Languages(c.languages) {
		dir := filepath.Join(c.corpusRoot, lang.String())
		if err := watcher.Add(dir); err != nil {
			c.logger.Debug("language dir not watchable",
				zap.String("dir", dir),
				zap.Error(err),
			)
		}
	}

	fmt.Printf("  %s %s\n\n",
		cliui.DimStyle.Render("Watching"),
		cliui.NameStyle.Render(c.corpusRoot),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// The debounce timer is armed by the first relevant event and re-armed
	// by each one after it, so a burst of file writes indexes once.
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case sig := <-sigChan:
			c.logger.Info("received signal, stopping watch", zap.String("signal", sig.String()))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			if err := reindex(); err != nil {
				c.logger.Error("reindex failed", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
