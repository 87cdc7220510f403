// Package servecmder provides the serve command for running the parlance API
// and MCP servers.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/api"
	"github.com/parlancehq/parlance/api/mcp"
	"github.com/parlancehq/parlance/pkg/config"
	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/dotdir"
	embeddingutils "github.com/parlancehq/parlance/pkg/embeddings/utils"
	historyutils "github.com/parlancehq/parlance/pkg/history/utils"
	"github.com/parlancehq/parlance/pkg/logger"
	"github.com/parlancehq/parlance/pkg/search"
	vectorutils "github.com/parlancehq/parlance/pkg/vector/utils"
)

type serveCommander struct {
	listen    string
	languages []string

	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	embeddingTimeout  time.Duration

	vectorProvider string
	vectorTarget   string

	historyProvider    string
	historyTarget      string
	historyMaxMessages uint
	historyMaxAge      uint

	threshold float64
	priority  []string

	noMCP bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the parlance server.

Serves the retrieval API and the MCP endpoint on one listener:
  GET    /v1/search                      Multilingual retrieval
  GET    /v1/stats                       Per-language record counts
  GET    /v1/history/{user}              Read a conversation window
  POST   /v1/history/{user}              Append a message
  DELETE /v1/history/{user}              Reset a conversation
  GET    /v1/history/{user}/language     Read a language preference
  PUT    /v1/history/{user}/language     Set a language preference
  /mcp                                   MCP tools (search_corpus, conversation_history)

The searcher reads the vector stores written by parlance index; point both
commands at the same configuration.

Examples:
  parlance serve
  parlance serve --listen :9000
  parlance serve --history-provider postgres --history-target postgres://localhost/parlance
  parlance serve --no-mcp`

const serveShortDesc string = "Run the parlance API and MCP servers"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	serveFlags := []string{
		config.FlagAPIListen,
		config.FlagLanguages,
		config.FlagEmbeddingProv,
		config.FlagEmbeddingTgt,
		config.FlagEmbeddingModel,
		config.FlagEmbeddingDims,
		config.FlagVectorStoreProv,
		config.FlagVectorStoreTgt,
		config.FlagHistoryProv,
		config.FlagHistoryTgt,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet(), serveFlags)

			cmder.listen = v.GetString("api.listen")
			cmder.languages = config.GetStringList(v, "corpus.languages")
			cmder.embeddingProvider = v.GetString("embedding.provider")
			cmder.embeddingTarget = v.GetString("embedding.target")
			cmder.embeddingModel = v.GetString("embedding.model")
			cmder.embeddingDims = v.GetUint("embedding.dimensions")
			cmder.embeddingTimeout = time.Duration(v.GetUint("embedding.timeout_seconds")) * time.Second
			cmder.vectorProvider = v.GetString("vector_store.provider")
			cmder.vectorTarget = v.GetString("vector_store.target")
			cmder.historyProvider = v.GetString("history.provider")
			cmder.historyTarget = v.GetString("history.target")
			cmder.historyMaxMessages = v.GetUint("history.max_messages")
			cmder.historyMaxAge = v.GetUint("history.max_age_minutes")
			cmder.threshold = v.GetFloat64("search.threshold")
			cmder.priority = config.GetStringList(v, "search.language_priority")
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
	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	config.AddStringSliceFlag(cmd, fs, config.FlagLanguages, &cmder.languages)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, fs, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagHistoryProv, &cmder.historyProvider)
	config.AddStringFlag(cmd, fs, config.FlagHistoryTgt, &cmder.historyTarget)

	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")

	return cmd
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	langs := document.Languages(c.languages)
	if len(langs) == 0 {
		return fmt.Errorf("at least one language is required")
	}

	// The sqlite providers keep their database files in the .parlance/
	// directory unless a target directory is configured.
	vectorTarget := c.vectorTarget
	historyTarget := c.historyTarget
	if (c.vectorProvider == "sqlite" && vectorTarget == "") ||
		(c.historyProvider == "sqlite" && historyTarget == "") {
		dir, err := dotdir.NewManager().Target(c.configDir)
		if err != nil {
			return fmt.Errorf("resolving data dir: %w", err)
		}
		if c.vectorProvider == "sqlite" && vectorTarget == "" {
			vectorTarget = dir
		}
		if c.historyProvider == "sqlite" && historyTarget == "" {
			historyTarget = dir
		}
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

	historyStore, err := historyutils.NewStore(ctx, &historyutils.NewStoreOpts{
		ProviderType: c.historyProvider,
		TargetURL:    historyTarget,
		Window:       historyutils.WindowFrom(c.historyMaxAge, c.historyMaxMessages),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating history store: %w", err)
	}
	defer historyStore.Close()

	searcher, err := search.NewMultilingual(search.Config{
		Stores:    stores,
		Embedder:  embedder,
		Priority:  document.Languages(c.priority),
		Threshold: c.threshold,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating searcher: %w", err)
	}

	var mcpHandler http.Handler
	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Searcher: searcher,
			History:  historyStore,
			Logger:   c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		mcpHandler = mcpServer.Handler()
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		Searcher:   searcher,
		History:    historyStore,
		Stores:     stores,
		MCP:        mcpHandler,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting parlance server",
		zap.String("listen", c.listen),
		zap.Strings("languages", c.languages),
		zap.String("embedding_provider", c.embeddingProvider),
		zap.String("vector_store", c.vectorProvider),
		zap.String("history_store", c.historyProvider),
		zap.Bool("mcp", !c.noMCP),
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}
