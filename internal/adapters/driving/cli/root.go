// Package cli provides the cobra command tree for the afiq binary.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	configfile "github.com/afiq-labs/afiq-cli/internal/adapters/driven/config/file"
	embeddingopenai "github.com/afiq-labs/afiq-cli/internal/adapters/driven/embedding/openai"
	llmopenai "github.com/afiq-labs/afiq-cli/internal/adapters/driven/llm/openai"
	"github.com/afiq-labs/afiq-cli/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/afiq-labs/afiq-cli/internal/adapters/driven/vectorstore/chroma"
	"github.com/afiq-labs/afiq-cli/internal/adapters/driven/vectorstore/sqlite"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driving"
	"github.com/afiq-labs/afiq-cli/internal/core/services"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
)

// Services used by the commands. Wired lazily by ensureServices so
// commands like version run without credentials; tests inject mocks
// directly into these variables.
var (
	askService  driving.AskService
	ruleStore   driven.RuleStore
	embedder    driven.EmbeddingService
	generator   driven.GenerationService
	vectorStore driven.VectorStore
	appConfig   configfile.Config
)

var rootCmd = &cobra.Command{
	Use:   "afiq",
	Short: "Grounded Q&A over AFI/DAFI regulatory documents",
	Long: `AFIQ answers compliance questions from indexed Air Force instructions.

Queries run through a retrieval pipeline (embedding search, hierarchy
expansion, LLM relevance filtering) and answers cite the AFI/DAFI
paragraphs they are grounded in.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.afiq/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	version = v
}

// ensureServices wires the full pipeline on first use. Repeated calls are
// no-ops once askService is set.
func ensureServices(cmd *cobra.Command) error {
	if askService != nil {
		return nil
	}

	// Best-effort .env load; missing files are fine.
	_ = godotenv.Load()

	cfg, err := configfile.LoadConfig(configPath)
	if err != nil {
		return err
	}
	appConfig = cfg

	rules, err := configfile.NewRuleStore("")
	if err != nil {
		return err
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = cfg.OpenAI.APIKey
	}
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set (environment, .env, or config file)")
	}

	embedSvc, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Model:             cfg.OpenAI.EmbeddingModel,
		Timeout:           cfg.EmbedTimeout(),
		RequestsPerSecond: cfg.OpenAI.EmbeddingRPS,
	})
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}

	llmSvc, err := llmopenai.NewGenerationService(llmopenai.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Timeout:           cfg.OpenAITimeout(),
		RequestsPerSecond: cfg.OpenAI.CompletionRPS,
	})
	if err != nil {
		return fmt.Errorf("generation service: %w", err)
	}

	var store driven.VectorStore
	switch cfg.Store.Backend {
	case "sqlite":
		store, err = sqlite.NewStore(cfg.Store.SQLitePath)
	default:
		store, err = chroma.NewStore(cmd.Context(), chroma.Config{
			BaseURL:    cfg.Chroma.BaseURL,
			Collection: cfg.Chroma.Collection,
			Timeout:    cfg.ChromaTimeout(),
		})
	}
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}

	pipeline := cfg.PipelineConfig()
	cache := services.NewEmbeddingCache(embedSvc, pipeline.EmbeddingCacheSize)
	enhancer := services.NewQueryEnhancer(rules)
	retrieval := services.NewRetrievalEngine(cache, store, enhancer, rules,
		pipeline.OverfetchRatio, pipeline.OverfetchCap)
	expander := services.NewHierarchyExpander(store, pipeline.PenaltyStep, pipeline.PenaltyCap)
	filter := services.NewRelevanceFilter(llmSvc, rules, pipeline.FilterMinSimilarity)
	assembler := services.NewContextAssembler(tiktoken.NewTokenCounter())
	responder := services.NewResponseGenerator(llmSvc, rules, pipeline.Temperature)
	intent := services.NewIntentClassifier(rules, pipeline.ProceduralFloor)

	ruleStore = rules
	embedder = cache
	generator = llmSvc
	vectorStore = store
	askService = services.NewAskService(retrieval, expander, filter, assembler,
		responder, intent, cache.ModelName(), pipeline)
	return nil
}
