// Package appfx is the composition root: it builds the singleton resources
// every run shares (embedding encoder, LLM gateway, vector index, audit
// store, indexer) with go.uber.org/fx, keeping the embedding model read-only
// after load and database connections pooled with a cap (see DESIGN.md).
package appfx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"github.com/metalagman/normareg/internal/agents"
	"github.com/metalagman/normareg/internal/api"
	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/config"
	"github.com/metalagman/normareg/internal/embedding"
	"github.com/metalagman/normareg/internal/graph"
	"github.com/metalagman/normareg/internal/indexer"
	"github.com/metalagman/normareg/internal/llmgateway"
	"github.com/metalagman/normareg/internal/orchestrator"
	"github.com/metalagman/normareg/internal/vectorindex"
)

// llmRetries is the count of extra attempts a transient LLM failure gets
// beyond the first, for both the shared gateway and per-request overrides.
const llmRetries = 1

// VectorDB and AuditDB are distinct named types over *sql.DB so fx can tell
// the two connection pools apart in its dependency graph (both underlying
// a Postgres database/sql.DB, per DATABASE_URL pointing at one instance
// with two logical schemas).
type VectorDB *sql.DB
type AuditDB *sql.DB

// Module provides every singleton resource the CLI and HTTP server need,
// built once at process start and shared by reference thereafter. Callers
// must separately fx.Provide a *config.Config (loaded from CLI flags before
// the app is built, since config.Load needs the --config path) alongside
// this Module.
var Module = fx.Module("normareg",
	fx.Provide(
		provideLogger,
		provideEncoder,
		provideGateway,
		provideGatewayFactory,
		provideVectorDB,
		provideAuditDB,
		provideVectorIndex,
		provideAuditStore,
		provideIndexer,
		provideExecutor,
		provideOrchestrator,
		provideAPIServer,
	),
)

// provideLogger exposes the global zerolog logger appfx's consumers embed
// by value; cmd/normareg calls logging.Init before building the fx app, so
// by the time this provider runs log.Logger already reflects --debug.
func provideLogger() *zerolog.Logger {
	return &log.Logger
}

func provideEncoder(cfg *config.Config) embedding.Encoder {
	return embedding.New(cfg.EmbeddingDim)
}

func provideGateway(ctx context.Context, cfg *config.Config) (llmgateway.Gateway, error) {
	gw, err := buildGateway(ctx, cfg, cfg.LLMType, "")
	if err != nil {
		return nil, err
	}
	return wrapGateway(gw, cfg), nil
}

// buildGateway constructs the Gateway for backend, optionally overriding the
// backend's configured API key with apiKeyOverride (used by GatewayFactory
// to honor a per-request X-LLM-API-Key header).
func buildGateway(ctx context.Context, cfg *config.Config, backend config.LLMBackend, apiKeyOverride string) (llmgateway.Gateway, error) {
	switch backend {
	case config.LLMBackendOllama:
		return llmgateway.NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.LLMTimeout), nil
	case config.LLMBackendOpenAI:
		key := cfg.OpenAIAPIKey
		if apiKeyOverride != "" {
			key = apiKeyOverride
		}
		return llmgateway.NewOpenAI(key, cfg.OpenAIModel, cfg.LLMTimeout)
	case config.LLMBackendGemini:
		key := cfg.GeminiAPIKey
		if apiKeyOverride != "" {
			key = apiKeyOverride
		}
		return llmgateway.NewGemini(ctx, key, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("appfx: unknown llm_type %q", backend)
	}
}

// wrapGateway applies the decorators every gateway instance needs: a
// min-tokens floor so backends that spend tokens on internal reasoning
// still get a usable completion budget, and retry-once-with-backoff over
// transient failures.
func wrapGateway(gw llmgateway.Gateway, cfg *config.Config) llmgateway.Gateway {
	return llmgateway.WithRetry(llmgateway.WithMinTokens(gw, cfg.LLMMinTokens), llmRetries)
}

func provideGatewayFactory(cfg *config.Config) api.GatewayFactory {
	return func(ctx context.Context, apiKey string) (llmgateway.Gateway, error) {
		if cfg.LLMType == config.LLMBackendOllama {
			return nil, fmt.Errorf("appfx: X-LLM-API-Key override is not supported for the %s backend", cfg.LLMType)
		}
		gw, err := buildGateway(ctx, cfg, cfg.LLMType, apiKey)
		if err != nil {
			return nil, err
		}
		return wrapGateway(gw, cfg), nil
	}
}

func provideVectorDB(cfg *config.Config) (VectorDB, error) {
	db, err := vectorindex.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open vector index db: %w", err)
	}
	return VectorDB(db), nil
}

func provideAuditDB(cfg *config.Config) (AuditDB, error) {
	db, err := audit.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	return AuditDB(db), nil
}

func provideVectorIndex(db VectorDB) *vectorindex.Index {
	return vectorindex.New((*sql.DB)(db))
}

func provideAuditStore(db AuditDB) *audit.Store {
	return audit.NewStore((*sql.DB)(db))
}

func provideIndexer(index *vectorindex.Index, enc embedding.Encoder, log *zerolog.Logger) *indexer.Indexer {
	return indexer.New(index, enc, indexer.DefaultExtensions, *log)
}

func provideExecutor(gw llmgateway.Gateway, index *vectorindex.Index, enc embedding.Encoder, cfg *config.Config, log *zerolog.Logger) *graph.Executor {
	return &graph.Executor{
		Gateway:         gw,
		Index:           index,
		Encoder:         enc,
		RepoPath:        cfg.RepoPath,
		KeywordBoost:    agents.CodeReaderKeywordBoost(cfg.CodeReaderKeywordBoost),
		SearchThreshold: cfg.CodeReaderThreshold,
		Log:             *log,
	}
}

func provideOrchestrator(ex *graph.Executor, store *audit.Store, log *zerolog.Logger) *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Executor: ex,
		Audit:    store,
		Log:      *log,
	}
}

func provideAPIServer(orch *orchestrator.Orchestrator, gwFactory api.GatewayFactory, vectorDB VectorDB, auditDB AuditDB, log *zerolog.Logger) *api.Server {
	return &api.Server{
		Orchestrator:   orch,
		GatewayFactory: gwFactory,
		VectorDB:       (*sql.DB)(vectorDB),
		AuditDB:        (*sql.DB)(auditDB),
		Log:            *log,
	}
}
