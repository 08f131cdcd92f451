package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/config"
	"github.com/kailas-cloud/playsearch/internal/db"
	dbRedis "github.com/kailas-cloud/playsearch/internal/db/redis"
	dbWeaviate "github.com/kailas-cloud/playsearch/internal/db/weaviate"
	"github.com/kailas-cloud/playsearch/internal/domain"
	"github.com/kailas-cloud/playsearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/playsearch/internal/repository/budget"
	catalogrepo "github.com/kailas-cloud/playsearch/internal/repository/catalog"
	chunkrepo "github.com/kailas-cloud/playsearch/internal/repository/chunk"
	"github.com/kailas-cloud/playsearch/internal/repository/embcache"
	"github.com/kailas-cloud/playsearch/internal/transport/langchain"
	openaiTransport "github.com/kailas-cloud/playsearch/internal/transport/openai"
	classifyuc "github.com/kailas-cloud/playsearch/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/playsearch/internal/usecase/embedding"
	generateuc "github.com/kailas-cloud/playsearch/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/playsearch/internal/usecase/health"
	identityuc "github.com/kailas-cloud/playsearch/internal/usecase/identity"
	recommenduc "github.com/kailas-cloud/playsearch/internal/usecase/recommend"
	retrievaluc "github.com/kailas-cloud/playsearch/internal/usecase/retrieval"
	searchuc "github.com/kailas-cloud/playsearch/internal/usecase/search"
)

// app is the wired service graph of the serve command.
type app struct {
	store    *dbRedis.Store
	catalog  *catalogrepo.Store
	holder   *catalogrepo.Holder
	search   *searchuc.Service
	identity *identityuc.Service
	health   *healthuc.Service
}

func (a *app) Close() {
	a.store.Close()
	_ = a.catalog.Close()
}

// openStore connects to Redis or Valkey. Both drivers speak the same protocol
// through rueidis; valkey requires the valkey-search module for the chunk index.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Driver),
		zap.Strings("addrs", cfg.Addrs),
	)
	return store, nil
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	catStore, err := catalogrepo.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	holder := catalogrepo.NewHolder(catStore, logger)
	if _, err := holder.Reload(ctx); err != nil {
		_ = catStore.Close()
		return nil, err
	}

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		_ = catStore.Close()
		return nil, err
	}

	a := &app{store: store, catalog: catStore, holder: holder}
	if err := a.wire(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	chunks, indexProbe, err := buildChunkSearcher(cfg.VectorIndex, a.store)
	if err != nil {
		return err
	}

	base, embedder := buildEmbedder(ctx, cfg.Embedding, a.store, logger)

	llm, err := buildGenerator(cfg.LLM, logger)
	if err != nil {
		return err
	}

	retriever := retrievaluc.New(chunks, embedder, retrievaluc.Config{
		TopK:      cfg.VectorIndex.TopK,
		Threshold: *cfg.VectorIndex.SimilarityThreshold,
	}, logger)

	a.search = searchuc.New(
		classifyuc.New(llm, logger),
		retriever,
		generateuc.New(llm),
		recommenduc.New(a.holder),
	)

	a.identity, err = identityuc.New(identityuc.Config{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: time.Duration(cfg.Auth.TokenTTLMin) * time.Minute,
		Password: cfg.Auth.LoginPassword,
	}, a.holder, logger)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	checks := []healthuc.Check{
		healthuc.PingCheck("store", a.store, true),
		healthuc.PingCheck("catalog_db", a.catalog, false),
		healthuc.EmbeddingCheck(base),
	}
	if indexProbe != nil {
		checks = append(checks, healthuc.PingCheck("vector_index", indexProbe, true))
	}
	a.health = healthuc.New(a.holder, checks...)
	return nil
}

// buildChunkSearcher selects the vector backend. The returned pinger is set
// when the backend is a separate service.
func buildChunkSearcher(cfg config.VectorIndexConfig, store *dbRedis.Store) (*chunkrepo.Repo, db.Pinger, error) {
	switch cfg.Backend {
	case "weaviate":
		ws, err := dbWeaviate.NewStore(dbWeaviate.Config{URL: cfg.Weaviate.URL, APIKey: cfg.Weaviate.APIKey})
		if err != nil {
			return nil, nil, fmt.Errorf("weaviate: %w", err)
		}
		return chunkrepo.New(ws, cfg.Class), ws, nil
	default:
		return chunkrepo.New(store, cfg.Name), nil, nil
	}
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Instrumented -> Cached.
// The cache is outermost, so hits skip the budget check and spend nothing.
// The bare provider is returned for the health probe.
func buildEmbedder(
	ctx context.Context, cfg config.EmbeddingConfig, store db.KVStore, logger *zap.Logger,
) (*openaiTransport.Embedder, domain.Embedder) {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budget embeddinguc.BudgetChecker
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		budget = embeddinguc.NewBudgetTracker(cfg.Provider, embeddinguc.BudgetLimits{
			Daily:   cfg.Budget.DailyTokenLimit,
			Monthly: cfg.Budget.MonthlyTokenLimit,
			Action:  embeddinguc.BudgetAction(cfg.Budget.Action),
		}, logger).WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(base, cfg.Provider, cfg.Model, budget, logger)
	cached := embcache.New(
		instrumented, store, embcache.Namespace(cfg.Provider, cfg.Model, cfg.Dimensions),
		time.Duration(cfg.CacheTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)

	logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Bool("budget", budget != nil),
	)
	return base, cached
}

// buildGenerator selects the text generation provider and wraps it with metrics.
func buildGenerator(cfg config.LLMConfig, logger *zap.Logger) (domain.TextGenerator, error) {
	var (
		inner domain.TextGenerator
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		inner, err = langchain.NewAnthropic(langchain.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "ollama":
		inner, err = langchain.NewOllama(langchain.Config{BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "openai":
		inner = openaiTransport.NewChat(&openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%s generator: %w", cfg.Provider, err)
	}

	logger.Info("Generator created", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return generateuc.NewInstrumentedGenerator(inner, cfg.Provider, cfg.Model, logger), nil
}
