// Command knowbotd runs the knowbot HTTP service: the staged answer pipeline
// with session persistence, streaming, and metrics.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/knowbot-ai/knowbot/config"
	"github.com/knowbot-ai/knowbot/graph/emit"
	"github.com/knowbot-ai/knowbot/graph/store"
	"github.com/knowbot-ai/knowbot/model"
	"github.com/knowbot-ai/knowbot/model/anthropic"
	"github.com/knowbot-ai/knowbot/model/google"
	"github.com/knowbot-ai/knowbot/model/openai"
	"github.com/knowbot-ai/knowbot/pipeline"
	"github.com/knowbot-ai/knowbot/retrieval"
	"github.com/knowbot-ai/knowbot/server"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.Debug)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := buildModel(ctx, cfg)
	if err != nil {
		log.Fatal("model setup failed", zap.Error(err))
	}
	log.Info("chat model ready", zap.String("provider", cfg.Provider), zap.String("model", llm.Name()))

	sessions := buildStore(cfg, log)

	registry := prometheus.NewRegistry()
	emitter := emit.Multi{
		emit.NewZapEmitter(log),
		emit.NewPromEmitter(registry),
	}

	deps := pipeline.Deps{
		Model:   llm,
		Store:   sessions,
		Emitter: emitter,
		Logger:  log,
	}
	if cfg.TavilyAPIKey != "" {
		deps.Searcher = retrieval.NewTavily(cfg.TavilyAPIKey)
	}
	deps.Crawler = retrieval.NewHTTPCrawler()
	deps.Calculator = retrieval.NewExprCalculator()
	if cfg.PostgresDSN != "" && cfg.GoogleAPIKey != "" {
		embedder, err := google.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatal("embedder setup failed", zap.Error(err))
		}
		vectors, err := retrieval.NewPGVectorStore(cfg.PostgresDSN, embedder)
		if err != nil {
			log.Fatal("vector store setup failed", zap.Error(err))
		}
		deps.Vectors = vectors
	}

	p, err := pipeline.New(pipeline.Config{
		RevisionLimit:       cfg.RevisionLimit,
		CompactionThreshold: cfg.CompactionThreshold,
	}, deps)
	if err != nil {
		log.Fatal("pipeline setup failed", zap.Error(err))
	}

	srv := server.New(p, log, registry)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Listen(cfg.Addr); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var log *zap.Logger
	var err error
	if debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return log
}

// buildModel selects the chat model provider. Each provider has a sensible
// default model when KNOWBOT_MODEL is unset.
func buildModel(ctx context.Context, cfg config.Config) (model.ChatModel, error) {
	switch cfg.Provider {
	case "anthropic":
		name := cfg.ModelName
		if name == "" {
			name = "claude-sonnet-4-5"
		}
		return anthropic.New(cfg.AnthropicAPIKey, name), nil
	case "google":
		name := cfg.ModelName
		if name == "" {
			name = "gemini-2.0-flash"
		}
		return google.New(ctx, cfg.GoogleAPIKey, name)
	default:
		name := cfg.ModelName
		if name == "" {
			name = "gpt-4o-mini"
		}
		return openai.New(cfg.OpenAIAPIKey, name), nil
	}
}

// buildStore picks the first configured durable backend and wraps it with the
// in-memory fallback, so persistence failures degrade instead of failing
// runs.
func buildStore(cfg config.Config, log *zap.Logger) store.Store[pipeline.State] {
	var durable store.Store[pipeline.State]

	switch {
	case cfg.RedisURL != "":
		st, err := store.NewRedisStore[pipeline.State](cfg.RedisURL, pipeline.StateSummary)
		if err != nil {
			log.Warn("redis store unavailable", zap.Error(err))
		} else {
			log.Info("session store: redis")
			durable = st
		}
	case cfg.SQLitePath != "":
		st, err := store.NewSQLiteStore[pipeline.State](cfg.SQLitePath, pipeline.StateSummary)
		if err != nil {
			log.Warn("sqlite store unavailable", zap.Error(err))
		} else {
			log.Info("session store: sqlite", zap.String("path", cfg.SQLitePath))
			durable = st
		}
	case cfg.MySQLDSN != "":
		st, err := store.NewMySQLStore[pipeline.State](cfg.MySQLDSN, pipeline.StateSummary)
		if err != nil {
			log.Warn("mysql store unavailable", zap.Error(err))
		} else {
			log.Info("session store: mysql")
			durable = st
		}
	}

	return store.NewFallback(durable, log)
}
