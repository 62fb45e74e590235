package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/api"
	"github.com/ombra/registrar/internal/cache"
	"github.com/ombra/registrar/internal/catalog"
	"github.com/ombra/registrar/internal/config"
	"github.com/ombra/registrar/internal/dispatch"
	"github.com/ombra/registrar/internal/embedding"
	"github.com/ombra/registrar/internal/faq"
	"github.com/ombra/registrar/internal/gateway"
	"github.com/ombra/registrar/internal/graphstore"
	"github.com/ombra/registrar/internal/prereq"
	"github.com/ombra/registrar/internal/recommend"
	"github.com/ombra/registrar/internal/solver"
	pgstore "github.com/ombra/registrar/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Registrar...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/registrar.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	ctx := context.Background()

	// The catalog lives in PostgreSQL; without it there is nothing to
	// recommend, so this one is fatal.
	store, err := pgstore.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if err := store.Migrate(ctx, "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	courses, sections, err := store.LoadCatalog(ctx)
	if err != nil {
		logger.Fatal("catalog load failed", zap.Error(err))
	}
	index, err := catalog.Build(courses, sections)
	if err != nil {
		logger.Fatal("catalog rejected", zap.Error(err))
	}
	graph, err := prereq.Build(index, logger)
	if err != nil {
		logger.Fatal("prerequisite graph rejected", zap.Error(err))
	}
	logger.Info("Catalog loaded",
		zap.Int("courses", index.Len()),
		zap.Int("sections", len(sections)))

	// Optional backends degrade to warnings: the engine itself only
	// needs the in-memory catalog snapshot.
	var recCache recommend.Cache
	var redisCache *cache.Cache
	if cfg.Database.Redis.URL != "" {
		c, cErr := cache.New(cfg.Database.Redis.URL,
			time.Duration(cfg.Database.Redis.TTLSeconds)*time.Second, logger)
		if cErr != nil {
			logger.Warn("Redis unavailable, running without cache", zap.Error(cErr))
		} else {
			redisCache = c
			recCache = c
		}
	}

	var graphMirror *graphstore.Store
	if cfg.Database.Neo4j.URI != "" {
		gs, gErr := graphstore.New(cfg.Database.Neo4j.URI,
			cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if gErr == nil {
			gErr = gs.Ping(ctx)
		}
		if gErr != nil {
			logger.Warn("Neo4j unavailable, running without graph mirror", zap.Error(gErr))
		} else {
			if sErr := gs.Sync(ctx, index); sErr != nil {
				logger.Warn("graph sync failed", zap.Error(sErr))
			}
			graphMirror = gs
		}
	}

	sv := solver.New(index, graph, logger)
	service := recommend.NewService(index, graph, sv, store, recCache, store, logger)
	service.SetBudgets(cfg.Solver.DefaultBudget, cfg.Solver.MaxBudget)

	// FAQ retrieval: corpus from YAML, vectors in Qdrant when reachable.
	var entries []faq.Entry
	if cfg.FAQ.Path != "" {
		entries, err = faq.Load(cfg.FAQ.Path)
		if err != nil {
			logger.Fatal("faq corpus rejected", zap.Error(err))
		}
	}
	var embedder embedding.Provider
	var vectors *faq.VectorStore
	if cfg.FAQ.Embedding.Endpoint != "" && cfg.Database.Qdrant.Host != "" {
		embedder = embedding.NewClient(cfg.FAQ.Embedding.Endpoint,
			cfg.FAQ.Embedding.Model, cfg.FAQ.Embedding.Dimension)
		vs, vErr := faq.NewVectorStore(cfg.Database.Qdrant.Host, cfg.Database.Qdrant.Port)
		if vErr != nil {
			logger.Warn("Qdrant unavailable, faq falls back to lexical match", zap.Error(vErr))
		} else {
			vectors = vs
		}
	}
	var vecIndex faq.VectorIndex
	if vectors != nil {
		vecIndex = vectors
	}
	retriever := faq.NewRetriever(entries, embedder, vecIndex, logger)
	if err := retriever.Index(ctx); err != nil {
		logger.Warn("faq indexing failed, falling back to lexical match", zap.Error(err))
		retriever = faq.NewRetriever(entries, nil, nil, logger)
	}

	dispatcher := dispatch.New(service, retriever, logger)

	gw := gateway.New(dispatcher, logger)
	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	var unlocker api.Unlocker
	if graphMirror != nil {
		unlocker = graphMirror
	}
	handler := api.NewHandler(service, dispatcher, unlocker, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Registrar listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Registrar...")
	srv.Shutdown(ctx)
	if redisCache != nil {
		redisCache.Close()
	}
	if graphMirror != nil {
		graphMirror.Close(ctx)
	}
	if vectors != nil {
		vectors.Close()
	}
	store.Close()
	gw.Close()
}
