package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/foodlog/backend/config"
	httpDelivery "github.com/foodlog/backend/internal/delivery/http"
	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/infrastructure/llm"
	"github.com/foodlog/backend/internal/infrastructure/logger"
	"github.com/foodlog/backend/internal/infrastructure/metrics"
	"github.com/foodlog/backend/internal/infrastructure/openfoodfacts"
	"github.com/foodlog/backend/internal/infrastructure/refdb"
	"github.com/foodlog/backend/internal/infrastructure/store"
	"github.com/foodlog/backend/internal/infrastructure/usda"
	"github.com/foodlog/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	zl.Info("starting foodlog backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	foods, err := refdb.Load(cfg.RefDB.Path)
	if err != nil {
		return err
	}
	zl.Info("reference database loaded", zap.String("path", cfg.RefDB.Path), zap.Int("foods", foods.Len()))

	generator, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, zl.Named("llm"))
	if err != nil {
		return err
	}

	m := metrics.New()

	enricher, err := newEnricher(cfg, generator, m, zl)
	if err != nil {
		return err
	}
	zl.Info("enrichment configured", zap.String("strategy", enricher.Name()))

	kv, err := store.Open(ctx, store.Config{
		Type:       cfg.Store.Type,
		RedisURL:   cfg.Store.RedisURL,
		SQLitePath: cfg.Store.SQLitePath,
	}, zl.Named("store"))
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			zl.Warn("failed to close store", zap.Error(err))
		}
	}()

	// Initialize usecase layer
	pipeline := usecase.NewPipeline(foods, generator, enricher, usecase.PipelineConfig{
		StageTimeout:         cfg.Pipeline.StageTimeout,
		ConsistencyTolerance: cfg.Pipeline.ConsistencyTolerance,
	}, m, zl.Named("pipeline"))

	diary := usecase.NewDiaryService(kv, pipeline, usecase.DiaryConfig{
		MaxAttempts:  cfg.Diary.MaxAttempts,
		RetryBackoff: cfg.Diary.RetryBackoff,
	}, zl.Named("diary"))

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(pipeline, diary, zl.Named("http"))

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, httpDelivery.RouterDeps{
		Logger:         zl.Named("http"),
		Observer:       m,
		MetricsHandler: m.Handler(),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// newEnricher builds the configured enrichment strategy
func newEnricher(cfg *config.Config, generator domain.TextGenerator, observer usecase.Observer, zl *zap.Logger) (usecase.Enricher, error) {
	switch cfg.Enrichment.Strategy {
	case usecase.StrategyEstimate:
		return usecase.NewEstimationEnricher(generator, zl.Named("enricher")), nil
	case usecase.StrategySearch:
	default:
		return nil, fmt.Errorf("unknown enrichment strategy %q", cfg.Enrichment.Strategy)
	}

	var searcher domain.FoodSearcher
	switch cfg.Search.Provider {
	case "usda":
		client := usda.NewClient(cfg.Search.USDA.APIKey, cfg.Search.USDA.BaseURL, zl.Named("usda"))
		// Enable debug mode in development environment
		if cfg.IsDevelopment() {
			client.SetDebug(true)
			zl.Info("USDA client debug mode enabled")
		}
		searcher = client
	case "openfoodfacts":
		searcher = openfoodfacts.NewClient(cfg.Search.OpenFoodFacts.BaseURL, cfg.Search.OpenFoodFacts.UserAgent, zl.Named("openfoodfacts"))
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Search.Provider)
	}
	zl.Info("food search configured", zap.String("provider", cfg.Search.Provider))

	return usecase.NewSearchEnricher(searcher, generator, usecase.SearchEnricherConfig{
		MaxCandidates: cfg.Enrichment.MaxCandidates,
		SearchTimeout: cfg.Enrichment.SearchTimeout,
		Concurrency:   cfg.Enrichment.SearchConcurrency,
	}, observer, zl.Named("enricher")), nil
}
