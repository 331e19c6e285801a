package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jetaide/backend/internal/adapter/llm"
	"github.com/jetaide/backend/internal/catalog"
	"github.com/jetaide/backend/internal/completion"
	"github.com/jetaide/backend/internal/config"
	"github.com/jetaide/backend/internal/embedding"
	"github.com/jetaide/backend/internal/memory"
	"github.com/jetaide/backend/internal/prompt"
	"github.com/jetaide/backend/internal/service"
	"github.com/jetaide/backend/internal/store"
	transport "github.com/jetaide/backend/internal/transport/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg := config.Load()

	logger.Info("starting backend",
		"http_port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"gateway", cfg.GatewayBaseURL,
		"memory_backend", cfg.MemoryBackend)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize gateway client; without credentials fall back to the
	// mock so local development works end to end.
	var gateway llm.GatewayClient
	if cfg.GatewayAPIKey != "" {
		gateway = llm.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	} else {
		logger.Warn("no gateway API key configured, using mock gateway client")
		gateway = llm.NewMockClient()
	}

	// Embedding client with in-process cache
	var embedder embedding.Embedder = embedding.NewGatewayEmbedder(gateway, cfg.EmbeddingModel)
	cached, err := embedding.NewCachedEmbedder(embedder)
	if err != nil {
		logger.Error("failed to initialize embedding cache", "error", err)
		os.Exit(1)
	}
	embedder = cached

	// Vector memory store
	var memories memory.Store
	switch cfg.MemoryBackend {
	case "qdrant":
		memories = memory.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey, embedder, cfg.GatewayTimeout)
	default:
		memories = memory.NewChromemStore(embedder)
	}

	// Memory is best-effort: an unreachable backend must not block boot.
	ensureCtx, ensureCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := memories.EnsureCollection(ensureCtx); err != nil {
		logger.Warn("failed to ensure memory collection", "error", err)
	}
	ensureCancel()

	// Model catalog and selector
	cat := catalog.New(gateway)
	selector := catalog.NewSelector(cat, cfg.FallbackModel)
	defaults := catalog.Constraints{
		MaxPricePerMillion: cfg.MaxPricePerMillion,
		MinContextLength:   cfg.MinContextLength,
		PreferredProviders: cfg.PreferredProviders,
	}

	// Completion pipeline
	pipeline := completion.NewPipeline(gateway, selector, defaults, cfg.Temperature, cfg.MaxTokens)

	// Prompt builder and service
	prompts := prompt.NewBuilder(db, memories, logger)
	svc := service.New(db, memories, prompts, pipeline, logger)

	// HTTP server
	server := transport.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("API started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("stopped")
}
