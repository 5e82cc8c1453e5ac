// Command answerd serves a question-answering API that answers only
// from stored knowledge and refuses when the evidence is too weak.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hollowaylabs/answerd/internal/completion"
	"github.com/hollowaylabs/answerd/internal/config"
	"github.com/hollowaylabs/answerd/internal/embeddings"
	"github.com/hollowaylabs/answerd/internal/httpapi"
	"github.com/hollowaylabs/answerd/internal/ingest"
	"github.com/hollowaylabs/answerd/internal/logging"
	"github.com/hollowaylabs/answerd/internal/pipeline"
	"github.com/hollowaylabs/answerd/internal/telemetry"
	"github.com/hollowaylabs/answerd/internal/vectorstore"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("answerd %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Optional .env for API keys; absence is fine.
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "answerd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "answerd", "version": version},
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	store, err := vectorstore.New(vectorstore.Config{
		Provider: cfg.VectorStore.Provider,
		Chromem: vectorstore.ChromemConfig{
			Path:      cfg.VectorStore.Chromem.Path,
			Compress:  cfg.VectorStore.Chromem.Compress,
			Dimension: cfg.Embeddings.Dimension,
		},
		Qdrant: vectorstore.QdrantConfig{
			Host:      cfg.VectorStore.Qdrant.Host,
			Port:      cfg.VectorStore.Qdrant.Port,
			APIKey:    cfg.VectorStore.Qdrant.APIKey,
			UseTLS:    cfg.VectorStore.Qdrant.UseTLS,
			Dimension: cfg.Embeddings.Dimension,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	embedService, err := embeddings.NewService(embeddings.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		APIKey:     cfg.Embeddings.APIKey,
		Dimension:  cfg.Embeddings.Dimension,
		MaxRetries: cfg.Embeddings.MaxRetries,
		Timeout:    cfg.Embeddings.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating embeddings service: %w", err)
	}
	// Embedding failures must degrade answers, never abort requests.
	embedder := embeddings.NewSafe(embedService, logger)

	llm, err := completion.NewHTTPClient(completion.Config{
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
		APIKey:  cfg.Completion.APIKey,
		Timeout: cfg.Completion.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	engine := pipeline.NewEngine(pipeline.Config{
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
		TopK:                cfg.Pipeline.TopK,
		FinalK:              cfg.Pipeline.FinalK,
		MaxNewTokens:        cfg.Pipeline.MaxNewTokens,
		VerifyThreshold:     cfg.Pipeline.VerifyThreshold,
		MaxNotes:            cfg.Pipeline.MaxNotes,
		DocumentsCollection: cfg.Pipeline.DocumentsCollection,
		NotesCollection:     cfg.Pipeline.NotesCollection,
	}, store, embedder, llm, logger)

	ingester := ingest.NewService(store, embedder, ingest.Config{
		Collection: cfg.Pipeline.DocumentsCollection,
		ChunkSize:  cfg.Ingest.ChunkSize,
	}, logger)

	server, err := httpapi.NewServer(engine, ingester, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	logger.Info("answerd started",
		zap.String("version", version),
		zap.String("provider", cfg.VectorStore.Provider))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
