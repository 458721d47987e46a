package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vexrag/vexrag/config"
	"github.com/vexrag/vexrag/ctxgen"
	"github.com/vexrag/vexrag/embed"
	"github.com/vexrag/vexrag/index"
	"github.com/vexrag/vexrag/llm"
	"github.com/vexrag/vexrag/loader"
	"github.com/vexrag/vexrag/notify"
	"github.com/vexrag/vexrag/retrieval"
	"github.com/vexrag/vexrag/sanitize"
	"github.com/vexrag/vexrag/security"
	"github.com/vexrag/vexrag/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (.vex-rag.yml)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	ix, pipeline, st, err := buildPipeline(cfg)
	if err != nil {
		slog.Error("building pipeline", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	apiKey := os.Getenv("VEXRAG_API_KEY")
	corsOrigins := os.Getenv("VEXRAG_CORS_ORIGINS")

	h := newHandler(ix, pipeline, cfg)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /index", h.handleIndex)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("DELETE /files/{path...}", h.handleDeleteFile)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // indexing responses can be long
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// buildPipeline wires every domain module together from a resolved config,
// the shape both cmd/vexrag and cmd/server need.
func buildPipeline(cfg config.Config) (*index.Indexer, *retrieval.Pipeline, *store.Store, error) {
	st, err := store.New(cfg.Database.Path, cfg.EmbeddingDim)
	if err != nil {
		return nil, nil, nil, err
	}

	embedProvider, err := llm.NewProvider(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	embedder := embed.New(embedProvider)

	ctxProvider, err := llm.NewProvider(cfg.ContextGen.Model)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	generator := ctxgen.New(ctxProvider, cfg.ContextGen.Model.Model, 0, 0)

	provenance, err := security.NewProvenanceTracker("vexrag", "")
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	sanitizer := sanitize.New(nil, nil)

	notifier := notify.FromConfig(cfg.Notifications)

	ix := index.New(loader.New(), sanitizer, provenance, generator, embedder, st, notifier)

	var reranker *retrieval.Reranker
	if cfg.Retrieval.EnableReranking {
		reranker = retrieval.NewReranker(cfg.Retrieval.RerankerBaseURL, cfg.Retrieval.RerankerModel)
	}
	pipeline := retrieval.New(embedder, st, reranker)

	return ix, pipeline, st, nil
}
