// Command vexrag is the CLI front end for the local RAG knowledge base: an
// index subcommand to ingest files, and a search subcommand to query them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vexrag/vexrag/chunk"
	"github.com/vexrag/vexrag/config"
	"github.com/vexrag/vexrag/ctxgen"
	"github.com/vexrag/vexrag/embed"
	"github.com/vexrag/vexrag/errs"
	"github.com/vexrag/vexrag/index"
	"github.com/vexrag/vexrag/llm"
	"github.com/vexrag/vexrag/loader"
	"github.com/vexrag/vexrag/notify"
	"github.com/vexrag/vexrag/retrieval"
	"github.com/vexrag/vexrag/sanitize"
	"github.com/vexrag/vexrag/security"
	"github.com/vexrag/vexrag/store"
)

const (
	exitOK          = 0
	exitUserError   = 1
	exitInternalErr = 2
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUserError)
	}

	switch os.Args[1] {
	case "index":
		os.Exit(runIndex(os.Args[2:]))
	case "search":
		os.Exit(runSearch(os.Args[2:]))
	default:
		usage()
		os.Exit(exitUserError)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vexrag <index|search> [flags]")
}

func runIndex(args []string) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	project := fs.String("project", "", "Override the source project name")
	sanitizeFlag := fs.Bool("sanitize", false, "Run PII sanitization before indexing")
	strictMode := fs.Bool("strict", false, "Block documents that trip the injection scanner")
	dryRun := fs.Bool("dry-run", false, "Resolve and validate matches without indexing them")
	force := fs.Bool("force", false, "Reindex even if the content hash is unchanged")
	verbose := fs.Bool("verbose", false, "Log debug-level progress")
	configPath := fs.String("config", "", "Path to config file (.vex-rag.yml)")
	if err := fs.Parse(args); err != nil {
		return exitUserError
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: vexrag index [flags] <file-or-glob>")
		return exitUserError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUserError
	}
	setupLogging(cfg, *verbose)

	matches, err := filepath.Glob(fs.Arg(0))
	if err != nil || len(matches) == 0 {
		fmt.Fprintf(os.Stderr, "error: no files match %q\n", fs.Arg(0))
		return exitUserError
	}

	if *dryRun {
		for _, m := range matches {
			fmt.Fprintln(os.Stderr, m)
		}
		return exitOK
	}

	ix, _, st, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitInternalErr
	}
	defer st.Close()

	// indexing.enable_sanitization from config is the default; an explicit
	// -sanitize flag on the command line overrides it.
	doSanitize := cfg.Indexing.EnableSanitization
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "sanitize" {
			doSanitize = *sanitizeFlag
		}
	})

	opts := index.Options{
		Project:          *project,
		Scan:             true,
		StrictMode:       *strictMode,
		Sanitize:         doSanitize,
		AllowedBasePaths: cfg.Security.AllowedBasePaths,
		ChunkOptions:     chunk.Options{Size: cfg.Chunk.Size, MinSize: cfg.Chunk.MinSize},
		ContextWorkers:   cfg.ContextGen.MaxWorkers,
	}

	ctx := context.Background()
	exitCode := exitOK
	for _, path := range matches {
		if *force {
			// Passages are stored under the resolved path, so clear that one.
			if resolved, err := index.ValidatePath(path, opts.AllowedBasePaths); err == nil {
				if _, err := st.DeleteByFilePath(ctx, resolved); err != nil {
					slog.Warn("force reindex: failed to clear existing passages", "path", resolved, "error", err)
				}
			}
		}

		n, err := ix.IndexFile(ctx, path, opts)
		if err != nil {
			// Propagation policy: the batch CLI isolates per-file errors and
			// continues, per spec.md §7.
			fmt.Fprintf(os.Stderr, "error: indexing %s: %v\n", path, err)
			if kind, ok := errs.Of(err); ok && kind == errs.SecurityViolation {
				exitCode = exitUserError
			} else {
				exitCode = exitInternalErr
			}
			continue
		}
		fmt.Fprintf(os.Stderr, "indexed %s: %d passages\n", path, n)
	}
	return exitCode
}

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	topK := fs.Int("top-k", 5, "Number of results to return")
	hybrid := fs.Bool("hybrid", true, "Combine vector search with lexical (BM25) search")
	rerank := fs.Bool("rerank", false, "Rerank fused candidates with the cross-encoder daemon")
	jsonOutput := fs.Bool("json", false, "Write results to stdout as JSON")
	configPath := fs.String("config", "", "Path to config file (.vex-rag.yml)")
	if err := fs.Parse(args); err != nil {
		return exitUserError
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: vexrag search [flags] <query>")
		return exitUserError
	}
	query := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitUserError
	}
	setupLogging(cfg, false)

	_, pipeline, st, err := buildPipeline(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitInternalErr
	}
	defer st.Close()

	opts := retrieval.DefaultOptions()
	opts.TopK = *topK
	opts.EnableBM25 = *hybrid
	opts.EnableRerank = *rerank

	results := pipeline.Retrieve(context.Background(), query, opts)

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{"results": results}); err != nil {
			fmt.Fprintf(os.Stderr, "error: encoding results: %v\n", err)
			return exitInternalErr
		}
		return exitOK
	}

	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "no results")
		return exitOK
	}
	for i, r := range results {
		fmt.Printf("%d. [%s] %s\n    %s\n", i+1, r.SourceFile, r.GeneratedContext, r.OriginalChunk)
	}
	return exitOK
}

func setupLogging(cfg config.Config, verbose bool) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	out := os.Stderr
	if cfg.Logging.File != "" {
		if f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			out = f
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
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
