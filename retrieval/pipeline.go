// Package retrieval implements the Retrieval Pipeline: embed the query,
// search the Passage Store by vector and lexical index, fuse with
// Reciprocal Rank Fusion, optionally rerank, and format results.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vexrag/vexrag/embed"
	"github.com/vexrag/vexrag/store"
)

// Filters restricts retrieval to passages matching the given equality
// constraints. Empty fields are not applied.
type Filters struct {
	FilePath      string
	SourceProject string
	FileType      string
}

func (f Filters) whereClause() string {
	clause := ""
	add := func(col, val string) {
		if val == "" {
			return
		}
		if clause != "" {
			clause += " AND "
		}
		clause += store.SafeEquals(col, val)
	}
	add("file_path", f.FilePath)
	add("source_project", f.SourceProject)
	add("file_type", f.FileType)
	return clause
}

// Options configures one retrieve() call.
type Options struct {
	TopK         int
	VectorLimit  int
	BM25Limit    int
	FusionLimit  int
	EnableBM25   bool
	EnableRerank bool
	Filters      Filters
}

// DefaultOptions matches spec's retrieve() defaults.
func DefaultOptions() Options {
	return Options{TopK: 5, VectorLimit: 20, BM25Limit: 20, FusionLimit: 10, EnableBM25: true}
}

// Pipeline is the Retrieval Pipeline: embed -> vector search -> (optional)
// lexical search -> RRF fuse -> (optional) rerank.
type Pipeline struct {
	embedder *embed.Embedder
	store    *store.Store
	reranker *Reranker
}

// New builds a Pipeline. reranker may be nil to disable reranking
// regardless of Options.EnableRerank.
func New(embedder *embed.Embedder, st *store.Store, reranker *Reranker) *Pipeline {
	return &Pipeline{embedder: embedder, store: st, reranker: reranker}
}

// Retrieve runs the 6-step retrieval algorithm. It never returns an error
// for an empty corpus or a failed embedding: both yield an empty result
// list, per spec.md §7's "retrieval never raises for empty corpora" rule.
func (p *Pipeline) Retrieve(ctx context.Context, query string, opts Options) []RerankedResult {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.VectorLimit <= 0 {
		opts.VectorLimit = 20
	}
	if opts.BM25Limit <= 0 {
		opts.BM25Limit = 20
	}
	if opts.FusionLimit <= 0 {
		opts.FusionLimit = 10
	}

	// Step 1: embed the query.
	queryVec := p.embedder.EmbedOne(ctx, query)
	if queryVec == nil {
		slog.Warn("retrieval: query embedding failed, returning empty result", "query", query)
		return nil
	}

	where := opts.Filters.whereClause()

	// Step 2: vector search.
	vecResults, err := p.store.VectorSearch(ctx, queryVec, opts.VectorLimit, where)
	if err != nil {
		slog.Warn("retrieval: vector search failed", "error", err)
		vecResults = nil
	}

	// Step 3: lexical search, with same filters, tolerating a missing
	// FTS index on the first call (schema always creates it, but a
	// pre-existing database from an older install might not have it yet).
	var bm25Results []store.ScoredPassage
	if opts.EnableBM25 {
		bm25Results, err = p.store.FTSSearch(ctx, query, opts.BM25Limit, where)
		if err != nil {
			slog.Warn("retrieval: bm25 search failed, continuing vector-only", "error", err)
			bm25Results = nil
		}
	}

	// Step 4: fuse, or take the first fusion_limit of whichever list is
	// available if one of them is empty.
	var fused []FusedResult
	switch {
	case len(vecResults) > 0 && len(bm25Results) > 0:
		fused = fuseRRF(vecResults, bm25Results, opts.FusionLimit)
	case len(vecResults) > 0:
		fused = fuseRRF(vecResults, nil, opts.FusionLimit)
	case len(bm25Results) > 0:
		fused = fuseRRF(nil, bm25Results, opts.FusionLimit)
	default:
		return nil
	}

	// Step 5: optional reranking, degrading gracefully to a plain
	// truncation if the cross-encoder is unavailable.
	if opts.EnableRerank && p.reranker != nil {
		return p.reranker.Rerank(ctx, query, fused, opts.TopK)
	}
	return truncateUnranked(fused, opts.TopK)
}

// CitationDocument is one entry of the "documents with citations" response
// envelope (§6).
type CitationDocument struct {
	Type    string          `json:"type"`
	Source  CitationSource  `json:"source"`
	Title   string          `json:"title"`
	Context string          `json:"context,omitempty"`
	Citations CitationToggle `json:"citations"`
}

// CitationSource is the inline text source of a CitationDocument.
type CitationSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// CitationToggle enables citation tracking on a CitationDocument.
type CitationToggle struct {
	Enabled bool `json:"enabled"`
}

// FormatCitations renders results as the documents-with-citations envelope.
func FormatCitations(results []RerankedResult) []CitationDocument {
	docs := make([]CitationDocument, len(results))
	for i, r := range results {
		docs[i] = CitationDocument{
			Type: "document",
			Source: CitationSource{
				Type:      "text",
				MediaType: "text/plain",
				Data:      r.OriginalChunk,
			},
			Title:     fmt.Sprintf("%s (%s)", r.SourceFile, r.SourceProject),
			Context:   r.GeneratedContext,
			Citations: CitationToggle{Enabled: true},
		}
	}
	return docs
}
