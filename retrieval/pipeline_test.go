//go:build cgo

package retrieval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vexrag/vexrag/embed"
	"github.com/vexrag/vexrag/llm"
	"github.com/vexrag/vexrag/store"
)

type fakeProvider struct{}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, nil
}

// Embed returns a vector that encodes whether the text contains "alpha" or
// "beta" in its first two dimensions, so vector search has a clear nearest
// neighbor without needing a real embedding model.
func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := []float32{0, 0, 0, 0}
		switch {
		case containsWord(t, "alpha"):
			v[0] = 1
		case containsWord(t, "beta"):
			v[1] = 1
		default:
			v[2] = 1
		}
		out[i] = v
	}
	return out, nil
}

func containsWord(s, word string) bool {
	for i := 0; i+len(word) <= len(s); i++ {
		if s[i:i+len(word)] == word {
			return true
		}
	}
	return false
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	provider := &fakeProvider{}
	return New(embed.New(provider), st, nil), st
}

func seedPassage(t *testing.T, st *store.Store, chunkID, content string, vec []float32) {
	t.Helper()
	now := time.Now().UTC()
	p := store.Passage{
		ChunkID:         chunkID,
		ContextualChunk: content,
		OriginalChunk:   content,
		SourceFile:      "a.md",
		SourceProject:   "demo",
		FilePath:        "/docs/" + chunkID + ".md",
		FileType:        "md",
		ContentHash:     "hash-" + chunkID,
		Embedding:       vec,
		IndexedAt:       now,
		LastUpdated:     now,
		TrustLevel:      "VERIFIED",
		TrustScore:      0.75,
		SecurityRisk:    "CLEAN",
	}
	if err := st.Add(context.Background(), []store.Passage{p}); err != nil {
		t.Fatalf("seeding passage: %v", err)
	}
}

func TestRetrieveReturnsEmptyOnEmptyCorpus(t *testing.T) {
	p, _ := newTestPipeline(t)
	results := p.Retrieve(context.Background(), "alpha content", DefaultOptions())
	if len(results) != 0 {
		t.Errorf("expected no results for empty corpus, got %d", len(results))
	}
}

func TestRetrieveFindsNearestByVectorAndText(t *testing.T) {
	p, st := newTestPipeline(t)
	seedPassage(t, st, "alpha", "alpha content here", []float32{1, 0, 0, 0})
	seedPassage(t, st, "beta", "beta content here", []float32{0, 1, 0, 0})

	results := p.Retrieve(context.Background(), "alpha query", DefaultOptions())
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ChunkID != "alpha" {
		t.Errorf("expected alpha to rank first, got %q", results[0].ChunkID)
	}
}

func TestRetrieveRespectsTopK(t *testing.T) {
	p, st := newTestPipeline(t)
	seedPassage(t, st, "alpha", "alpha content here", []float32{1, 0, 0, 0})
	seedPassage(t, st, "beta", "beta content here", []float32{0, 1, 0, 0})
	seedPassage(t, st, "gamma", "gamma content here", []float32{0, 0, 1, 0})

	opts := DefaultOptions()
	opts.TopK = 1
	results := p.Retrieve(context.Background(), "alpha query", opts)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestRetrieveAppliesFilePathFilter(t *testing.T) {
	p, st := newTestPipeline(t)
	seedPassage(t, st, "alpha", "alpha content here", []float32{1, 0, 0, 0})
	seedPassage(t, st, "alpha2", "alpha content here too", []float32{1, 0, 0, 0})

	opts := DefaultOptions()
	opts.Filters.FilePath = "/docs/alpha.md"
	results := p.Retrieve(context.Background(), "alpha query", opts)
	for _, r := range results {
		if r.ChunkID != "alpha" {
			t.Errorf("expected only alpha (filtered by file_path), got %q", r.ChunkID)
		}
	}
}

func TestFormatCitationsProducesEnvelope(t *testing.T) {
	results := []RerankedResult{
		{FusedResult: FusedResult{Passage: store.Passage{
			OriginalChunk:    "some text",
			GeneratedContext: "a situating sentence",
			SourceFile:       "a.md",
			SourceProject:    "demo",
		}}},
	}
	docs := FormatCitations(results)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Source.Data != "some text" {
		t.Errorf("expected source data to be original_chunk, got %q", docs[0].Source.Data)
	}
	if docs[0].Title != "a.md (demo)" {
		t.Errorf("expected title %q, got %q", "a.md (demo)", docs[0].Title)
	}
	if !docs[0].Citations.Enabled {
		t.Error("expected citations enabled")
	}
}
