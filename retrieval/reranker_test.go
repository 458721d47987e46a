package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vexrag/vexrag/store"
)

func fusedCandidate(chunkID, text string) FusedResult {
	return FusedResult{Passage: store.Passage{ChunkID: chunkID, ContextualChunk: text}}
}

func TestRerankSortsByRelevanceScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := rerankResponse{Results: []rerankResult{
			{Index: 0, RelevanceScore: 0.1},
			{Index: 1, RelevanceScore: 0.9},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := NewReranker(srv.URL, "test-reranker")
	candidates := []FusedResult{fusedCandidate("low", "low relevance"), fusedCandidate("high", "high relevance")}

	ranked := r.Rerank(context.Background(), "query", candidates, 10)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].ChunkID != "high" {
		t.Errorf("expected highest-scoring chunk first, got %q", ranked[0].ChunkID)
	}
	if ranked[0].FinalRank != 1 {
		t.Errorf("expected final rank 1, got %d", ranked[0].FinalRank)
	}
}

func TestRerankDegradesOnLoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewReranker(srv.URL, "test-reranker")
	candidates := []FusedResult{fusedCandidate("a", "a"), fusedCandidate("b", "b"), fusedCandidate("c", "c")}

	ranked := r.Rerank(context.Background(), "query", candidates, 2)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results (truncated to topK), got %d", len(ranked))
	}
	if !r.isDegraded() {
		t.Error("expected reranker to be marked degraded after a failed call")
	}
}

func TestRerankStaysDegradedWithoutRetrying(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewReranker(srv.URL, "test-reranker")
	candidates := []FusedResult{fusedCandidate("a", "a")}

	r.Rerank(context.Background(), "q1", candidates, 10)
	r.Rerank(context.Background(), "q2", candidates, 10)
	r.Rerank(context.Background(), "q3", candidates, 10)

	if calls != 1 {
		t.Errorf("expected the daemon to be called once before degrading, got %d calls", calls)
	}
}
