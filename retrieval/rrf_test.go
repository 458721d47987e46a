package retrieval

import (
	"testing"

	"github.com/vexrag/vexrag/store"
)

func scored(chunkID string) store.ScoredPassage {
	return store.ScoredPassage{Passage: store.Passage{ChunkID: chunkID}}
}

func TestFuseRRFCombinesBothLists(t *testing.T) {
	vec := []store.ScoredPassage{scored("a"), scored("b")}
	bm25 := []store.ScoredPassage{scored("b"), scored("c")}

	results := fuseRRF(vec, bm25, 10)

	if len(results) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(results))
	}

	byID := make(map[string]FusedResult)
	for _, r := range results {
		byID[r.ChunkID] = r
	}

	b, ok := byID["b"]
	if !ok {
		t.Fatal("expected chunk b in fused results")
	}
	if b.VectorRank == nil || *b.VectorRank != 2 {
		t.Errorf("expected b's vector rank 2, got %v", b.VectorRank)
	}
	if b.BM25Rank == nil || *b.BM25Rank != 1 {
		t.Errorf("expected b's bm25 rank 1, got %v", b.BM25Rank)
	}

	a, ok := byID["a"]
	if !ok {
		t.Fatal("expected chunk a in fused results")
	}
	if a.BM25Rank != nil {
		t.Errorf("expected a's bm25 rank to be nil, got %v", *a.BM25Rank)
	}
}

func TestFuseRRFMonotonicity(t *testing.T) {
	// d1 outranks d2 in both lists -> d1's rrf score must be >= d2's.
	vec := []store.ScoredPassage{scored("d1"), scored("d2")}
	bm25 := []store.ScoredPassage{scored("d1"), scored("d2")}

	results := fuseRRF(vec, bm25, 10)
	var d1Score, d2Score float64
	for _, r := range results {
		switch r.ChunkID {
		case "d1":
			d1Score = r.RRFScore
		case "d2":
			d2Score = r.RRFScore
		}
	}
	if d1Score < d2Score {
		t.Errorf("expected d1 score (%f) >= d2 score (%f)", d1Score, d2Score)
	}
}

func TestFuseRRFRespectsLimit(t *testing.T) {
	vec := []store.ScoredPassage{scored("a"), scored("b"), scored("c")}
	results := fuseRRF(vec, nil, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestFuseRRFEmptyInputs(t *testing.T) {
	results := fuseRRF(nil, nil, 10)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestFuseRRFAssignsFusionRank(t *testing.T) {
	vec := []store.ScoredPassage{scored("a"), scored("b")}
	results := fuseRRF(vec, nil, 10)
	for i, r := range results {
		if r.FusionRank != i+1 {
			t.Errorf("expected fusion rank %d, got %d", i+1, r.FusionRank)
		}
	}
}
