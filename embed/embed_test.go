package embed

import (
	"context"
	"math"
	"testing"

	"github.com/vexrag/vexrag/llm"
)

type fakeProvider struct {
	fail map[string]bool
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.fail != nil && f.fail[t] {
			return nil, errFail
		}
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

var errFail = &fakeErr{"embed failed"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

func TestEmbedOneReturnsVector(t *testing.T) {
	e := New(&fakeProvider{})
	v := e.EmbedOne(context.Background(), "hello")
	if v == nil {
		t.Fatal("expected non-nil vector")
	}
}

func TestEmbedBatchPreservesOrderAndHandlesFailure(t *testing.T) {
	e := New(&fakeProvider{fail: map[string]bool{"bad": true}})
	results := e.EmbedBatch(context.Background(), []string{"good1", "bad", "good2"}, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0] == nil {
		t.Error("expected results[0] to be non-nil")
	}
	if results[1] != nil {
		t.Error("expected results[1] (failed embed) to be nil")
	}
	if results[2] == nil {
		t.Error("expected results[2] to be non-nil")
	}
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	a := []float32{1, 2, 3}
	sim := CosineSimilarity(a, a)
	if math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("CosineSimilarity(a, a) = %v, want 1.0", sim)
	}
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim) > 1e-9 {
		t.Errorf("CosineSimilarity(orthogonal) = %v, want 0", sim)
	}
}

func TestCosineSimilarityMismatchedLengthIsZero(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %v", got)
	}
}
