// Package embed wraps an llm.Provider's Embed call with batch progress
// notification, order preservation, and a cosine-similarity utility.
package embed

import (
	"context"
	"math"

	"github.com/vexrag/vexrag/llm"
	"github.com/vexrag/vexrag/notify"
)

// Embedder generates vector embeddings via a local LLM daemon.
type Embedder struct {
	provider llm.Provider
}

// New wraps provider as an Embedder.
func New(provider llm.Provider) *Embedder {
	return &Embedder{provider: provider}
}

// EmbedOne embeds a single text, returning nil on failure.
func (e *Embedder) EmbedOne(ctx context.Context, text string) []float32 {
	vecs, err := e.provider.Embed(ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		return nil
	}
	return vecs[0]
}

// EmbedBatch embeds texts one at a time (preserving the original's
// per-item progress granularity), emitting EMBEDDING progress events every
// 10 items and once more on completion. Input order is preserved; a
// per-item failure leaves that slot nil rather than aborting the batch.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, notifier notify.Notifier) [][]float32 {
	if notifier == nil {
		notifier = notify.NullNotifier{}
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = e.EmbedOne(ctx, text)

		if (i+1)%10 == 0 || i == len(texts)-1 {
			notifier.Notify(notify.ProgressEvent{
				Stage:   notify.StageEmbed,
				Message: "Embedding",
				Current: i + 1,
				Total:   len(texts),
			})
		}
	}
	return results
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors. Returns 0 if either vector has zero magnitude or the lengths
// differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
