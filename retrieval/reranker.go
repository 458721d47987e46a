package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
)

// RerankedResult is a FusedResult annotated with a cross-encoder score.
type RerankedResult struct {
	FusedResult
	RerankScore float64
	FinalRank   int
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	TopN      int      `json:"top_n"`
	Documents []string `json:"documents"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// Reranker scores (query, contextual_chunk) pairs with a cross-encoder
// model served by a local daemon. The model is "loaded" lazily — the
// first call reaches the daemon; if that call fails, the Reranker
// degrades permanently for the remainder of the process so a known-broken
// endpoint isn't retried on every query.
type Reranker struct {
	baseURL string
	model   string
	client  *http.Client

	mu       sync.Mutex
	degraded bool
}

// NewReranker creates a Reranker bound to a local reranking daemon.
func NewReranker(baseURL, model string) *Reranker {
	return &Reranker{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
	}
}

// Rerank scores every candidate against query and returns them sorted by
// score descending, truncated to topK. On a load/scoring failure (or once
// the Reranker has permanently degraded from a prior failure), it returns
// the first topK candidates unchanged instead.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []FusedResult, topK int) []RerankedResult {
	if r.isDegraded() {
		return truncateUnranked(candidates, topK)
	}

	scores, err := r.score(ctx, query, candidates)
	if err != nil {
		r.markDegraded()
		return truncateUnranked(candidates, topK)
	}

	ranked := make([]RerankedResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = RerankedResult{FusedResult: c, RerankScore: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RerankScore > ranked[j].RerankScore })

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	for i := range ranked {
		ranked[i].FinalRank = i + 1
	}
	return ranked
}

func (r *Reranker) isDegraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

func (r *Reranker) markDegraded() {
	r.mu.Lock()
	r.degraded = true
	r.mu.Unlock()
}

func (r *Reranker) score(ctx context.Context, query string, candidates []FusedResult) ([]float64, error) {
	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.ContextualChunk
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		TopN:      len(documents),
		Documents: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank daemon returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	scores := make([]float64, len(candidates))
	for _, res := range decoded.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = res.RelevanceScore
		}
	}
	return scores, nil
}

func truncateUnranked(candidates []FusedResult, topK int) []RerankedResult {
	n := len(candidates)
	if topK > 0 && topK < n {
		n = topK
	}
	out := make([]RerankedResult, n)
	for i := 0; i < n; i++ {
		out[i] = RerankedResult{FusedResult: candidates[i], FinalRank: i + 1}
	}
	return out
}
