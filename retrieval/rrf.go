package retrieval

import (
	"sort"

	"github.com/vexrag/vexrag/store"
)

const rrfK = 60 // RRF constant (standard value from literature)

// FusedResult is a Passage annotated with each contributing list's rank and
// its cumulative RRF score.
type FusedResult struct {
	store.Passage
	VectorRank *int // 1-based, nil if absent from the vector list
	BM25Rank   *int // 1-based, nil if absent from the lexical list
	RRFScore   float64
	FusionRank int // 1-based, assigned after sorting
}

// fuseRRF implements Reciprocal Rank Fusion: each ranked list contributes
// 1/(k+rank) independently, rank_i(d) missing from a list contributes
// 0 from it. Results are sorted by cumulative score descending, truncated
// to limit. Ties are broken by order of first appearance across the two
// input lists (vector list scanned first).
func fuseRRF(vecResults, bm25Results []store.ScoredPassage, limit int) []FusedResult {
	type fusedEntry struct {
		passage    store.Passage
		score      float64
		vectorRank *int
		bm25Rank   *int
		order      int
	}

	fused := make(map[string]*fusedEntry)
	var order int

	for rank, r := range vecResults {
		entry, ok := fused[r.ChunkID]
		if !ok {
			entry = &fusedEntry{passage: r.Passage, order: order}
			order++
			fused[r.ChunkID] = entry
		}
		rankCopy := rank + 1
		entry.vectorRank = &rankCopy
		entry.score += 1.0 / float64(rrfK+rank+1)
	}

	for rank, r := range bm25Results {
		entry, ok := fused[r.ChunkID]
		if !ok {
			entry = &fusedEntry{passage: r.Passage, order: order}
			order++
			fused[r.ChunkID] = entry
		}
		rankCopy := rank + 1
		entry.bm25Rank = &rankCopy
		entry.score += 1.0 / float64(rrfK+rank+1)
	}

	entries := make([]*fusedEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	results := make([]FusedResult, len(entries))
	for i, e := range entries {
		results[i] = FusedResult{
			Passage:    e.passage,
			VectorRank: e.vectorRank,
			BM25Rank:   e.bm25Rank,
			RRFScore:   e.score,
			FusionRank: i + 1,
		}
	}
	return results
}
