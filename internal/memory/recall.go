package memory

import (
	"context"
	"sort"
	"sync"

	"agentgm/internal/embedding"
	"agentgm/internal/logging"
)

// fragment is one compacted-summary excerpt with its embedding.
type fragment struct {
	Text   string
	Vector []float32
}

// RecallIndex is an in-memory similarity index over compacted-summary
// fragments, keyed per (player, NPC) pair. It is a derived, rebuildable
// view: fragments are re-added whenever compaction runs, and losing the
// index only degrades recall quality, never state correctness.
type RecallIndex struct {
	engine    embedding.Engine
	threshold float64
	topK      int

	mu        sync.RWMutex
	fragments map[string][]fragment
}

// NewRecallIndex creates an index over the given embedding engine.
// threshold is the minimum cosine similarity for a fragment to be
// recalled; topK bounds how many fragments a single query returns.
func NewRecallIndex(engine embedding.Engine, threshold float64, topK int) *RecallIndex {
	if topK <= 0 {
		topK = 3
	}
	return &RecallIndex{
		engine:    engine,
		threshold: threshold,
		topK:      topK,
		fragments: make(map[string][]fragment),
	}
}

// Add embeds and stores a summary fragment for the pair. Embedding
// failures are logged and dropped; recall is best-effort.
func (r *RecallIndex) Add(ctx context.Context, pairKey, text string) {
	if r == nil || r.engine == nil || text == "" {
		return
	}
	vec, err := r.engine.Embed(ctx, text)
	if err != nil {
		logging.Memory("recall embed failed, fragment dropped: %v", err)
		return
	}
	r.mu.Lock()
	r.fragments[pairKey] = append(r.fragments[pairKey], fragment{Text: text, Vector: vec})
	r.mu.Unlock()
}

// Recall returns up to topK stored fragments whose similarity to the
// query meets the threshold, most similar first.
func (r *RecallIndex) Recall(ctx context.Context, pairKey, query string) []string {
	if r == nil || r.engine == nil {
		return nil
	}
	r.mu.RLock()
	frags := r.fragments[pairKey]
	r.mu.RUnlock()
	if len(frags) == 0 {
		return nil
	}

	qvec, err := r.engine.Embed(ctx, query)
	if err != nil {
		logging.Memory("recall query embed failed: %v", err)
		return nil
	}

	type scored struct {
		text  string
		score float64
	}
	var hits []scored
	for _, f := range frags {
		if s := embedding.Cosine(qvec, f.Vector); s >= r.threshold {
			hits = append(hits, scored{text: f.Text, score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > r.topK {
		hits = hits[:r.topK]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}
