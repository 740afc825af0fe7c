package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecallThresholdAndOrder(t *testing.T) {
	engine := &fakeEngine{vectors: map[string][]float32{
		"query":     {1, 0, 0},
		"exact":     {1, 0, 0},          // similarity 1.0
		"close":     {0.9, 0.1, 0},      // ~0.994
		"unrelated": {0, 1, 0},          // 0
		"opposite":  {-1, 0, 0},         // -1
	}}
	idx := NewRecallIndex(engine, 0.40, 3)
	ctx := context.Background()

	for _, text := range []string{"unrelated", "close", "opposite", "exact"} {
		idx.Add(ctx, "pair", text)
	}

	got := idx.Recall(ctx, "pair", "query")
	assert.Equal(t, []string{"exact", "close"}, got)
}

func TestRecallTopK(t *testing.T) {
	engine := &fakeEngine{vectors: map[string][]float32{
		"query": {1, 0, 0},
		"a":     {1, 0, 0},
		"b":     {0.99, 0.01, 0},
		"c":     {0.98, 0.02, 0},
		"d":     {0.97, 0.03, 0},
	}}
	idx := NewRecallIndex(engine, 0.40, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "d"} {
		idx.Add(ctx, "pair", text)
	}

	got := idx.Recall(ctx, "pair", "query")
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0])
}

func TestRecallIsolatedPerPair(t *testing.T) {
	engine := &fakeEngine{vectors: map[string][]float32{
		"query": {1, 0, 0},
		"fact":  {1, 0, 0},
	}}
	idx := NewRecallIndex(engine, 0.40, 3)
	ctx := context.Background()

	idx.Add(ctx, "player_1|npc_1", "fact")

	assert.Empty(t, idx.Recall(ctx, "player_1|npc_2", "query"))
	assert.Equal(t, []string{"fact"}, idx.Recall(ctx, "player_1|npc_1", "query"))
}

func TestRecallNilIndexIsSafe(t *testing.T) {
	var idx *RecallIndex
	assert.Empty(t, idx.Recall(context.Background(), "pair", "query"))
	idx.Add(context.Background(), "pair", "text") // must not panic
}
