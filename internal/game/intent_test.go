package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMetaShortCircuit(t *testing.T) {
	// A nil-client classifier proves meta commands never reach a model.
	c := NewClassifier(nil)

	for _, cmd := range []string{"look", "status", "help", "quit", "inventory", "time"} {
		cl, err := c.Classify(context.Background(), cmd, "")
		require.NoError(t, err)
		assert.Equal(t, IntentMeta, cl.Intent)
		assert.Equal(t, cmd, cl.Target)
	}
}

func TestClassifyKeywords(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		input  string
		intent Intent
		target string
	}{
		{"go to the kitchen", IntentMove, "kitchen"},
		{"go into the kitchen", IntentMove, "kitchen"},
		{"head into The Kitchen", IntentMove, "Kitchen"},
		{"walk to the square", IntentMove, "square"},
		{"talk to Maren", IntentSay, "Maren"},
		{"ask the guard about the gate", IntentSay, "guard about the gate"},
		{"buy a rope", IntentTrade, "rope"},
		{"attack the bandit", IntentAttack, "bandit"},
		{"rest", IntentRest, ""},
		{"bye", IntentFarewell, ""},
	}
	for _, tc := range cases {
		cl, err := c.Classify(context.Background(), tc.input, "")
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.intent, cl.Intent, tc.input)
		assert.Equal(t, tc.target, cl.Target, tc.input)
	}
}

func TestClassifyStickyConversation(t *testing.T) {
	c := NewClassifier(nil)

	// Mid-conversation, plain sentences are speech without a model call.
	cl, err := c.Classify(context.Background(), "what do you know about the cellar?", IntentSay)
	require.NoError(t, err)
	assert.Equal(t, IntentSay, cl.Intent)

	// But explicit breaks still route away.
	cl, err = c.Classify(context.Background(), "go to the square", IntentSay)
	require.NoError(t, err)
	assert.Equal(t, IntentMove, cl.Intent)

	cl, err = c.Classify(context.Background(), "bye", IntentSay)
	require.NoError(t, err)
	assert.Equal(t, IntentFarewell, cl.Intent)

	// Mid-combat and mid-trade, plain input stays in that mode.
	cl, err = c.Classify(context.Background(), "swing again", IntentAttack)
	require.NoError(t, err)
	assert.Equal(t, IntentAttack, cl.Intent)

	cl, err = c.Classify(context.Background(), "two silver, no more", IntentTrade)
	require.NoError(t, err)
	assert.Equal(t, IntentTrade, cl.Intent)
}

func TestClassifyLLMFallback(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"intent": "move", "target": "the old mill"}`, nil
	}}
	c := NewClassifier(client)

	cl, err := c.Classify(context.Background(), "I wander toward that creaking building", "")
	require.NoError(t, err)
	assert.Equal(t, IntentMove, cl.Intent)
	assert.Equal(t, "the old mill", cl.Target)
	assert.Equal(t, 1, client.calls)
}
