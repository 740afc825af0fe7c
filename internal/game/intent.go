// Package game contains the orchestrator: the intent router, the turn
// pipeline that dispatches capabilities and commits their deltas
// atomically, the dynamic expansion workflow, and the session layer.
package game

import (
	"context"
	"fmt"
	"strings"

	"agentgm/internal/completion"
	"agentgm/internal/logging"
)

// Intent is the routed action class for one player input.
type Intent string

const (
	IntentSay      Intent = "say"
	IntentFarewell Intent = "farewell"
	IntentMove     Intent = "move"
	IntentTrade    Intent = "trade"
	IntentAttack   Intent = "attack"
	IntentRest     Intent = "rest"
	IntentMeta     Intent = "meta"
)

// Classification is the router's verdict: the intent plus its free-text
// target (an NPC name, a destination, a meta command).
type Classification struct {
	Intent Intent
	Target string
}

var intentSchema = completion.CompileSchema("intent.json", `{
	"type": "object",
	"required": ["intent"],
	"properties": {
		"intent": {"type": "string", "enum": ["say", "farewell", "move", "trade", "attack", "rest", "meta"]},
		"target": {"type": "string"}
	}
}`)

// metaCommands short-circuit the router entirely; they never reach a
// model and never cost game time.
var metaCommands = map[string]bool{
	"look": true, "status": true, "help": true, "quit": true,
	"inventory": true, "quests": true, "time": true,
}

var keywordRules = []struct {
	intent Intent
	verbs  []string
}{
	{IntentFarewell, []string{"bye", "goodbye", "farewell", "leave them", "walk away"}},
	{IntentMove, []string{"go ", "walk ", "enter ", "head ", "travel ", "climb ", "descend "}},
	{IntentTrade, []string{"buy ", "sell ", "trade", "haggle", "purchase "}},
	{IntentAttack, []string{"attack ", "fight ", "strike ", "kill ", "stab "}},
	{IntentRest, []string{"rest", "sleep", "camp", "make camp"}},
	{IntentSay, []string{"say ", "ask ", "tell ", "talk ", "greet ", "speak "}},
}

// Classifier routes raw player input to an intent. Cheap rules first
// (meta commands, verb keywords, the sticky conversation default), the
// model only for genuinely ambiguous input.
type Classifier struct {
	client completion.Client
}

func NewClassifier(client completion.Client) *Classifier {
	return &Classifier{client: client}
}

// Classify routes one input. A non-empty sticky intent is the default
// for unclassified input: once a conversation, fight, or trade starts,
// plain sentences stay in that mode until the player clearly breaks
// off.
func (c *Classifier) Classify(ctx context.Context, input string, sticky Intent) (Classification, error) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)

	if metaCommands[lower] {
		return Classification{Intent: IntentMeta, Target: lower}, nil
	}

	for _, rule := range keywordRules {
		for _, verb := range rule.verbs {
			if lower == strings.TrimSpace(verb) || strings.HasPrefix(lower, verb) {
				cl := Classification{Intent: rule.intent, Target: stripVerb(trimmed, verb)}
				logging.Intent("keyword route %q -> %s (%q)", input, cl.Intent, cl.Target)
				return cl, nil
			}
		}
	}

	if sticky != "" {
		// Anything not recognizably something else stays in the
		// session's current mode, directed at the pinned NPC.
		logging.Intent("sticky route %q -> %s", input, sticky)
		return Classification{Intent: sticky, Target: ""}, nil
	}

	return c.classifyLLM(ctx, trimmed)
}

func (c *Classifier) classifyLLM(ctx context.Context, input string) (Classification, error) {
	prompt := fmt.Sprintf(`Classify this text-RPG player input.
Input: %q
Respond with JSON: {"intent": "say|farewell|move|trade|attack|rest|meta", "target": "who or where, if any"}`,
		input)

	raw, err := c.client.CompleteWithSystem(ctx,
		"You route player commands for a text RPG. Answer with JSON only.", prompt)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %q: %w", input, err)
	}

	var out struct {
		Intent string `json:"intent"`
		Target string `json:"target"`
	}
	if err := completion.ParseStructured(raw, intentSchema, &out); err != nil {
		return Classification{}, fmt.Errorf("classify %q: %w", input, err)
	}
	logging.Intent("llm route %q -> %s (%q)", input, out.Intent, out.Target)
	return Classification{Intent: Intent(out.Intent), Target: out.Target}, nil
}

func stripVerb(input, verb string) string {
	lower := strings.ToLower(input)
	idx := strings.Index(lower, verb)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(input[idx+len(verb):])
	// Drop leading articles and prepositions so "into the kitchen",
	// "to the kitchen", and "the kitchen" all resolve to "kitchen".
	words := strings.Fields(rest)
	for len(words) > 0 {
		switch strings.ToLower(words[0]) {
		case "to", "the", "into", "at", "with", "a", "an", "toward", "towards":
			words = words[1:]
		default:
			return strings.Join(words, " ")
		}
	}
	return ""
}
