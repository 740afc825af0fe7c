package agents

import (
	"context"
	"fmt"
	"strings"

	"agentgm/internal/completion"
	"agentgm/internal/memory"
	"agentgm/internal/world"
)

var npcReplySchema = completion.CompileSchema("npc_reply.json", `{
	"type": "object",
	"required": ["reply", "sentiment"],
	"properties": {
		"reply": {"type": "string", "minLength": 1},
		"sentiment": {"type": "string", "enum": ["hostile", "rude", "neutral", "friendly", "helpful", "generous"]},
		"surfaced_secrets": {"type": "array", "items": {"type": "string"}},
		"end_conversation": {"type": "boolean"},
		"key_moment": {"type": "string"},
		"mood": {"type": "string"},
		"quest": {
			"type": "object",
			"required": ["name", "objectives"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"objectives": {"type": "array", "items": {"type": "string"}, "minItems": 1},
				"reward": {"type": "string"}
			}
		}
	}
}`)

type npcReply struct {
	Reply           string      `json:"reply"`
	Sentiment       string      `json:"sentiment"`
	SurfacedSecrets []string    `json:"surfaced_secrets"`
	EndConversation bool        `json:"end_conversation"`
	KeyMoment       string      `json:"key_moment"`
	Mood            string      `json:"mood"`
	Quest           *QuestOffer `json:"quest"`
}

// NPCAgent voices one NPC for one conversation turn. It sees the
// relationship summary, the recent window, recalled fragments, and only
// the secrets the current trust level has unlocked. Secrets below
// threshold are never placed in the prompt, so the model cannot leak
// them even when asked directly.
type NPCAgent struct {
	client completion.Client
}

func NewNPCAgent(client completion.Client) *NPCAgent {
	return &NPCAgent{client: client}
}

func (a *NPCAgent) Kind() Kind { return KindNPC }

func (a *NPCAgent) Respond(ctx context.Context, tc *TurnContext) (*Outcome, error) {
	system := a.systemPrompt(tc)
	user := a.userPrompt(tc)

	raw, err := a.client.CompleteWithSystem(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("npc %s: %w", tc.NPC.ID, err)
	}

	var reply npcReply
	if err := completion.ParseStructured(raw, npcReplySchema, &reply); err != nil {
		return nil, fmt.Errorf("npc %s: %w", tc.NPC.ID, err)
	}

	return &Outcome{
		Narration:       reply.Reply,
		Sentiment:       memory.Sentiment(reply.Sentiment),
		SurfacedSecrets: reply.SurfacedSecrets,
		EndConversation: reply.EndConversation,
		KeyMoment:       reply.KeyMoment,
		Mood:            reply.Mood,
		Quest:           reply.Quest,
	}, nil
}

func (a *NPCAgent) systemPrompt(tc *TurnContext) string {
	npc := tc.NPC
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a character in a text RPG. Stay in character at all times.\n", npc.Name)
	if npc.Profession != "" {
		fmt.Fprintf(&b, "Profession: %s\n", npc.Profession)
	}

	// Major NPCs get the full dossier; minor ones a sketch; ambient
	// NPCs just a name and a profession so they stay cheap.
	switch npc.Tier {
	case world.TierMajor:
		if npc.Personality != "" {
			fmt.Fprintf(&b, "Personality: %s\n", npc.Personality)
		}
		if npc.Voice != "" {
			fmt.Fprintf(&b, "Voice and mannerisms: %s\n", npc.Voice)
		}
		if len(npc.Goals) > 0 {
			fmt.Fprintf(&b, "Your goals: %s\n", strings.Join(npc.Goals, "; "))
		}
		if npc.Mood != "" {
			fmt.Fprintf(&b, "Current mood: %s\n", npc.Mood)
		}
	case world.TierMinor:
		if npc.Personality != "" {
			fmt.Fprintf(&b, "Personality: %s\n", npc.Personality)
		}
		if npc.Mood != "" {
			fmt.Fprintf(&b, "Current mood: %s\n", npc.Mood)
		}
	}

	if len(tc.Eligible) > 0 {
		b.WriteString("\nYou know the following, and trust the player enough to share it if the conversation naturally leads there:\n")
		for _, s := range tc.Eligible {
			fmt.Fprintf(&b, "- [%s] %s\n", s.ID, s.Text)
		}
		b.WriteString("If your reply discloses one of these, list its id in surfaced_secrets.\n")
	}

	b.WriteString(`
Respond with a JSON object:
{"reply": "...", "sentiment": "hostile|rude|neutral|friendly|helpful|generous", "surfaced_secrets": [], "end_conversation": false, "key_moment": "", "mood": "", "quest": null}
sentiment rates how the PLAYER treated you this exchange. Set
end_conversation when the player is clearly leaving. Set key_moment to a
one-line note only if something happened worth remembering long-term.
Set mood only when this exchange genuinely shifted yours. Offer a quest
object {"name", "objectives", "reward"} only when it fits the fiction
and your trust in the player.`)
	return b.String()
}

func (a *NPCAgent) userPrompt(tc *TurnContext) string {
	var b strings.Builder
	cc := tc.Conversation
	rel := cc.Relationship

	fmt.Fprintf(&b, "Scene: %s, %s of day %d.\n", tc.Location.Name, tc.Clock.TimeOfDay(), tc.Clock.Day())
	fmt.Fprintf(&b, "Your trust in %s: %d/100.\n", tc.Player.Name, rel.Trust)

	if rel.Summary != "" {
		fmt.Fprintf(&b, "\nWhat you remember of past conversations:\n%s\n", rel.Summary)
	}
	for _, frag := range cc.Recalled {
		fmt.Fprintf(&b, "\nRelevant older memory:\n%s\n", frag)
	}
	if len(rel.RecentMessages) > 0 {
		b.WriteString("\nRecent exchange:\n")
		for _, m := range rel.RecentMessages {
			who := tc.Player.Name
			if m.Role == "npc" {
				who = "You"
			}
			fmt.Fprintf(&b, "%s: %s\n", who, m.Content)
		}
	}

	fmt.Fprintf(&b, "\n%s says: %q\n", tc.Player.Name, tc.Input)
	return b.String()
}
