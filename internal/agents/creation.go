package agents

import (
	"context"
	"fmt"
	"strings"

	"agentgm/internal/completion"
	"agentgm/internal/world"
)

var expansionSchema = completion.CompileSchema("expansion.json", `{
	"type": "object",
	"required": ["plausible"],
	"properties": {
		"plausible": {"type": "boolean"},
		"reason": {"type": "string"},
		"name": {"type": "string"},
		"description": {"type": "string"},
		"atmosphere_tags": {"type": "array", "items": {"type": "string"}},
		"travel_type": {"type": "string"},
		"cost": {"type": "string", "enum": ["short", "long"]},
		"occupant": {
			"type": "object",
			"required": ["name", "profession"],
			"properties": {
				"name": {"type": "string"},
				"profession": {"type": "string"},
				"personality": {"type": "string"}
			}
		}
	}
}`)

// Expansion is the creation capability's verdict on a hinted
// sub-location. When Plausible is false only Reason is set; otherwise
// the content fields describe the new location and its connection back
// to the origin. Identity (ids) is assigned by the caller, never here.
type Expansion struct {
	Plausible      bool     `json:"plausible"`
	Reason         string   `json:"reason"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AtmosphereTags []string `json:"atmosphere_tags"`
	TravelType     string   `json:"travel_type"`
	Cost           string   `json:"cost"`
	Occupant       *struct {
		Name        string `json:"name"`
		Profession  string `json:"profession"`
		Personality string `json:"personality"`
	} `json:"occupant"`
}

var npcGenSchema = completion.CompileSchema("npc_gen.json", `{
	"type": "object",
	"required": ["name", "profession"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"profession": {"type": "string"},
		"personality": {"type": "string"},
		"voice": {"type": "string"},
		"mood": {"type": "string"}
	}
}`)

// CreationAgent generates new world content: it judges whether a hinted
// sub-location plausibly exists and, if so, describes it; it also
// fleshes out ambient NPCs materialized on first interaction.
type CreationAgent struct {
	client completion.Client
}

func NewCreationAgent(client completion.Client) *CreationAgent {
	return &CreationAgent{client: client}
}

func (a *CreationAgent) Kind() Kind { return KindCreation }

// Respond satisfies Capability but creation is never dispatched as a
// conversational turn; the expansion workflow calls ExpandLocation
// directly.
func (a *CreationAgent) Respond(ctx context.Context, tc *TurnContext) (*Outcome, error) {
	return &Outcome{Narration: "Nothing new takes shape here."}, nil
}

// ExpandLocation asks whether target plausibly exists inside origin and
// describes it when it does. Implausible targets get a grounded refusal
// reason instead of content.
func (a *CreationAgent) ExpandLocation(ctx context.Context, origin *world.Location, target string) (*Expansion, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "The player is inside %q: %s\n", origin.Name, origin.Description)
	if len(origin.AtmosphereTags) > 0 {
		fmt.Fprintf(&b, "Atmosphere: %s\n", strings.Join(origin.AtmosphereTags, ", "))
	}
	fmt.Fprintf(&b, "\nThe player wants to enter a place called %q that is not yet mapped.\n", target)
	b.WriteString(`
Decide whether such a place plausibly exists within or adjacent to the
current location. A kitchen in a tavern is plausible; a throne room in a
fisherman's hut is not.

Respond with JSON:
{"plausible": true/false, "reason": "why not, if implausible",
 "name": "...", "description": "2-3 sentences", "atmosphere_tags": [],
 "travel_type": "door|stairs|passage|road", "cost": "short|long",
 "occupant": {"name": "...", "profession": "...", "personality": "..."}}
Omit occupant if the place would be empty. Content fields are required
only when plausible.`)

	raw, err := a.client.CompleteWithSystem(ctx,
		"You design consistent fantasy game worlds. You never contradict established geography.",
		b.String())
	if err != nil {
		return nil, fmt.Errorf("expand %q from %s: %w", target, origin.ID, err)
	}

	var exp Expansion
	if err := completion.ParseStructured(raw, expansionSchema, &exp); err != nil {
		return nil, fmt.Errorf("expand %q from %s: %w", target, origin.ID, err)
	}
	if exp.Plausible && (exp.Name == "" || exp.Description == "") {
		return nil, fmt.Errorf("expand %q: %w: plausible verdict without content", target, completion.ErrMalformed)
	}
	return &exp, nil
}

// MaterializeNPC fleshes out an ambient NPC the player addressed by
// description ("the guard by the gate") into a persistent character.
func (a *CreationAgent) MaterializeNPC(ctx context.Context, loc *world.Location, hint string) (*world.NPC, error) {
	prompt := fmt.Sprintf(`The player addresses %q inside %q (%s).
Invent this character. Respond with JSON:
{"name": "...", "profession": "...", "personality": "one sentence", "voice": "one phrase", "mood": "one word"}`,
		hint, loc.Name, loc.Description)

	raw, err := a.client.CompleteWithSystem(ctx,
		"You design consistent fantasy game worlds.", prompt)
	if err != nil {
		return nil, fmt.Errorf("materialize npc %q: %w", hint, err)
	}

	var gen struct {
		Name        string `json:"name"`
		Profession  string `json:"profession"`
		Personality string `json:"personality"`
		Voice       string `json:"voice"`
		Mood        string `json:"mood"`
	}
	if err := completion.ParseStructured(raw, npcGenSchema, &gen); err != nil {
		return nil, fmt.Errorf("materialize npc %q: %w", hint, err)
	}

	return &world.NPC{
		ID:          world.NewID(),
		Name:        gen.Name,
		Tier:        world.TierAmbient,
		Profession:  gen.Profession,
		LocationID:  loc.ID,
		Personality: gen.Personality,
		Voice:       gen.Voice,
		Mood:        gen.Mood,
		Alive:       true,
	}, nil
}
