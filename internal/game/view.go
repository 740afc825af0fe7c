package game

import (
	"fmt"
	"strings"

	"agentgm/internal/world"
)

// View renders read-only answers to meta commands. Meta turns never
// touch a model, never produce deltas, and never advance the clock.
type View struct {
	store world.Store
}

func NewView(store world.Store) *View {
	return &View{store: store}
}

// Render answers one meta command for the player.
func (v *View) Render(command, playerID string) (string, error) {
	player, err := v.store.Player(playerID)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", command, err)
	}

	switch command {
	case "look":
		return v.look(player)
	case "status":
		return v.status(player)
	case "inventory":
		if len(player.Inventory) == 0 {
			return "You are carrying nothing of note.", nil
		}
		return "You are carrying: " + strings.Join(player.Inventory, ", ") + ".", nil
	case "quests":
		return v.quests(player)
	case "time":
		clock, err := v.store.Clock()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("It is %s of day %d.", clock.TimeOfDay(), clock.Day()), nil
	case "help":
		return helpText, nil
	default:
		return "", fmt.Errorf("unknown meta command %q", command)
	}
}

func (v *View) look(player *world.Player) (string, error) {
	loc, err := v.store.Location(player.LocationID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", loc.Name, loc.Description)

	npcs, err := v.store.NPCsAt(loc.ID)
	if err != nil {
		return "", err
	}
	var present []string
	for _, n := range npcs {
		if n.Alive {
			present = append(present, n.Name)
		}
	}
	if len(present) > 0 {
		fmt.Fprintf(&b, "Here: %s.\n", strings.Join(present, ", "))
	}

	conns, err := v.store.Connections(loc.ID)
	if err != nil {
		return "", err
	}
	var exits []string
	for _, c := range conns {
		otherID := c.ToID
		if otherID == loc.ID {
			otherID = c.FromID
		}
		dest, err := v.store.Location(otherID)
		if err != nil {
			continue
		}
		exits = append(exits, dest.Name)
	}
	if len(exits) > 0 {
		fmt.Fprintf(&b, "Ways out: %s.", strings.Join(exits, ", "))
	}
	return strings.TrimSpace(b.String()), nil
}

func (v *View) status(player *world.Player) (string, error) {
	loc, err := v.store.Location(player.LocationID)
	if err != nil {
		return "", err
	}
	clock, err := v.store.Clock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s, %s, at %s. %d gold. %s of day %d.",
		player.Name, player.Status, loc.Name, player.Gold, clock.TimeOfDay(), clock.Day()), nil
}

func (v *View) quests(player *world.Player) (string, error) {
	quests, err := v.store.QuestsFor(player.ID)
	if err != nil {
		return "", err
	}
	if len(quests) == 0 {
		return "No quests yet.", nil
	}
	var b strings.Builder
	for _, q := range quests {
		fmt.Fprintf(&b, "[%s] %s: %s\n", q.Status, q.Name, strings.Join(q.Objectives, "; "))
	}
	return strings.TrimSpace(b.String()), nil
}

const helpText = `Speak plainly: "talk to the innkeeper", "go to the market",
"buy a rope", "attack the bandit", "rest".
Meta commands (free, instant): look, status, inventory, quests, time, help, quit.`
