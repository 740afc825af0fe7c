package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"agentgm/internal/completion"
	"agentgm/internal/logging"
	"agentgm/internal/world"
)

// seedWorld writes the starter world: a village square, a tavern, and
// the road between them, with a couple of NPCs who carry secrets worth
// earning. Descriptions for the major NPCs are enriched concurrently
// through the completion service; when that fails the static fallback
// text stands.
func seedWorld(ctx context.Context, store world.Store, client completion.Client) error {
	if _, err := store.Player("player_1"); err == nil {
		return fmt.Errorf("world already seeded")
	}

	square := world.Location{
		ID:             "square_1",
		Name:           "Village Square",
		Description:    "A packed-earth square ringed by timber houses. A well sits at its center.",
		AtmosphereTags: []string{"open", "busy"},
		Visited:        true,
		Discovered:     true,
	}
	tavern := world.Location{
		ID:             "tavern_1",
		ParentID:       "",
		Name:           "The Gilded Tankard",
		Description:    "A low-beamed tavern smelling of woodsmoke and spilled ale.",
		AtmosphereTags: []string{"warm", "noisy", "cooking smells"},
		Discovered:     true,
	}

	innkeeper := world.NPC{
		ID:          "npc_innkeeper",
		Name:        "Maren",
		Tier:        world.TierMajor,
		Profession:  "innkeeper",
		LocationID:  tavern.ID,
		Personality: "Warm but guarded; counts every coin twice.",
		Voice:       "Low, unhurried, drops her g's.",
		Goals:       []string{"keep the tavern out of the moneylender's hands"},
		Secrets: []world.Secret{
			{ID: "secret_cellar", Text: "There is a smuggler's cache under the cellar floor.", Threshold: 60},
			{ID: "secret_debt", Text: "She owes the Ironmongers' Guild more than the tavern is worth.", Threshold: 80},
		},
		Mood:  "watchful",
		Alive: true,
	}
	guard := world.NPC{
		ID:          "npc_guard",
		Name:        "Oswin",
		Tier:        world.TierMinor,
		Profession:  "guard",
		LocationID:  square.ID,
		Personality: "Bored, talkative, easily bribed with gossip.",
		Mood:        "restless",
		Alive:       true,
	}

	// Enrich the seeded NPCs concurrently. Failures only cost flavor.
	g, gctx := errgroup.WithContext(ctx)
	for _, npc := range []*world.NPC{&innkeeper, &guard} {
		g.Go(func() error {
			prompt := fmt.Sprintf("One vivid sentence describing %s, a %s in a fantasy village. Plain text, no JSON.",
				npc.Name, npc.Profession)
			text, err := client.Complete(gctx, prompt)
			if err != nil {
				logging.Session("seed enrichment for %s skipped: %v", npc.ID, err)
				return nil
			}
			npc.Personality = npc.Personality + " " + text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	batch := []world.Delta{
		world.CreateDelta(world.KindLocation, square.ID, square),
		world.CreateDelta(world.KindLocation, tavern.ID, tavern),
		world.CreateDelta(world.KindConnection, "square_tavern_way", world.Connection{
			ID: "square_tavern_way", FromID: square.ID, ToID: tavern.ID,
			TravelType: "road", Cost: world.CostShort, Bidirectional: true,
		}),
		world.CreateDelta(world.KindNPC, innkeeper.ID, innkeeper),
		world.CreateDelta(world.KindNPC, guard.ID, guard),
		world.CreateDelta(world.KindFaction, "faction_guild", world.Faction{
			ID: "faction_guild", Name: "Ironmongers' Guild", Ideology: "coin above crowns", PowerLevel: 6,
		}),
		world.CreateDelta(world.KindFaction, "faction_watch", world.Faction{
			ID: "faction_watch", Name: "Village Watch", Ideology: "keep the peace, cheaply", PowerLevel: 3,
		}),
		world.CreateDelta(world.KindFactionRelation, "fr_guild_watch", world.FactionRelation{
			ID: "fr_guild_watch", FactionA: "faction_guild", FactionB: "faction_watch",
			Stance: world.StanceRival, Stability: 40,
		}),
		world.CreateDelta(world.KindPlayer, "player_1", world.Player{
			ID: "player_1", Name: "Traveler", LocationID: square.ID,
			Inventory: []string{"travel cloak", "short knife"}, Gold: 25,
			Status: world.StatusHealthy,
		}),
		world.CreateDelta(world.KindHistoricalEvent, "hist_founding", world.HistoricalEvent{
			ID: "hist_founding", Name: "The Founding Fire",
			Description: "The village rose from the ashes of a burned waystation two generations ago.",
			Era:         "two generations past",
		}),
	}

	validator := world.NewValidator(store)
	if err := validator.ValidateBatch(batch); err != nil {
		return fmt.Errorf("seed batch invalid: %w", err)
	}
	if err := store.Apply(batch); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Println("Seeded world: 2 locations, 2 NPCs, player_1 in the square.")
	return nil
}
