package game

import "agentgm/internal/world"

// Time costs in game hours. The clock delta for a turn is appended to
// the same commit batch as the turn's world deltas, so the clock can
// only ever equal the sum of costs of committed turns.
const (
	CostConversation = 0.5
	CostTravelShort  = 1.0
	CostTravelLong   = 4.0
	CostRest         = 8.0
	CostCombat       = 1.0
)

// travelCost maps a connection's cost class to hours.
func travelCost(class world.CostClass) float64 {
	if class == world.CostLong {
		return CostTravelLong
	}
	return CostTravelShort
}
