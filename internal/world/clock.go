package world

// Clock is the in-game time accumulator for one world, counted in
// fractional hours since the campaign started. It is non-decreasing and
// advanced only through committed turn batches.
type Clock struct {
	Hours float64 `json:"hours"`
}

// Day returns the 1-based in-game day.
func (c Clock) Day() int {
	return int(c.Hours/24) + 1
}

// HourOfDay returns the 0-23 hour within the current day.
func (c Clock) HourOfDay() int {
	return int(c.Hours) % 24
}

// TimeOfDay buckets the current hour into a narrative label.
func (c Clock) TimeOfDay() string {
	switch h := c.HourOfDay(); {
	case h >= 6 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}
