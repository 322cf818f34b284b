package models

// AutodraftConfig holds one participant's automatic pick settings.
type AutodraftConfig struct {
	Enabled        bool             `json:"enabled"`
	PositionLimits map[Position]int `json:"position_limits,omitempty"`
	CustomRankings []string         `json:"custom_rankings,omitempty"` // ordered player ids
}

// DefaultPositionLimits returns the standard per-position roster caps
// for an 18-round best ball draft.
func DefaultPositionLimits() map[Position]int {
	return map[Position]int{
		PositionQB: 4,
		PositionRB: 10,
		PositionWR: 11,
		PositionTE: 5,
	}
}

// LimitFor returns the configured cap for pos, falling back to the
// defaults when the config carries no explicit limit.
func (c AutodraftConfig) LimitFor(pos Position) int {
	if c.PositionLimits != nil {
		if limit, ok := c.PositionLimits[pos]; ok {
			return limit
		}
	}
	if limit, ok := DefaultPositionLimits()[pos]; ok {
		return limit
	}
	// Unknown positions are uncapped.
	return int(^uint(0) >> 1)
}
