package models

// Position is an NFL roster position as it appears in the catalog.
type Position string

const (
	PositionQB Position = "QB"
	PositionRB Position = "RB"
	PositionWR Position = "WR"
	PositionTE Position = "TE"
)

// DraftPlayer is a read-only player catalog entry. The engine never
// mutates these, it only tracks which ids have been consumed.
type DraftPlayer struct {
	ID              string   `json:"id"`
	FullName        string   `json:"full_name"`
	Position        Position `json:"position"`
	Team            string   `json:"team"`
	ByeWeek         int      `json:"bye_week"`
	ADP             float64  `json:"adp"`
	ProjectedPoints float64  `json:"projected_points"`
}
