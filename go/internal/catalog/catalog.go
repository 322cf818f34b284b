// Package catalog loads the draftable player pool from a JSON file. The
// pool is static for the life of a draft; rankings change only between
// drafts when a new file ships.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// Load reads a player catalog file and returns the pool ordered by
// ascending ADP with id tie-break, so every consumer sees the same
// deterministic ranking.
func Load(path string) ([]models.DraftPlayer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates raw catalog JSON.
func Parse(data []byte) ([]models.DraftPlayer, error) {
	var players []models.DraftPlayer
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]bool, len(players))
	for i, p := range players {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog has duplicate player id %s", p.ID)
		}
		seen[p.ID] = true
		if p.FullName == "" {
			return nil, fmt.Errorf("player %s has no name", p.ID)
		}
		switch p.Position {
		case models.PositionQB, models.PositionRB, models.PositionWR, models.PositionTE:
		default:
			return nil, fmt.Errorf("player %s has unknown position %q", p.ID, p.Position)
		}
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].ADP != players[j].ADP {
			return players[i].ADP < players[j].ADP
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}
