// Package autopick selects a player on a participant's behalf when their
// clock runs out.
package autopick

import (
	"errors"
	"sort"

	"github.com/bestballhq/draftengine/go/internal/models"
)

// ErrNoLegalPick is returned when every available player would push the
// roster past a position limit. The caller is expected to fall back to
// BestAvailable so the draft never stalls.
var ErrNoLegalPick = errors.New("no player passes position limits")

// Request carries everything a strategy needs to choose a player. None
// of the slices are mutated.
type Request struct {
	Available []models.DraftPlayer // full undrafted pool
	Roster    []models.DraftPlayer // participant's current picks
	Queue     []string             // participant's ordered queue
	Config    models.AutodraftConfig
}

// Selection is the chosen player tagged with the ranked source that
// produced it.
type Selection struct {
	Player models.DraftPlayer
	Source models.PickSource
}

// Strategy chooses a single player for an expired pick.
type Strategy interface {
	Select(req Request) (Selection, error)
}

// CascadeStrategy walks three ranked sources in priority order: the
// participant's queue, then their custom rankings, then ascending ADP.
// Candidates are filtered by position-limit legality first.
type CascadeStrategy struct{}

// NewCascadeStrategy constructs the standard priority-cascade strategy.
func NewCascadeStrategy() *CascadeStrategy {
	return &CascadeStrategy{}
}

// Select implements Strategy.
func (s *CascadeStrategy) Select(req Request) (Selection, error) {
	legal := legalCandidates(req)
	if len(legal) == 0 {
		return Selection{}, ErrNoLegalPick
	}

	byID := make(map[string]models.DraftPlayer, len(legal))
	for _, p := range legal {
		byID[p.ID] = p
	}

	for _, id := range req.Queue {
		if p, ok := byID[id]; ok {
			return Selection{Player: p, Source: models.PickSourceQueue}, nil
		}
	}
	for _, id := range req.Config.CustomRankings {
		if p, ok := byID[id]; ok {
			return Selection{Player: p, Source: models.PickSourceRanking}, nil
		}
	}

	sortByADP(legal)
	return Selection{Player: legal[0], Source: models.PickSourceADP}, nil
}

// BestAvailable returns the lowest-ADP player ignoring position limits.
// Used as the terminal fallback when limits exhaust every position.
func BestAvailable(available []models.DraftPlayer) (models.DraftPlayer, bool) {
	if len(available) == 0 {
		return models.DraftPlayer{}, false
	}
	pool := make([]models.DraftPlayer, len(available))
	copy(pool, available)
	sortByADP(pool)
	return pool[0], true
}

// legalCandidates filters the available pool down to players whose
// position count on the roster is still under the configured cap.
func legalCandidates(req Request) []models.DraftPlayer {
	counts := make(map[models.Position]int, 4)
	for _, p := range req.Roster {
		counts[p.Position]++
	}

	legal := make([]models.DraftPlayer, 0, len(req.Available))
	for _, p := range req.Available {
		if counts[p.Position] < req.Config.LimitFor(p.Position) {
			legal = append(legal, p)
		}
	}
	return legal
}

// sortByADP orders ascending by ADP, breaking ties by catalog id so the
// cascade stays deterministic.
func sortByADP(players []models.DraftPlayer) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].ADP != players[j].ADP {
			return players[i].ADP < players[j].ADP
		}
		return players[i].ID < players[j].ID
	})
}
