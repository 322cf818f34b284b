package autopick

import (
	"errors"
	"testing"

	"github.com/bestballhq/draftengine/go/internal/models"
)

func player(id string, pos models.Position, adp float64) models.DraftPlayer {
	return models.DraftPlayer{ID: id, FullName: id, Position: pos, ADP: adp}
}

func basePool() []models.DraftPlayer {
	return []models.DraftPlayer{
		player("qb1", models.PositionQB, 20),
		player("rb1", models.PositionRB, 1),
		player("rb2", models.PositionRB, 5),
		player("wr1", models.PositionWR, 2),
		player("te1", models.PositionTE, 30),
	}
}

func TestSelectPrefersQueue(t *testing.T) {
	strat := NewCascadeStrategy()
	sel, err := strat.Select(Request{
		Available: basePool(),
		Queue:     []string{"gone", "te1", "rb1"},
		Config: models.AutodraftConfig{
			CustomRankings: []string{"wr1"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Player.ID != "te1" || sel.Source != models.PickSourceQueue {
		t.Fatalf("got %s from %s, want te1 from queue", sel.Player.ID, sel.Source)
	}
}

func TestSelectFallsBackToRankings(t *testing.T) {
	strat := NewCascadeStrategy()
	sel, err := strat.Select(Request{
		Available: basePool(),
		Queue:     []string{"gone"},
		Config: models.AutodraftConfig{
			CustomRankings: []string{"also-gone", "wr1"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Player.ID != "wr1" || sel.Source != models.PickSourceRanking {
		t.Fatalf("got %s from %s, want wr1 from custom_ranking", sel.Player.ID, sel.Source)
	}
}

func TestSelectFallsBackToADP(t *testing.T) {
	strat := NewCascadeStrategy()
	sel, err := strat.Select(Request{Available: basePool()})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Player.ID != "rb1" || sel.Source != models.PickSourceADP {
		t.Fatalf("got %s from %s, want rb1 from adp", sel.Player.ID, sel.Source)
	}
}

func TestSelectADPTieBreaksByID(t *testing.T) {
	strat := NewCascadeStrategy()
	sel, err := strat.Select(Request{
		Available: []models.DraftPlayer{
			player("zz", models.PositionWR, 7),
			player("aa", models.PositionRB, 7),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Player.ID != "aa" {
		t.Fatalf("ADP tie should break by id, got %s", sel.Player.ID)
	}
}

func TestSelectHonorsPositionLimits(t *testing.T) {
	// Roster already at the QB cap: the queued QB must be skipped.
	roster := []models.DraftPlayer{
		player("q1", models.PositionQB, 10),
		player("q2", models.PositionQB, 11),
	}
	strat := NewCascadeStrategy()
	sel, err := strat.Select(Request{
		Available: basePool(),
		Roster:    roster,
		Queue:     []string{"qb1", "rb2"},
		Config: models.AutodraftConfig{
			PositionLimits: map[models.Position]int{models.PositionQB: 2},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Player.Position == models.PositionQB {
		t.Fatalf("selected a QB past the position limit: %s", sel.Player.ID)
	}
	if sel.Player.ID != "rb2" || sel.Source != models.PickSourceQueue {
		t.Fatalf("got %s from %s, want rb2 from queue", sel.Player.ID, sel.Source)
	}
}

func TestSelectNoLegalPick(t *testing.T) {
	strat := NewCascadeStrategy()
	_, err := strat.Select(Request{
		Available: []models.DraftPlayer{player("qb1", models.PositionQB, 1)},
		Roster:    []models.DraftPlayer{player("q1", models.PositionQB, 2)},
		Config: models.AutodraftConfig{
			PositionLimits: map[models.Position]int{models.PositionQB: 1},
		},
	})
	if !errors.Is(err, ErrNoLegalPick) {
		t.Fatalf("got %v, want ErrNoLegalPick", err)
	}
}

func TestSelectDoesNotMutateInputs(t *testing.T) {
	pool := basePool()
	want := make([]models.DraftPlayer, len(pool))
	copy(want, pool)

	strat := NewCascadeStrategy()
	if _, err := strat.Select(Request{Available: pool}); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if pool[i].ID != want[i].ID {
			t.Fatalf("available pool reordered at %d: %s != %s", i, pool[i].ID, want[i].ID)
		}
	}
}

func TestBestAvailable(t *testing.T) {
	p, ok := BestAvailable(basePool())
	if !ok || p.ID != "rb1" {
		t.Fatalf("got %v %v, want rb1", p.ID, ok)
	}
	if _, ok := BestAvailable(nil); ok {
		t.Fatal("BestAvailable of empty pool should report !ok")
	}
}
