// Package order computes snake-draft turn order. All functions are pure:
// they depend only on the overall pick number, the team count and the
// round count, never on draft history.
package order

import (
	"fmt"
	"strconv"
	"strings"
)

// RoundForPick returns the 1-indexed round that contains the given
// overall pick number.
func RoundForPick(pick, teamCount int) int {
	return (pick + teamCount - 1) / teamCount
}

// PickInRound returns the 1-indexed position of the pick within its round.
func PickInRound(pick, teamCount int) int {
	return (pick-1)%teamCount + 1
}

// ParticipantForPick returns the participant index [0, teamCount) that
// owns the given overall pick. Odd rounds run left to right, even rounds
// reverse. Every downstream computation depends on this being exact.
func ParticipantForPick(pick, teamCount int) int {
	round := RoundForPick(pick, teamCount)
	posInRound := (pick - 1) % teamCount
	if round%2 == 1 {
		return posInRound
	}
	return teamCount - 1 - posInRound
}

// FormatPickNumber renders an overall pick as "round.pick", e.g. pick 13
// of a 12-team draft formats as "2.01".
func FormatPickNumber(pick, teamCount int) string {
	return fmt.Sprintf("%d.%02d", RoundForPick(pick, teamCount), PickInRound(pick, teamCount))
}

// ParsePickNumber is the inverse of FormatPickNumber.
func ParsePickNumber(s string, teamCount int) (int, error) {
	round, pickInRound, ok := strings.Cut(s, ".")
	if !ok {
		return 0, fmt.Errorf("invalid pick number %q", s)
	}
	r, err := strconv.Atoi(round)
	if err != nil || r < 1 {
		return 0, fmt.Errorf("invalid round in pick number %q", s)
	}
	p, err := strconv.Atoi(pickInRound)
	if err != nil || p < 1 || p > teamCount {
		return 0, fmt.Errorf("invalid pick in pick number %q", s)
	}
	return (r-1)*teamCount + p, nil
}

// PickNumbersForParticipant enumerates every overall pick number owned by
// one participant across the full draft. The result has length rounds.
func PickNumbersForParticipant(idx, teamCount, rounds int) []int {
	picks := make([]int, 0, rounds)
	for round := 1; round <= rounds; round++ {
		base := (round - 1) * teamCount
		if round%2 == 1 {
			picks = append(picks, base+idx+1)
		} else {
			picks = append(picks, base+teamCount-idx)
		}
	}
	return picks
}

// PicksUntilTurn returns how many picks remain before the participant is
// next on the clock, counting the current pick as zero away if it is
// theirs. Returns -1 when the participant has no picks left.
func PicksUntilTurn(currentPick, idx, teamCount, rounds int) int {
	for _, n := range PickNumbersForParticipant(idx, teamCount, rounds) {
		if n >= currentPick {
			return n - currentPick
		}
	}
	return -1
}
