// Package rules validates proposed picks. Violations are returned as
// typed values rather than raised, since an out-of-turn pick is an
// expected, recoverable condition.
package rules

import (
	"fmt"

	"github.com/bestballhq/draftengine/go/internal/draft/order"
)

// Code identifies the rule a proposed pick violated.
type Code string

const (
	CodeNotYourTurn       Code = "NOT_YOUR_TURN"
	CodePlayerUnavailable Code = "PLAYER_UNAVAILABLE"
	CodePositionLimit     Code = "POSITION_LIMIT_REACHED"
	CodeTimerExpired      Code = "TIMER_EXPIRED"
	CodeDraftNotActive    Code = "DRAFT_NOT_ACTIVE"
)

// Violation is a failed validation result. A nil *Violation means the
// proposal passed.
type Violation struct {
	Code   Code
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return string(v.Code)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Detail)
}

// ValidateTurn fails with NOT_YOUR_TURN unless the overall pick belongs
// to the calling participant.
func ValidateTurn(pickNumber, callerIndex, teamCount int) *Violation {
	owner := order.ParticipantForPick(pickNumber, teamCount)
	if owner != callerIndex {
		return &Violation{
			Code:   CodeNotYourTurn,
			Detail: fmt.Sprintf("pick %d belongs to participant %d, not %d", pickNumber, owner, callerIndex),
		}
	}
	return nil
}

// ValidatePlayerAvailable fails with PLAYER_UNAVAILABLE if the player id
// has already been consumed.
func ValidatePlayerAvailable(playerID string, taken map[string]bool) *Violation {
	if taken[playerID] {
		return &Violation{
			Code:   CodePlayerUnavailable,
			Detail: fmt.Sprintf("player %s already drafted", playerID),
		}
	}
	return nil
}

// ValidatePick composes the turn and availability checks, short
// circuiting on the first failure. It is the single entry point the
// engine runs before any write. Position limits are deliberately not
// checked here: a human may draft past a position cap, only autodraft
// selections honor them.
func ValidatePick(pickNumber, callerIndex, teamCount int, playerID string, taken map[string]bool) *Violation {
	if v := ValidateTurn(pickNumber, callerIndex, teamCount); v != nil {
		return v
	}
	return ValidatePlayerAvailable(playerID, taken)
}
