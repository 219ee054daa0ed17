package contest

import (
	"time"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// Outcome is the resolved end state of a contest plus the mutations the
// storage layer must apply atomically alongside it.
type Outcome struct {
	Contest Contest
	// Transferred is true when the attacker won and the territory changes
	// controller.
	Transferred bool
	// Forfeited is true when resolution happened by timeout with no defense.
	Forfeited bool
}

// Winner returns the winning nation id.
func (o Outcome) Winner() string {
	return o.Contest.WinnerNationID
}

// Loser returns the losing nation id.
func (o Outcome) Loser() string {
	if o.Contest.WinnerNationID == o.Contest.AttackerNationID {
		return o.Contest.DefenderNationID
	}
	return o.Contest.AttackerNationID
}

// SubmitDefense records the defender's burn, computes defense power, and
// resolves immediately (no further waiting once both sides have acted).
func (c Contest) SubmitDefense(defenderID string, tokensBurned, defenseRating, defenseLevel, totalStaked int64, now time.Time) (Outcome, error) {
	if c.Status != StatusPending {
		return Outcome{}, apperrors.WithMetadata(
			apperrors.CodeContestNotPending,
			"contest is not awaiting a defense",
			map[string]string{"Status": c.Status.String()},
		)
	}
	if defenderID != c.DefenderNationID {
		return Outcome{}, apperrors.New(apperrors.CodeContestNotDefender, "only the current controller may defend")
	}
	now = now.UTC()
	if c.DeadlinePassed(now) {
		return Outcome{}, apperrors.New(apperrors.CodeContestDeadlinePassed, "the defense window has closed")
	}
	if tokensBurned <= 0 {
		return Outcome{}, apperrors.New(apperrors.CodeContestBurnRequired, "a defense requires a positive token burn")
	}

	c.TokensBurnedDefense = tokensBurned
	c.Status = StatusActive
	c.UpdatedAt = now
	return c.resolve(DefensePower(tokensBurned, defenseRating, defenseLevel, totalStaked), now, false), nil
}

// ResolveByTimeout resolves a contest whose defense deadline passed with no
// defense submitted. Silence is a forfeit: defense power is zero.
func (c Contest) ResolveByTimeout(now time.Time) (Outcome, error) {
	if !c.Status.Open() {
		return Outcome{}, apperrors.WithMetadata(
			apperrors.CodeContestNotPending,
			"contest is already resolved",
			map[string]string{"Status": c.Status.String()},
		)
	}
	if c.TokensBurnedDefense != 0 {
		return Outcome{}, apperrors.New(apperrors.CodeContestNotPending, "contest has a submitted defense")
	}
	now = now.UTC()
	if !c.DeadlinePassed(now) {
		return Outcome{}, apperrors.New(apperrors.CodeContestDeadlinePassed, "the defense window is still open")
	}
	return c.resolve(0, now, true), nil
}

// resolve determines the winner. Ties favor the defender: home-territory
// advantage.
func (c Contest) resolve(defensePower int64, now time.Time, forfeited bool) Outcome {
	c.DefensePower = &defensePower
	c.Status = StatusResolved
	c.ResolvedAt = &now
	c.UpdatedAt = now

	transferred := c.AttackPower > defensePower
	if transferred {
		c.WinnerNationID = c.AttackerNationID
	} else {
		c.WinnerNationID = c.DefenderNationID
	}

	return Outcome{
		Contest:     c,
		Transferred: transferred,
		Forfeited:   forfeited,
	}
}
