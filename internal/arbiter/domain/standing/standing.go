// Package standing models the diplomatic standing ledger.
//
// Standing is a pure accumulator adjusted only as a side effect of alliance
// and contest transitions. Every adjustment is recorded as an append-only
// event for audit; the engine never reads the events back. Standing is
// unclamped and may go negative.
package standing

import "time"

// Fixed adjustment magnitudes per transition.
const (
	// DeltaProposed credits diplomatic initiative to the proposer.
	DeltaProposed int64 = 2
	// DeltaAccepted credits both parties of a new active alliance.
	DeltaAccepted int64 = 5
	// DeltaRejected penalizes the rejector.
	DeltaRejected int64 = -1
	// DeltaBroken penalizes the nation that breaks an active alliance.
	DeltaBroken int64 = -10
	// DeltaUpheld credits the party whose alliance was broken by the other.
	DeltaUpheld int64 = 3
	// DeltaContestWon credits a contest winner.
	DeltaContestWon int64 = 5
	// DeltaContestLost penalizes a contest loser.
	DeltaContestLost int64 = -5
)

// Reason identifies the transition that produced an adjustment.
type Reason string

const (
	ReasonAllianceProposed Reason = "alliance_proposed"
	ReasonAllianceAccepted Reason = "alliance_accepted"
	ReasonAllianceRejected Reason = "alliance_rejected"
	ReasonAllianceBroken   Reason = "alliance_broken"
	ReasonAllianceUpheld   Reason = "alliance_upheld"
	ReasonContestWon       Reason = "contest_won"
	ReasonContestLost      Reason = "contest_lost"
)

// Event is the append-only audit record of one standing adjustment.
type Event struct {
	NationID   string
	Delta      int64
	Reason     Reason
	AllianceID string
	ContestID  string
	OccurredAt time.Time
}

// Adjust returns an event applying delta to a nation's standing.
func Adjust(nationID string, delta int64, reason Reason, occurredAt time.Time) Event {
	return Event{
		NationID:   nationID,
		Delta:      delta,
		Reason:     reason,
		OccurredAt: occurredAt.UTC(),
	}
}

// ForAlliance tags an adjustment with the alliance that caused it.
func (e Event) ForAlliance(allianceID string) Event {
	e.AllianceID = allianceID
	return e
}

// ForContest tags an adjustment with the contest that caused it.
func (e Event) ForContest(contestID string) Event {
	e.ContestID = contestID
	return e
}
