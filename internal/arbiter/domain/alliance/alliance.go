// Package alliance implements the bilateral alliance protocol state machine.
//
// An alliance moves proposed -> active | rejected | countered, and once
// active -> broken | expired. Effects applied on activation are removed by
// the exact inverse on termination. At most one alliance may be proposed or
// active per unordered pair of nations; the storage layer enforces that
// invariant atomically with the insert.
package alliance

import (
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
	"github.com/roadwars/roadwars/internal/platform/id"
)

// Type is the closed set of alliance kinds.
type Type int

const (
	// TypeUnspecified represents an invalid alliance type value.
	TypeUnspecified Type = iota
	// TypeTrade adjusts fee calculations in the swap subsystem (read-time,
	// outside this core); no stat mutation here.
	TypeTrade
	// TypeDefense grants both nations a defense rating bonus from terms.
	TypeDefense
	// TypeBorder is a non-aggression pact; no stat mutation, enforced as a
	// hard precondition on contest initiation.
	TypeBorder
	// TypeFederation grants fixed defense and attack bonuses to both nations.
	TypeFederation
)

// ParseType maps a wire string to a Type.
func ParseType(value string) (Type, error) {
	switch value {
	case "trade":
		return TypeTrade, nil
	case "defense":
		return TypeDefense, nil
	case "border":
		return TypeBorder, nil
	case "federation":
		return TypeFederation, nil
	default:
		return TypeUnspecified, apperrors.WithMetadata(
			apperrors.CodeAllianceInvalidType,
			"unknown alliance type",
			map[string]string{"Type": value},
		)
	}
}

// String returns the wire representation of the type.
func (t Type) String() string {
	switch t {
	case TypeTrade:
		return "trade"
	case TypeDefense:
		return "defense"
	case TypeBorder:
		return "border"
	case TypeFederation:
		return "federation"
	case TypeUnspecified:
		return "unspecified"
	}
	return "unspecified"
}

// Status is the alliance lifecycle state.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusProposed is awaiting the target's response.
	StatusProposed
	// StatusActive has effects applied to both nations.
	StatusActive
	// StatusRejected is terminal; no effects were ever applied.
	StatusRejected
	// StatusCountered is terminal; superseded by a swapped-role proposal.
	StatusCountered
	// StatusBroken is terminal; effects removed, breaker penalized.
	StatusBroken
	// StatusExpired is terminal; effects removed (if any), no penalty.
	StatusExpired
)

// ParseStatus maps a stored string to a Status.
func ParseStatus(value string) (Status, error) {
	switch value {
	case "proposed":
		return StatusProposed, nil
	case "active":
		return StatusActive, nil
	case "rejected":
		return StatusRejected, nil
	case "countered":
		return StatusCountered, nil
	case "broken":
		return StatusBroken, nil
	case "expired":
		return StatusExpired, nil
	default:
		return StatusUnspecified, fmt.Errorf("unknown alliance status %q", value)
	}
}

// String returns the stored representation of the status.
func (s Status) String() string {
	switch s {
	case StatusProposed:
		return "proposed"
	case StatusActive:
		return "active"
	case StatusRejected:
		return "rejected"
	case StatusCountered:
		return "countered"
	case StatusBroken:
		return "broken"
	case StatusExpired:
		return "expired"
	case StatusUnspecified:
		return "unspecified"
	}
	return "unspecified"
}

// Open reports whether the alliance occupies the pair slot (proposed or
// active).
func (s Status) Open() bool {
	return s == StatusProposed || s == StatusActive
}

// Action is the closed set of responses to a proposal.
type Action int

const (
	// ActionUnspecified represents an invalid action value.
	ActionUnspecified Action = iota
	// ActionAccept activates the proposal.
	ActionAccept
	// ActionReject terminates the proposal.
	ActionReject
	// ActionCounter terminates the proposal and creates a swapped one.
	ActionCounter
)

// ParseAction maps a wire string to an Action.
func ParseAction(value string) (Action, error) {
	switch value {
	case "accept":
		return ActionAccept, nil
	case "reject":
		return ActionReject, nil
	case "counter":
		return ActionCounter, nil
	default:
		return ActionUnspecified, apperrors.WithMetadata(
			apperrors.CodeAllianceInvalidAction,
			"unknown alliance response action",
			map[string]string{"Action": value},
		)
	}
}

// Alliance is a bilateral typed pact between two nations.
type Alliance struct {
	ID              string
	ProposerID      string
	TargetID        string
	Type            Type
	Status          Status
	Terms           Terms
	CounteredFromID string
	ProposedAt      time.Time
	AcceptedAt      *time.Time
	TerminatedAt    *time.Time
	ExpiresAt       time.Time
	UpdatedAt       time.Time
}

// Parties returns both nation ids.
func (a Alliance) Parties() (string, string) {
	return a.ProposerID, a.TargetID
}

// HasParty reports whether nationID is the proposer or the target.
func (a Alliance) HasParty(nationID string) bool {
	return nationID == a.ProposerID || a.TargetID == nationID
}

// OtherParty returns the counterpart of nationID, or "" if not a party.
func (a Alliance) OtherParty(nationID string) string {
	switch nationID {
	case a.ProposerID:
		return a.TargetID
	case a.TargetID:
		return a.ProposerID
	}
	return ""
}

// PairKey returns the unordered pair key (lo, hi) for two nation ids.
// The storage layer indexes open alliances on this key so the
// one-open-alliance-per-pair invariant holds under both orderings.
func PairKey(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// ProposeInput describes a new alliance proposal.
type ProposeInput struct {
	ProposerID string
	TargetID   string
	Type       Type
	Terms      Terms // optional; merged over type defaults field-by-field
}

// Propose validates input and returns a new proposed alliance.
func Propose(input ProposeInput, now func() time.Time, idGenerator func() (string, error)) (Alliance, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	proposerID, err := nation.NormalizeID(input.ProposerID)
	if err != nil {
		return Alliance{}, err
	}
	targetID, err := nation.NormalizeID(input.TargetID)
	if err != nil {
		return Alliance{}, err
	}
	if proposerID == targetID {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceSelf, "a nation cannot ally with itself")
	}
	if input.Type == TypeUnspecified {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceInvalidType, "alliance type is required")
	}

	terms, err := ResolveTerms(input.Type, input.Terms)
	if err != nil {
		return Alliance{}, err
	}

	allianceID, err := idGenerator()
	if err != nil {
		return Alliance{}, fmt.Errorf("generate alliance id: %w", err)
	}

	proposedAt := now().UTC()
	return Alliance{
		ID:         allianceID,
		ProposerID: proposerID,
		TargetID:   targetID,
		Type:       input.Type,
		Status:     StatusProposed,
		Terms:      terms,
		ProposedAt: proposedAt,
		ExpiresAt:  proposedAt.Add(terms.Duration()),
		UpdatedAt:  proposedAt,
	}, nil
}

// Accept transitions a proposal to active. Only the target may accept, and
// only before the proposal lapses.
func (a Alliance) Accept(responderID string, now time.Time) (Alliance, error) {
	if a.Status != StatusProposed {
		return Alliance{}, invalidTransition(a.Status, "accept")
	}
	if responderID != a.TargetID {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceNotTarget, "only the proposal target may respond")
	}
	now = now.UTC()
	if !now.Before(a.ExpiresAt) {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceInvalidTransition, "proposal has lapsed")
	}
	a.Status = StatusActive
	a.AcceptedAt = &now
	a.UpdatedAt = now
	return a, nil
}

// Reject transitions a proposal to rejected. Only the target may reject.
func (a Alliance) Reject(responderID string, now time.Time) (Alliance, error) {
	if a.Status != StatusProposed {
		return Alliance{}, invalidTransition(a.Status, "reject")
	}
	if responderID != a.TargetID {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceNotTarget, "only the proposal target may respond")
	}
	now = now.UTC()
	a.Status = StatusRejected
	a.TerminatedAt = &now
	a.UpdatedAt = now
	return a, nil
}

// Counter terminates a proposal and returns it alongside a new proposal
// with proposer/target swapped and counterTerms merged over the original
// terms. The countered original never applies effects.
func (a Alliance) Counter(responderID string, counterTerms Terms, now func() time.Time, idGenerator func() (string, error)) (countered Alliance, proposal Alliance, err error) {
	if now == nil {
		now = time.Now
	}
	if a.Status != StatusProposed {
		return Alliance{}, Alliance{}, invalidTransition(a.Status, "counter")
	}
	if responderID != a.TargetID {
		return Alliance{}, Alliance{}, apperrors.New(apperrors.CodeAllianceNotTarget, "only the proposal target may respond")
	}
	if len(counterTerms) == 0 {
		return Alliance{}, Alliance{}, apperrors.New(apperrors.CodeAllianceMissingCounter, "counter requires counter terms")
	}

	proposal, err = Propose(ProposeInput{
		ProposerID: a.TargetID,
		TargetID:   a.ProposerID,
		Type:       a.Type,
		Terms:      a.Terms.Merge(counterTerms),
	}, now, idGenerator)
	if err != nil {
		return Alliance{}, Alliance{}, err
	}
	proposal.CounteredFromID = a.ID

	at := now().UTC()
	a.Status = StatusCountered
	a.TerminatedAt = &at
	a.UpdatedAt = at
	return a, proposal, nil
}

// Break transitions an active alliance to broken. Either party may break.
func (a Alliance) Break(breakerID string, now time.Time) (Alliance, error) {
	if a.Status != StatusActive {
		return Alliance{}, invalidTransition(a.Status, "break")
	}
	if !a.HasParty(breakerID) {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceNotParty, "breaker is not a party to the alliance")
	}
	now = now.UTC()
	a.Status = StatusBroken
	a.TerminatedAt = &now
	a.UpdatedAt = now
	return a, nil
}

// Expire transitions a proposed or active alliance past its expiry to
// expired. Expiry is not a betrayal: no standing penalty applies.
func (a Alliance) Expire(now time.Time) (Alliance, error) {
	if !a.Status.Open() {
		return Alliance{}, invalidTransition(a.Status, "expire")
	}
	now = now.UTC()
	if now.Before(a.ExpiresAt) {
		return Alliance{}, apperrors.New(apperrors.CodeAllianceInvalidTransition, "alliance has not reached its expiry")
	}
	a.Status = StatusExpired
	a.TerminatedAt = &now
	a.UpdatedAt = now
	return a, nil
}

func invalidTransition(from Status, action string) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodeAllianceInvalidTransition,
		fmt.Sprintf("cannot %s alliance in status %s", action, from),
		map[string]string{"Status": from.String(), "Action": action},
	)
}
