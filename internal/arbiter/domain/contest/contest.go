// Package contest implements the attack/defense contest lifecycle.
//
// A contest moves pending -> active -> resolved. A pending contest whose
// defense deadline passes with no defense submitted resolves by timeout
// forfeit instead. A territory has at most one non-resolved contest at any
// time; the storage layer enforces that atomically with the insert.
package contest

import (
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
	"github.com/roadwars/roadwars/internal/platform/id"
)

// Status is the contest lifecycle state.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusPending means the attack is declared and the defense window open.
	StatusPending
	// StatusActive means the defense is submitted; resolution follows
	// immediately.
	StatusActive
	// StatusResolved is terminal; the contest is immutable afterwards.
	StatusResolved
	// StatusCancelled is reserved; no cancellation path exists.
	StatusCancelled
)

// ParseStatus maps a stored string to a Status.
func ParseStatus(value string) (Status, error) {
	switch value {
	case "pending":
		return StatusPending, nil
	case "active":
		return StatusActive, nil
	case "resolved":
		return StatusResolved, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return StatusUnspecified, fmt.Errorf("unknown contest status %q", value)
	}
}

// String returns the stored representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusResolved:
		return "resolved"
	case StatusCancelled:
		return "cancelled"
	case StatusUnspecified:
		return "unspecified"
	}
	return "unspecified"
}

// Open reports whether the contest still occupies its territory's slot.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusActive
}

// Contest is a single attack/defense episode over one territory.
type Contest struct {
	ID                  string
	TerritoryID         string
	AttackerNationID    string
	DefenderNationID    string
	Status              Status
	TokensBurnedAttack  int64
	TokensBurnedDefense int64
	AttackPower         int64
	DefensePower        *int64 // nil until computed
	DefenseDeadline     time.Time
	WinnerNationID      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ResolvedAt          *time.Time
}

// InitiateInput describes a new attack declaration. The attacker's burn
// must already be confirmed by the settlement layer.
type InitiateInput struct {
	TerritoryID      string
	AttackerNationID string
	DefenderNationID string
	TokensBurned     int64
	AttackRating     int64
}

// Initiate validates input and returns a new pending contest with the
// attack power computed and the defense window open.
func Initiate(input InitiateInput, now func() time.Time, idGenerator func() (string, error)) (Contest, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	territoryID, err := territory.NormalizeID(input.TerritoryID)
	if err != nil {
		return Contest{}, err
	}
	attackerID, err := nation.NormalizeID(input.AttackerNationID)
	if err != nil {
		return Contest{}, err
	}
	defenderID, err := nation.NormalizeID(input.DefenderNationID)
	if err != nil {
		return Contest{}, err
	}
	if attackerID == defenderID {
		return Contest{}, apperrors.New(apperrors.CodeContestSelfAttack, "a nation cannot attack its own territory")
	}
	if input.TokensBurned <= 0 {
		return Contest{}, apperrors.New(apperrors.CodeContestBurnRequired, "an attack requires a positive token burn")
	}

	contestID, err := idGenerator()
	if err != nil {
		return Contest{}, fmt.Errorf("generate contest id: %w", err)
	}

	createdAt := now().UTC()
	return Contest{
		ID:                 contestID,
		TerritoryID:        territoryID,
		AttackerNationID:   attackerID,
		DefenderNationID:   defenderID,
		Status:             StatusPending,
		TokensBurnedAttack: input.TokensBurned,
		AttackPower:        AttackPower(input.TokensBurned, input.AttackRating),
		DefenseDeadline:    createdAt.Add(DefenseWindow),
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}, nil
}

// DeadlinePassed reports whether the defense window has closed at now.
func (c Contest) DeadlinePassed(now time.Time) bool {
	return !now.Before(c.DefenseDeadline)
}
