// Package stake models settlement-backed resource commitments on territories.
package stake

import (
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
	"github.com/roadwars/roadwars/internal/platform/id"
)

// DeactivationReason records why a stake stopped counting toward a
// territory's total. Stakes are deactivated, never deleted.
type DeactivationReason string

const (
	// ReasonNone marks an active stake.
	ReasonNone DeactivationReason = ""
	// ReasonUnstaked marks a voluntary withdrawal by the staker.
	ReasonUnstaked DeactivationReason = "unstaked"
	// ReasonLiquidated marks a forced unstake after the owning nation lost
	// the territory.
	ReasonLiquidated DeactivationReason = "liquidated"
)

// Stake is a nation's committed resource amount on a territory.
// (TerritoryID, NationID, StakerID) uniquely identifies an active stake.
type Stake struct {
	ID                string
	TerritoryID       string
	NationID          string
	StakerID          string
	Amount            int64
	Active            bool
	LockedUntil       *time.Time
	DeactivatedReason DeactivationReason
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Locked reports whether the stake is still time-locked at now.
func (s Stake) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// CreateInput describes a new stake. Amount must already be confirmed as
// burned/escrowed by the settlement layer before Create is called.
type CreateInput struct {
	TerritoryID string
	NationID    string
	StakerID    string
	Amount      int64
	LockedUntil *time.Time
}

// Create validates input and returns a new active stake.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Stake, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	territoryID, err := territory.NormalizeID(input.TerritoryID)
	if err != nil {
		return Stake{}, err
	}
	nationID, err := nation.NormalizeID(input.NationID)
	if err != nil {
		return Stake{}, err
	}
	stakerID, err := nation.NormalizeID(input.StakerID)
	if err != nil {
		return Stake{}, err
	}
	if input.Amount <= 0 {
		return Stake{}, apperrors.New(apperrors.CodeStakeAmountInvalid, "stake amount must be positive")
	}

	stakeID, err := idGenerator()
	if err != nil {
		return Stake{}, fmt.Errorf("generate stake id: %w", err)
	}

	createdAt := now().UTC()
	return Stake{
		ID:          stakeID,
		TerritoryID: territoryID,
		NationID:    nationID,
		StakerID:    stakerID,
		Amount:      input.Amount,
		Active:      true,
		LockedUntil: input.LockedUntil,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}
