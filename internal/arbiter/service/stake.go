package service

import (
	"context"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/stake"
	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// StakeInput describes a stake request. StakerRef doubles as the
// settlement owner the burn is drawn from.
type StakeInput struct {
	TerritoryRef string
	NationRef    string
	StakerRef    string
	Amount       int64
	// LockedUntil optionally time-locks the stake against withdrawal.
	LockedUntil *time.Time
}

// Stake escrows amount on the settlement layer and records the backing
// stake row. The settlement burn is confirmed before any local mutation;
// a stake row never exists without a verified burn behind it.
func (e *Engine) Stake(ctx context.Context, input StakeInput) (stake.Stake, error) {
	pending, err := stake.Create(stake.CreateInput{
		TerritoryID: input.TerritoryRef,
		NationID:    input.NationRef,
		StakerID:    input.StakerRef,
		Amount:      input.Amount,
		LockedUntil: input.LockedUntil,
	}, e.now, e.newID)
	if err != nil {
		return stake.Stake{}, err
	}

	if _, err := e.store.GetTerritory(ctx, pending.TerritoryID); err != nil {
		return stake.Stake{}, notFoundAs(err, apperrors.CodeTerritoryNotFound, "territory does not exist")
	}
	if _, err := e.store.GetNation(ctx, pending.NationID); err != nil {
		return stake.Stake{}, notFoundAs(err, apperrors.CodeNationNotFound, "nation does not exist")
	}

	if err := e.confirmBurn(ctx, pending.StakerID, pending.Amount); err != nil {
		return stake.Stake{}, err
	}

	return e.store.CreateStake(ctx, pending)
}

// UnstakeInput identifies the active stake to withdraw.
type UnstakeInput struct {
	TerritoryRef string
	NationRef    string
	StakerRef    string
}

// Unstake deactivates the triple's active stake and returns the amount
// released. Time-locked stakes cannot be withdrawn until the lock lapses.
func (e *Engine) Unstake(ctx context.Context, input UnstakeInput) (int64, error) {
	territoryID, err := territory.NormalizeID(input.TerritoryRef)
	if err != nil {
		return 0, err
	}
	nationID, err := nation.NormalizeID(input.NationRef)
	if err != nil {
		return 0, err
	}

	current, err := e.store.GetActiveStake(ctx, territoryID, nationID, input.StakerRef)
	if err != nil {
		return 0, notFoundAs(err, apperrors.CodeStakeNotActive, "no active stake for this territory, nation, and staker")
	}

	now := e.now().UTC()
	if current.Locked(now) {
		return 0, apperrors.WithMetadata(
			apperrors.CodeStakeLocked,
			"stake is time-locked",
			map[string]string{"LockedUntil": current.LockedUntil.UTC().Format(time.RFC3339)},
		)
	}

	return e.store.DeactivateStake(ctx, territoryID, nationID, input.StakerRef, stake.ReasonUnstaked, now)
}
