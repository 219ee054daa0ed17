package service

import (
	"context"
	"errors"
	"log"

	"github.com/roadwars/roadwars/internal/arbiter/domain/contest"
	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/standing"
	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// InitiateContestInput describes an attack declaration.
type InitiateContestInput struct {
	TerritoryRef string
	AttackerRef  string
	TokensBurn   int64
}

// InitiateContest opens a contest over a controlled territory. Every
// guard, including the open-contest check, runs before the attacker's
// burn is confirmed; the insert re-checks the racy ones so a concurrent
// attack or transfer still fails cleanly.
func (e *Engine) InitiateContest(ctx context.Context, input InitiateContestInput) (contest.Contest, error) {
	territoryID, err := territory.NormalizeID(input.TerritoryRef)
	if err != nil {
		return contest.Contest{}, err
	}
	attackerID, err := nation.NormalizeID(input.AttackerRef)
	if err != nil {
		return contest.Contest{}, err
	}

	target, err := e.store.GetTerritory(ctx, territoryID)
	if err != nil {
		return contest.Contest{}, notFoundAs(err, apperrors.CodeTerritoryNotFound, "territory does not exist")
	}
	if !target.Claimed() {
		return contest.Contest{}, apperrors.New(apperrors.CodeContestNoDefender, "territory has no controller to contest")
	}

	attacker, err := e.store.GetNation(ctx, attackerID)
	if err != nil {
		return contest.Contest{}, notFoundAs(err, apperrors.CodeNationNotFound, "attacker nation does not exist")
	}

	pending, err := contest.Initiate(contest.InitiateInput{
		TerritoryID:      territoryID,
		AttackerNationID: attackerID,
		DefenderNationID: target.ControllerNationID,
		TokensBurned:     input.TokensBurn,
		AttackRating:     attacker.AttackRating,
	}, e.now, e.newID)
	if err != nil {
		return contest.Contest{}, err
	}

	open, err := e.store.ListOpenAlliancesBetween(ctx, attackerID, target.ControllerNationID)
	if err != nil {
		return contest.Contest{}, err
	}
	for _, a := range open {
		if a.NonAggression() {
			return contest.Contest{}, apperrors.WithMetadata(
				apperrors.CodeContestNonAggression,
				"a non-aggression pact forbids this attack",
				map[string]string{"AllianceID": a.ID, "AllianceType": a.Type.String()},
			)
		}
	}

	if _, err := e.store.GetOpenContest(ctx, territoryID); err == nil {
		return contest.Contest{}, storage.ErrOpenContestExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return contest.Contest{}, err
	}

	if err := e.confirmBurn(ctx, attacker.OwnerWallet, pending.TokensBurnedAttack); err != nil {
		return contest.Contest{}, err
	}

	if err := e.store.CreateContest(ctx, pending); err != nil {
		return contest.Contest{}, err
	}
	return pending, nil
}

// SubmitDefenseInput carries the defender's response to an open contest.
type SubmitDefenseInput struct {
	ContestRef  string
	DefenderRef string
	TokensBurn  int64
}

// SubmitDefense records the defender's burn and resolves the contest
// immediately; once both sides have acted there is nothing to wait for.
func (e *Engine) SubmitDefense(ctx context.Context, input SubmitDefenseInput) (contest.Outcome, error) {
	defenderID, err := nation.NormalizeID(input.DefenderRef)
	if err != nil {
		return contest.Outcome{}, err
	}

	current, err := e.store.GetContest(ctx, input.ContestRef)
	if err != nil {
		return contest.Outcome{}, err
	}

	target, err := e.store.GetTerritory(ctx, current.TerritoryID)
	if err != nil {
		return contest.Outcome{}, err
	}
	defender, err := e.store.GetNation(ctx, defenderID)
	if err != nil {
		return contest.Outcome{}, notFoundAs(err, apperrors.CodeNationNotFound, "defender nation does not exist")
	}

	outcome, err := current.SubmitDefense(defenderID, input.TokensBurn, defender.DefenseRating, target.DefenseLevel, target.TotalStaked, e.now().UTC())
	if err != nil {
		return contest.Outcome{}, err
	}

	if err := e.confirmBurn(ctx, defender.OwnerWallet, input.TokensBurn); err != nil {
		return contest.Outcome{}, err
	}

	if err := e.store.ResolveContest(ctx, e.resolution(outcome, false)); err != nil {
		return contest.Outcome{}, err
	}
	return outcome, nil
}

// ResolveExpired sweeps pending contests whose defense window closed with
// no defense and resolves each with zero defense power. The commit
// re-checks status and deadline, so a concurrent defense wins the race and
// re-running the sweep is idempotent. Per-contest failures are logged and
// do not stop the sweep.
func (e *Engine) ResolveExpired(ctx context.Context) (int, error) {
	now := e.now().UTC()
	expired, err := e.store.ListExpiredPendingContests(ctx, now)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, current := range expired {
		outcome, err := current.ResolveByTimeout(now)
		if err != nil {
			log.Printf("resolve expired contest id=%s err=%v", current.ID, err)
			continue
		}

		if err := e.store.ResolveContest(ctx, e.resolution(outcome, true)); err != nil {
			if errors.Is(err, storage.ErrContestNotOpen) {
				continue
			}
			log.Printf("resolve expired contest id=%s err=%v", current.ID, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

// resolution expands a contest outcome into the atomic mutation set the
// store commits: territory transfer, stake liquidation, count moves, the
// territory event, and both standing adjustments.
func (e *Engine) resolution(outcome contest.Outcome, timeout bool) storage.ContestResolution {
	c := outcome.Contest
	occurredAt := c.UpdatedAt
	if c.ResolvedAt != nil {
		occurredAt = *c.ResolvedAt
	}

	res := storage.ContestResolution{
		Contest:           c,
		RequireUndefended: timeout,
		Transferred:       outcome.Transferred,
		Forfeited:         outcome.Forfeited,
		Adjustments: []standing.Event{
			standing.Adjust(outcome.Winner(), standing.DeltaContestWon, standing.ReasonContestWon, occurredAt).ForContest(c.ID),
			standing.Adjust(outcome.Loser(), standing.DeltaContestLost, standing.ReasonContestLost, occurredAt).ForContest(c.ID),
		},
	}

	if outcome.Transferred {
		res.DefenseDecay = contest.DefenseLevelDecay
		res.Counts = []storage.CountChange{
			{NationID: c.AttackerNationID, Delta: 1},
			{NationID: c.DefenderNationID, Delta: -1},
		}
	}
	return res
}
