package service

import (
	"context"
	"errors"
	"log"

	"github.com/roadwars/roadwars/internal/arbiter/domain/alliance"
	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/standing"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// ProposeAllianceInput describes a new alliance proposal.
type ProposeAllianceInput struct {
	ProposerRef string
	TargetRef   string
	Type        alliance.Type
	// Terms optionally override the type defaults field-by-field.
	Terms alliance.Terms
}

// ProposeAlliance opens a proposal between two nations. At most one
// proposed or active alliance may exist per pair; the proposer earns a
// small standing credit for diplomatic initiative.
func (e *Engine) ProposeAlliance(ctx context.Context, input ProposeAllianceInput) (alliance.Alliance, error) {
	proposal, err := alliance.Propose(alliance.ProposeInput{
		ProposerID: input.ProposerRef,
		TargetID:   input.TargetRef,
		Type:       input.Type,
		Terms:      input.Terms,
	}, e.now, e.newID)
	if err != nil {
		return alliance.Alliance{}, err
	}

	if _, err := e.store.GetNation(ctx, proposal.ProposerID); err != nil {
		return alliance.Alliance{}, notFoundAs(err, apperrors.CodeNationNotFound, "proposer nation does not exist")
	}
	if _, err := e.store.GetNation(ctx, proposal.TargetID); err != nil {
		return alliance.Alliance{}, notFoundAs(err, apperrors.CodeNationNotFound, "target nation does not exist")
	}

	adjustments := []standing.Event{
		standing.Adjust(proposal.ProposerID, standing.DeltaProposed, standing.ReasonAllianceProposed, proposal.ProposedAt).ForAlliance(proposal.ID),
	}
	if err := e.store.CreateAlliance(ctx, proposal, adjustments); err != nil {
		return alliance.Alliance{}, err
	}
	return proposal, nil
}

// RespondAllianceInput carries the target's response to a proposal.
type RespondAllianceInput struct {
	AllianceRef  string
	ResponderRef string
	Action       alliance.Action
	// CounterTerms are required for a counter and ignored otherwise.
	CounterTerms alliance.Terms
}

// RespondAlliance applies the target's accept, reject, or counter to a
// proposal. Accepting applies the alliance's rating effects to both
// parties; countering terminates the proposal and opens a swapped-role one.
func (e *Engine) RespondAlliance(ctx context.Context, input RespondAllianceInput) (alliance.Alliance, error) {
	responderID, err := nation.NormalizeID(input.ResponderRef)
	if err != nil {
		return alliance.Alliance{}, err
	}

	current, err := e.store.GetAlliance(ctx, input.AllianceRef)
	if err != nil {
		return alliance.Alliance{}, err
	}

	now := e.now().UTC()
	switch input.Action {
	case alliance.ActionAccept:
		accepted, err := current.Accept(responderID, now)
		if err != nil {
			return alliance.Alliance{}, err
		}
		effect := accepted.Effect()
		ratings := []storage.RatingChange{
			{NationID: accepted.ProposerID, DefenseDelta: effect.DefenseBonus, AttackDelta: effect.AttackBonus},
			{NationID: accepted.TargetID, DefenseDelta: effect.DefenseBonus, AttackDelta: effect.AttackBonus},
		}
		adjustments := []standing.Event{
			standing.Adjust(accepted.ProposerID, standing.DeltaAccepted, standing.ReasonAllianceAccepted, now).ForAlliance(accepted.ID),
			standing.Adjust(accepted.TargetID, standing.DeltaAccepted, standing.ReasonAllianceAccepted, now).ForAlliance(accepted.ID),
		}
		if err := e.store.TransitionAlliance(ctx, accepted, alliance.StatusProposed, ratings, adjustments); err != nil {
			return alliance.Alliance{}, err
		}
		return accepted, nil

	case alliance.ActionReject:
		rejected, err := current.Reject(responderID, now)
		if err != nil {
			return alliance.Alliance{}, err
		}
		adjustments := []standing.Event{
			standing.Adjust(responderID, standing.DeltaRejected, standing.ReasonAllianceRejected, now).ForAlliance(rejected.ID),
		}
		if err := e.store.TransitionAlliance(ctx, rejected, alliance.StatusProposed, nil, adjustments); err != nil {
			return alliance.Alliance{}, err
		}
		return rejected, nil

	case alliance.ActionCounter:
		countered, proposal, err := current.Counter(responderID, input.CounterTerms, e.now, e.newID)
		if err != nil {
			return alliance.Alliance{}, err
		}
		// The counter is itself a proposal; the responder takes the
		// initiative credit.
		adjustments := []standing.Event{
			standing.Adjust(proposal.ProposerID, standing.DeltaProposed, standing.ReasonAllianceProposed, now).ForAlliance(proposal.ID),
		}
		if err := e.store.CounterAlliance(ctx, countered, proposal, adjustments); err != nil {
			return alliance.Alliance{}, err
		}
		return proposal, nil

	default:
		return alliance.Alliance{}, apperrors.New(apperrors.CodeAllianceInvalidAction, "response action is required")
	}
}

// BreakAllianceInput identifies the active alliance one party walks from.
type BreakAllianceInput struct {
	AllianceRef string
	BreakerRef  string
}

// BreakAlliance terminates an active alliance. Effects are removed from
// both parties as the exact inverse of acceptance, floored at zero; the
// breaker pays a standing penalty while the other party is credited.
func (e *Engine) BreakAlliance(ctx context.Context, input BreakAllianceInput) (alliance.Alliance, error) {
	breakerID, err := nation.NormalizeID(input.BreakerRef)
	if err != nil {
		return alliance.Alliance{}, err
	}

	current, err := e.store.GetAlliance(ctx, input.AllianceRef)
	if err != nil {
		return alliance.Alliance{}, err
	}

	now := e.now().UTC()
	broken, err := current.Break(breakerID, now)
	if err != nil {
		return alliance.Alliance{}, err
	}

	ratings := removalRatings(broken)
	adjustments := []standing.Event{
		standing.Adjust(breakerID, standing.DeltaBroken, standing.ReasonAllianceBroken, now).ForAlliance(broken.ID),
		standing.Adjust(broken.OtherParty(breakerID), standing.DeltaUpheld, standing.ReasonAllianceUpheld, now).ForAlliance(broken.ID),
	}
	if err := e.store.TransitionAlliance(ctx, broken, alliance.StatusActive, ratings, adjustments); err != nil {
		return alliance.Alliance{}, err
	}
	return broken, nil
}

// ExpireAlliances sweeps proposed and active alliances past their expiry.
// Expiry is not a betrayal: effects of active alliances are removed with
// no standing movement, and lapsed proposals simply close. Failures on
// individual rows are logged and do not stop the sweep.
func (e *Engine) ExpireAlliances(ctx context.Context) (int, error) {
	now := e.now().UTC()
	lapsed, err := e.store.ListLapsedOpenAlliances(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, current := range lapsed {
		priorStatus := current.Status

		next, err := current.Expire(now)
		if err != nil {
			log.Printf("expire alliance id=%s err=%v", current.ID, err)
			continue
		}

		var ratings []storage.RatingChange
		if priorStatus == alliance.StatusActive {
			ratings = removalRatings(next)
		}

		if err := e.store.TransitionAlliance(ctx, next, priorStatus, ratings, nil); err != nil {
			if errors.Is(err, storage.ErrAllianceNotOpen) {
				continue
			}
			log.Printf("expire alliance id=%s err=%v", current.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

// removalRatings is the exact inverse of the alliance's acceptance effect.
func removalRatings(a alliance.Alliance) []storage.RatingChange {
	effect := a.Effect()
	if effect == (alliance.Effect{}) {
		return nil
	}
	return []storage.RatingChange{
		{NationID: a.ProposerID, DefenseDelta: -effect.DefenseBonus, AttackDelta: -effect.AttackBonus},
		{NationID: a.TargetID, DefenseDelta: -effect.DefenseBonus, AttackDelta: -effect.AttackBonus},
	}
}
