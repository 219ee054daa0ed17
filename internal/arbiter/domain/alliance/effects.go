package alliance

// Federation bonuses are fixed by the protocol, not negotiated in terms.
const (
	FederationDefenseBonus int64 = 50
	FederationAttackBonus  int64 = 25
)

// Effect is the symmetric stat modifier an active alliance grants both
// parties. Applying and removing an Effect are exact inverses; removal is
// floored at zero by the rating package.
type Effect struct {
	DefenseBonus int64
	AttackBonus  int64
}

// Zero reports whether the effect mutates no stats.
func (e Effect) Zero() bool {
	return e.DefenseBonus == 0 && e.AttackBonus == 0
}

// Effect returns the stat modifier for this alliance, keyed off its type.
func (a Alliance) Effect() Effect {
	switch a.Type {
	case TypeTrade:
		// Trade affects fee calculation read-time in the swap subsystem.
		return Effect{}
	case TypeDefense:
		return Effect{DefenseBonus: int64(a.Terms[TermDefenseBonus])}
	case TypeBorder:
		// Border is enforced as a non-aggression precondition, not a stat.
		return Effect{}
	case TypeFederation:
		return Effect{DefenseBonus: FederationDefenseBonus, AttackBonus: FederationAttackBonus}
	case TypeUnspecified:
		return Effect{}
	}
	return Effect{}
}

// NonAggression reports whether this alliance forbids contests between its
// parties. A border pact blocks while merely proposed; defense and
// federation pacts block only while active.
func (a Alliance) NonAggression() bool {
	switch a.Type {
	case TypeBorder:
		return a.Status.Open()
	case TypeDefense, TypeFederation:
		return a.Status == StatusActive
	case TypeTrade, TypeUnspecified:
		return false
	}
	return false
}
