package contest

import "time"

// DefenseWindow is how long the defender has to submit a defense.
const DefenseWindow = 24 * time.Hour

// TokenPowerWeight converts burned tokens into power units. Ratings and
// territory bonuses are added at face value on top.
const TokenPowerWeight int64 = 10

// DefenseLevelDecay is subtracted (floored at zero) from a territory's
// defense level when it falls to an attacker.
const DefenseLevelDecay int64 = 10

// AttackPower computes the attacker's side of the resolution comparison.
// Alliance bonuses are already folded into the attack rating.
func AttackPower(tokensBurned, attackRating int64) int64 {
	return tokensBurned*TokenPowerWeight + attackRating
}

// DefensePower computes the defender's side of the resolution comparison.
// The territory's defense level and its total active stake defend it
// alongside the defender's rating and defense burn.
func DefensePower(tokensBurned, defenseRating, defenseLevel, totalStaked int64) int64 {
	return tokensBurned*TokenPowerWeight + defenseRating + defenseLevel + totalStaked
}
