// Package rating provides saturating arithmetic for derived nation and
// territory statistics.
//
// Alliance bonuses stack across sources, so removing one source must never
// drive a rating below zero regardless of the order concurrent removals
// land in. Every subtraction of a derived stat in this module goes through
// SaturatingSub so the floor is enforced in exactly one place.
package rating

// SaturatingSub returns value-delta floored at zero.
func SaturatingSub(value, delta int64) int64 {
	if delta >= value {
		return 0
	}
	return value - delta
}
