// Package nation models player nations and their derived statistics.
//
// The four derived fields (territory count, defense/attack rating,
// diplomatic standing) are mutated exclusively by the arbitration core as
// side effects of alliance and contest transitions, never set by callers.
package nation

import (
	"strings"
	"time"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// Nation is a player-controlled actor with derived combat/diplomatic stats.
type Nation struct {
	ID                 string
	Name               string
	OwnerWallet        string
	TerritoryCount     int64
	DefenseRating      int64
	AttackRating       int64
	DiplomaticStanding int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NormalizeID trims and validates a nation identifier.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.New(apperrors.CodeNationEmptyID, "nation id is required")
	}
	return id, nil
}
