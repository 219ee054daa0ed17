// Package territory models the authoritative record of territory control.
//
// Territories are seeded externally with stable road identifiers and are
// never deleted; only the Contest Resolution Engine and the Stake Ledger
// mutate them.
package territory

import (
	"strings"
	"time"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// Territory is a fixed contestable unit with at most one controller.
type Territory struct {
	ID                 string
	ControllerNationID string // empty when unclaimed
	DefenseLevel       int64
	TotalStaked        int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Claimed reports whether the territory currently has a controller.
func (t Territory) Claimed() bool {
	return t.ControllerNationID != ""
}

// ControlledBy reports whether the given nation controls the territory.
func (t Territory) ControlledBy(nationID string) bool {
	return t.ControllerNationID != "" && t.ControllerNationID == nationID
}

// NormalizeID trims and validates a territory identifier.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.New(apperrors.CodeTerritoryEmptyID, "territory id is required")
	}
	return id, nil
}
