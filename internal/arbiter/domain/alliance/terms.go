package alliance

import (
	_ "embed"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// Well-known term keys.
const (
	// TermDefenseBonus is the defense rating bonus a defense alliance grants
	// both parties while active.
	TermDefenseBonus = "defense_bonus"
	// TermDurationDays is the alliance lifetime in days, counted from the
	// proposal.
	TermDurationDays = "duration_days"
	// TermFeeDiscountPct is read by the swap subsystem's fee calculation;
	// this core only carries it.
	TermFeeDiscountPct = "fee_discount_pct"
)

const (
	defaultDurationDays = 30
	defaultDefenseBonus = 25
	defaultFeeDiscount  = 5
)

//go:embed terms_schema.json
var termsSchemaJSON string

var termsSchema = jsonschema.MustCompileString("terms_schema.json", termsSchemaJSON)

// Terms is the structured, type-specific parameter map of an alliance.
type Terms map[string]float64

// DefaultTerms returns the built-in terms for an alliance type.
func DefaultTerms(t Type) Terms {
	terms := Terms{TermDurationDays: defaultDurationDays}
	switch t {
	case TypeTrade:
		terms[TermFeeDiscountPct] = defaultFeeDiscount
	case TypeDefense:
		terms[TermDefenseBonus] = defaultDefenseBonus
	case TypeBorder, TypeFederation:
		// Border carries no numeric modifiers; federation bonuses are fixed
		// constants, not negotiable terms.
	case TypeUnspecified:
	}
	return terms
}

// Merge returns a copy of t with override values applied field-by-field.
func (t Terms) Merge(override Terms) Terms {
	merged := make(Terms, len(t)+len(override))
	for key, value := range t {
		merged[key] = value
	}
	for key, value := range override {
		merged[key] = value
	}
	return merged
}

// Duration returns the alliance lifetime derived from duration_days.
func (t Terms) Duration() time.Duration {
	days := t[TermDurationDays]
	if days <= 0 {
		days = defaultDurationDays
	}
	return time.Duration(days * 24 * float64(time.Hour))
}

// Validate checks caller-supplied terms against the embedded schema.
func (t Terms) Validate() error {
	value := make(map[string]any, len(t))
	for key, v := range t {
		value[key] = v
	}
	if err := termsSchema.Validate(value); err != nil {
		return apperrors.Wrap(apperrors.CodeAllianceInvalidTerms, "alliance terms are invalid", err)
	}
	return nil
}

// ResolveTerms validates caller terms and merges them over the type
// defaults, caller values winning field-by-field.
func ResolveTerms(t Type, caller Terms) (Terms, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	return DefaultTerms(t).Merge(caller), nil
}
