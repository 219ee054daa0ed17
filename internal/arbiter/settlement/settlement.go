// Package settlement defines the contract with the external resource
// settlement layer.
//
// The settlement layer is the system of record for resource custody. The
// arbitration core trusts it only via signed burn receipts: every
// resource-affecting operation confirms its burn before any local state is
// committed, and a failed or unverifiable burn aborts the operation with no
// partial commit.
package settlement

import (
	"context"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// Receipt is the settlement layer's proof that a burn happened. The token
// is an EdDSA-signed JWT carrying owner, amount, and a unique receipt id.
type Receipt struct {
	Token string
}

// Ledger is the settlement-layer capability the engine requires.
type Ledger interface {
	// Burn irreversibly destroys amount resource units held by ownerRef and
	// returns a signed receipt. Burns are never refunded.
	Burn(ctx context.Context, ownerRef string, amount int64) (Receipt, error)
	// Balance reports ownerRef's spendable resource units.
	Balance(ctx context.Context, ownerRef string) (int64, error)
}

// ErrInsufficientBalance indicates the owner cannot cover the burn.
var ErrInsufficientBalance = apperrors.New(apperrors.CodeStakeInsufficientBalance, "settlement balance is insufficient")

// ErrUnavailable indicates a transport or settlement-side failure; the
// caller may retry, and no local state was changed.
var ErrUnavailable = apperrors.New(apperrors.CodeSettlementFailed, "settlement layer is unavailable")
