// Package service implements the arbitration engine: the single component
// allowed to move territories, stakes, alliances, and contests between
// states.
//
// Every operation follows the same shape: read current state, validate the
// domain guards, confirm any settlement burn, then commit the local
// transition in one storage transaction. Settlement confirmation strictly
// precedes the local commit; a failed or unverifiable burn leaves local
// state untouched.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/settlement"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
	"github.com/roadwars/roadwars/internal/platform/id"
)

// Engine arbitrates all state transitions of the territory-control world.
type Engine struct {
	store    storage.Store
	ledger   settlement.Ledger
	receipts settlement.VerifierConfig
	now      func() time.Time
	newID    func() (string, error)
}

// Config wires an Engine's collaborators.
type Config struct {
	Store  storage.Store
	Ledger settlement.Ledger
	// Receipts verifies burn receipts returned by the ledger.
	Receipts settlement.VerifierConfig
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
	// NewID overrides id generation; defaults to the platform generator.
	NewID func() (string, error)
}

// NewEngine validates the configuration and returns an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("settlement ledger is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	return &Engine{
		store:    cfg.Store,
		ledger:   cfg.Ledger,
		receipts: cfg.Receipts,
		now:      cfg.Now,
		newID:    cfg.NewID,
	}, nil
}

// confirmBurn burns amount from ownerRef on the settlement layer, verifies
// the signed receipt, and consumes its jti so a receipt cannot back two
// local commits.
func (e *Engine) confirmBurn(ctx context.Context, ownerRef string, amount int64) error {
	receipt, err := e.ledger.Burn(ctx, ownerRef, amount)
	if err != nil {
		return err
	}

	claims, err := settlement.VerifyReceipt(receipt, settlement.Expectation{
		OwnerRef: ownerRef,
		Amount:   amount,
	}, e.receipts)
	if err != nil {
		return err
	}

	return e.store.RecordBurnReceipt(ctx, claims.ReceiptID, claims.OwnerRef, claims.Amount, claims.ExpiresAt, e.now().UTC())
}

// notFoundAs rewrites the generic not-found sentinel into an entity
// specific code so callers see which reference was dangling.
func notFoundAs(err error, code apperrors.Code, message string) error {
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return apperrors.New(code, message)
	}
	return err
}
