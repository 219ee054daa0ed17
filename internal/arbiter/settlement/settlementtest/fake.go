// Package settlementtest provides an in-memory settlement ledger for tests.
package settlementtest

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roadwars/roadwars/internal/arbiter/settlement"
	"github.com/roadwars/roadwars/internal/platform/id"
)

const (
	// Issuer identifies the fake settlement layer in minted receipts.
	Issuer = "settlement.test"
	// Audience scopes minted receipts to the arbitration core.
	Audience = "roadwars-arbiter"
)

// Fake implements settlement.Ledger with an in-memory balance table and
// EdDSA-signed burn receipts.
type Fake struct {
	mu       sync.Mutex
	balances map[string]int64
	burned   map[string]int64

	key ed25519.PrivateKey
	pub ed25519.PublicKey

	// Clock stamps minted receipts; defaults to time.Now.
	Clock func() time.Time
	// BurnErr, when set, makes Burn fail without touching balances.
	BurnErr error
}

// New returns a Fake with a freshly generated signing key.
func New(t *testing.T) *Fake {
	t.Helper()
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate settlement key: %v", err)
	}
	return &Fake{
		balances: make(map[string]int64),
		burned:   make(map[string]int64),
		key:      key,
		pub:      pub,
		Clock:    time.Now,
	}
}

// SetBalance seeds an owner's spendable balance.
func (f *Fake) SetBalance(ownerRef string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[ownerRef] = amount
}

// Burned reports the total amount burned for an owner.
func (f *Fake) Burned(ownerRef string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.burned[ownerRef]
}

// Burn implements settlement.Ledger.
func (f *Fake) Burn(ctx context.Context, ownerRef string, amount int64) (settlement.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return settlement.Receipt{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.BurnErr != nil {
		return settlement.Receipt{}, f.BurnErr
	}
	if f.balances[ownerRef] < amount {
		return settlement.Receipt{}, settlement.ErrInsufficientBalance
	}
	f.balances[ownerRef] -= amount
	f.burned[ownerRef] += amount

	return f.mintLocked(ownerRef, amount)
}

// Balance implements settlement.Ledger.
func (f *Fake) Balance(ctx context.Context, ownerRef string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[ownerRef], nil
}

// MintReceipt signs a receipt without balance bookkeeping. Useful for
// exercising verification paths directly.
func (f *Fake) MintReceipt(t *testing.T, ownerRef string, amount int64) settlement.Receipt {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	receipt, err := f.mintLocked(ownerRef, amount)
	if err != nil {
		t.Fatalf("mint receipt: %v", err)
	}
	return receipt
}

func (f *Fake) mintLocked(ownerRef string, amount int64) (settlement.Receipt, error) {
	receiptID, err := id.NewID()
	if err != nil {
		return settlement.Receipt{}, err
	}
	now := f.Clock().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, struct {
		jwt.RegisteredClaims
		OwnerRef string `json:"owner_ref"`
		Amount   int64  `json:"amount"`
	}{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ID:        receiptID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		OwnerRef: ownerRef,
		Amount:   amount,
	})
	signed, err := token.SignedString(f.key)
	if err != nil {
		return settlement.Receipt{}, err
	}
	return settlement.Receipt{Token: signed}, nil
}

// VerifierConfig returns a config that trusts this fake's signing key.
func (f *Fake) VerifierConfig() settlement.VerifierConfig {
	return settlement.VerifierConfig{
		Issuer:   Issuer,
		Audience: Audience,
		Key:      f.pub,
		Now:      f.Clock,
	}
}
