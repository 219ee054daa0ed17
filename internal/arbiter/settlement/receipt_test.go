package settlement

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

type signOptions struct {
	issuer   string
	audience string
	jti      string
	expires  *time.Time
	ownerRef string
	amount   int64
	method   jwt.SigningMethod
	key      any
}

func signReceipt(t *testing.T, opts signOptions) Receipt {
	t.Helper()

	claims := receiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   opts.issuer,
			Audience: jwt.ClaimStrings{opts.audience},
			ID:       opts.jti,
		},
		OwnerRef: opts.ownerRef,
		Amount:   opts.amount,
	}
	if opts.expires != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*opts.expires)
	}

	token := jwt.NewWithClaims(opts.method, claims)
	signed, err := token.SignedString(opts.key)
	if err != nil {
		t.Fatalf("sign receipt: %v", err)
	}
	return Receipt{Token: signed}
}

func TestVerifyReceipt(t *testing.T) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate other key: %v", err)
	}

	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	cfg := VerifierConfig{
		Issuer:   "settlement.example",
		Audience: "roadwars-arbiter",
		Key:      pub,
		Now:      func() time.Time { return now },
	}
	expected := Expectation{OwnerRef: "wallet-1", Amount: 500}

	valid := signOptions{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		jti:      "receipt-1",
		expires:  &future,
		ownerRef: expected.OwnerRef,
		amount:   expected.Amount,
		method:   jwt.SigningMethodEdDSA,
		key:      key,
	}

	t.Run("valid receipt", func(t *testing.T) {
		claims, err := VerifyReceipt(signReceipt(t, valid), expected, cfg)
		if err != nil {
			t.Fatalf("VerifyReceipt() error = %v", err)
		}
		if claims.ReceiptID != "receipt-1" {
			t.Errorf("ReceiptID = %q, want %q", claims.ReceiptID, "receipt-1")
		}
		if claims.OwnerRef != expected.OwnerRef {
			t.Errorf("OwnerRef = %q, want %q", claims.OwnerRef, expected.OwnerRef)
		}
		if claims.Amount != expected.Amount {
			t.Errorf("Amount = %d, want %d", claims.Amount, expected.Amount)
		}
		if !claims.ExpiresAt.Equal(future) {
			t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, future)
		}
	})

	tests := []struct {
		name     string
		mutate   func(opts signOptions) signOptions
		wantCode apperrors.Code
	}{
		{
			name: "wrong signing key",
			mutate: func(opts signOptions) signOptions {
				opts.key = otherKey
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptInvalid,
		},
		{
			name: "wrong issuer",
			mutate: func(opts signOptions) signOptions {
				opts.issuer = "someone-else"
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptMismatch,
		},
		{
			name: "wrong audience",
			mutate: func(opts signOptions) signOptions {
				opts.audience = "another-service"
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptMismatch,
		},
		{
			name: "missing jti",
			mutate: func(opts signOptions) signOptions {
				opts.jti = ""
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptInvalid,
		},
		{
			name: "missing exp",
			mutate: func(opts signOptions) signOptions {
				opts.expires = nil
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptInvalid,
		},
		{
			name: "expired",
			mutate: func(opts signOptions) signOptions {
				opts.expires = &past
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptExpired,
		},
		{
			name: "owner mismatch",
			mutate: func(opts signOptions) signOptions {
				opts.ownerRef = "wallet-2"
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptMismatch,
		},
		{
			name: "amount mismatch",
			mutate: func(opts signOptions) signOptions {
				opts.amount = 499
				return opts
			},
			wantCode: apperrors.CodeSettlementReceiptMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyReceipt(signReceipt(t, tt.mutate(valid)), expected, cfg)
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("VerifyReceipt() error = %v, want *apperrors.Error", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", appErr.Code, tt.wantCode)
			}
		})
	}

	t.Run("empty token", func(t *testing.T) {
		_, err := VerifyReceipt(Receipt{}, expected, cfg)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			t.Fatalf("VerifyReceipt() error = %v, want *apperrors.Error", err)
		}
		if appErr.Code != apperrors.CodeSettlementReceiptInvalid {
			t.Errorf("code = %v, want %v", appErr.Code, apperrors.CodeSettlementReceiptInvalid)
		}
	})

	t.Run("wrong signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, receiptClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
		})
		signed, err := token.SignedString([]byte("shared-secret"))
		if err != nil {
			t.Fatalf("sign receipt: %v", err)
		}
		_, err = VerifyReceipt(Receipt{Token: signed}, expected, cfg)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			t.Fatalf("VerifyReceipt() error = %v, want *apperrors.Error", err)
		}
		if appErr.Code != apperrors.CodeSettlementReceiptInvalid {
			t.Errorf("code = %v, want %v", appErr.Code, apperrors.CodeSettlementReceiptInvalid)
		}
	})

	t.Run("unconfigured verifier", func(t *testing.T) {
		_, err := VerifyReceipt(signReceipt(t, valid), expected, VerifierConfig{})
		if err == nil {
			t.Fatal("VerifyReceipt() error = nil, want error")
		}
	})
}

func TestLoadVerifierConfigFromEnv(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(pub)

	t.Run("complete", func(t *testing.T) {
		t.Setenv("ROADWARS_SETTLEMENT_ISSUER", "settlement.example")
		t.Setenv("ROADWARS_SETTLEMENT_AUDIENCE", "roadwars-arbiter")
		t.Setenv("ROADWARS_SETTLEMENT_PUBLIC_KEY", encoded)

		cfg, err := LoadVerifierConfigFromEnv(nil)
		if err != nil {
			t.Fatalf("LoadVerifierConfigFromEnv() error = %v", err)
		}
		if cfg.Issuer != "settlement.example" {
			t.Errorf("Issuer = %q, want %q", cfg.Issuer, "settlement.example")
		}
		if cfg.Audience != "roadwars-arbiter" {
			t.Errorf("Audience = %q, want %q", cfg.Audience, "roadwars-arbiter")
		}
		if !cfg.Key.Equal(pub) {
			t.Error("Key does not match the encoded public key")
		}
		if cfg.Now == nil {
			t.Error("Now = nil, want default clock")
		}
	})

	t.Run("missing issuer", func(t *testing.T) {
		t.Setenv("ROADWARS_SETTLEMENT_ISSUER", "")
		t.Setenv("ROADWARS_SETTLEMENT_AUDIENCE", "roadwars-arbiter")
		t.Setenv("ROADWARS_SETTLEMENT_PUBLIC_KEY", encoded)

		if _, err := LoadVerifierConfigFromEnv(nil); err == nil {
			t.Fatal("LoadVerifierConfigFromEnv() error = nil, want error")
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		t.Setenv("ROADWARS_SETTLEMENT_ISSUER", "settlement.example")
		t.Setenv("ROADWARS_SETTLEMENT_AUDIENCE", "roadwars-arbiter")
		t.Setenv("ROADWARS_SETTLEMENT_PUBLIC_KEY", "not-base64!!")

		if _, err := LoadVerifierConfigFromEnv(nil); err == nil {
			t.Fatal("LoadVerifierConfigFromEnv() error = nil, want error")
		}
	})

	t.Run("wrong key size", func(t *testing.T) {
		t.Setenv("ROADWARS_SETTLEMENT_ISSUER", "settlement.example")
		t.Setenv("ROADWARS_SETTLEMENT_AUDIENCE", "roadwars-arbiter")
		t.Setenv("ROADWARS_SETTLEMENT_PUBLIC_KEY", base64.StdEncoding.EncodeToString([]byte("short")))

		if _, err := LoadVerifierConfigFromEnv(nil); err == nil {
			t.Fatal("LoadVerifierConfigFromEnv() error = nil, want error")
		}
	})
}
