package settlement

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"ROADWARS_SETTLEMENT_ISSUER"`
	Audience  string `env:"ROADWARS_SETTLEMENT_AUDIENCE"`
	PublicKey string `env:"ROADWARS_SETTLEMENT_PUBLIC_KEY"`
}

// VerifierConfig defines how burn receipts are verified.
type VerifierConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Expectation defines the burn a receipt must attest to.
type Expectation struct {
	OwnerRef string
	Amount   int64
}

// Claims captures validated burn receipt claims.
type Claims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	ReceiptID string
	OwnerRef  string
	Amount    int64
}

// receiptClaims is the internal claims type used for JWT parsing.
type receiptClaims struct {
	jwt.RegisteredClaims
	OwnerRef string `json:"owner_ref"`
	Amount   int64  `json:"amount"`
}

// LoadVerifierConfigFromEnv reads receipt verification configuration.
func LoadVerifierConfigFromEnv(now func() time.Time) (VerifierConfig, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return VerifierConfig{}, fmt.Errorf("parse settlement env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return VerifierConfig{}, fmt.Errorf("ROADWARS_SETTLEMENT_ISSUER is required")
	}
	if audience == "" {
		return VerifierConfig{}, fmt.Errorf("ROADWARS_SETTLEMENT_AUDIENCE is required")
	}
	if publicKey == "" {
		return VerifierConfig{}, fmt.Errorf("ROADWARS_SETTLEMENT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("decode settlement public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return VerifierConfig{}, fmt.Errorf("settlement public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return VerifierConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// VerifyReceipt verifies a burn receipt token and validates it attests the
// expected burn.
func VerifyReceipt(receipt Receipt, expected Expectation, cfg VerifierConfig) (Claims, error) {
	token := strings.TrimSpace(receipt.Token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeSettlementReceiptInvalid, "burn receipt is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Claims{}, errors.New("receipt verifier is not configured")
	}

	var parsed receiptClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeSettlementReceiptMismatch,
			"burn receipt issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeSettlementReceiptMismatch,
			"burn receipt audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeSettlementReceiptInvalid, "burn receipt jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeSettlementReceiptInvalid, "burn receipt exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeSettlementReceiptExpired, "burn receipt is expired")
	}

	if strings.TrimSpace(parsed.OwnerRef) == "" || parsed.OwnerRef != expected.OwnerRef {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeSettlementReceiptMismatch,
			"burn receipt owner mismatch",
			map[string]string{"Field": "owner_ref"},
		)
	}
	if parsed.Amount != expected.Amount {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeSettlementReceiptMismatch,
			"burn receipt amount mismatch",
			map[string]string{
				"Field":    "amount",
				"Expected": strconv.FormatInt(expected.Amount, 10),
				"Actual":   strconv.FormatInt(parsed.Amount, 10),
			},
		)
	}

	claims := Claims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		ReceiptID: parsed.ID,
		OwnerRef:  parsed.OwnerRef,
		Amount:    parsed.Amount,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeSettlementReceiptInvalid, "burn receipt signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeSettlementReceiptInvalid, "burn receipt alg is invalid")
	}
	return apperrors.New(apperrors.CodeSettlementReceiptInvalid, "burn receipt is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
