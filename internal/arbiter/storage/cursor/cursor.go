// Package cursor implements opaque pagination tokens for event listings.
//
// A token encodes the last sequence number served plus a hash of the
// filter expression, so a cursor handed out for one filter cannot be
// replayed against another.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// Cursor is the decoded state of a page token. Listings are always in
// ascending sequence order; the cursor marks the last row already served.
type Cursor struct {
	// Seq is the sequence number of the last event in the previous page.
	Seq int64 `json:"seq"`
	// FilterHash binds the cursor to the filter it was issued for.
	FilterHash string `json:"filter_hash,omitempty"`
}

// New returns a cursor positioned after seq for the given filter.
func New(seq int64, filter string) Cursor {
	return Cursor{
		Seq:        seq,
		FilterHash: HashFilter(filter),
	}
}

// Encode serializes a cursor into an opaque page token.
func Encode(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode parses an opaque page token back into a cursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, apperrors.New(apperrors.CodeInvalidPageToken, "page token is empty")
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperrors.Wrap(apperrors.CodeInvalidPageToken, "page token is not valid base64", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, apperrors.Wrap(apperrors.CodeInvalidPageToken, "page token is malformed", err)
	}
	if c.Seq < 0 {
		return Cursor{}, apperrors.New(apperrors.CodeInvalidPageToken, "page token sequence is negative")
	}
	return c, nil
}

// HashFilter returns a short stable hash of a filter expression. Empty
// filters hash to the empty string.
func HashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(sum[:8])
}

// ValidateFilterHash confirms the cursor was issued for the given filter.
func ValidateFilterHash(c Cursor, filter string) error {
	if c.FilterHash != HashFilter(filter) {
		return apperrors.New(apperrors.CodeInvalidPageToken, "page token does not match the filter")
	}
	return nil
}
