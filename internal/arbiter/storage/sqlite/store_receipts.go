package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/storage"
)

// RecordBurnReceipt consumes a burn receipt jti. A receipt is single-use;
// a second insert with the same id returns ErrReceiptReplayed.
func (s *Store) RecordBurnReceipt(ctx context.Context, receiptID, ownerRef string, amount int64, expiresAt, now time.Time) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO burn_receipts (receipt_id, owner_ref, amount, expires_at, consumed_at)
VALUES (?, ?, ?, ?, ?)
`, receiptID, ownerRef, amount, toMillis(expiresAt), toMillis(now))
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrReceiptReplayed
		}
		return fmt.Errorf("record burn receipt: %w", err)
	}
	return nil
}
