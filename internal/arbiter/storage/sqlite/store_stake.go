package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/stake"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
)

const stakeColumns = "id, territory_id, nation_id, staker_id, amount, is_active, locked_until, deactivated_reason, created_at, updated_at"

// CreateStake records a settlement-confirmed stake and increments the
// territory's total in the same transaction. A second stake by the same
// (territory, nation, staker) triple merges into the existing active row.
func (s *Store) CreateStake(ctx context.Context, st stake.Stake) (stake.Stake, error) {
	var stored stake.Stake
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTerritoryTx(tx, ctx, st.TerritoryID); err != nil {
			return err
		}

		now := toMillis(st.UpdatedAt)
		_, err := tx.ExecContext(ctx, `
INSERT INTO stakes (id, territory_id, nation_id, staker_id, amount, is_active, locked_until, deactivated_reason, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, '', ?, ?)
`, st.ID, st.TerritoryID, st.NationID, st.StakerID, st.Amount, toNullMillis(st.LockedUntil), toMillis(st.CreatedAt), now)
		switch {
		case err == nil:
			stored = st
		case isActiveStakeConflict(err):
			// Merge into the existing active stake.
			_, err = tx.ExecContext(ctx, `
UPDATE stakes SET amount = amount + ?, updated_at = ?
WHERE territory_id = ? AND nation_id = ? AND staker_id = ? AND is_active = 1
`, st.Amount, now, st.TerritoryID, st.NationID, st.StakerID)
			if err != nil {
				return fmt.Errorf("merge stake: %w", err)
			}
			merged, err := getActiveStakeTx(tx, ctx, st.TerritoryID, st.NationID, st.StakerID)
			if err != nil {
				return err
			}
			stored = merged
		default:
			return fmt.Errorf("insert stake: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
UPDATE territories SET total_staked = total_staked + ?, updated_at = ? WHERE id = ?
`, st.Amount, now, st.TerritoryID)
		if err != nil {
			return fmt.Errorf("increment total staked: %w", err)
		}
		return nil
	})
	if err != nil {
		return stake.Stake{}, err
	}
	return stored, nil
}

// GetActiveStake loads the active stake for a (territory, nation, staker)
// triple.
func (s *Store) GetActiveStake(ctx context.Context, territoryID, nationID, stakerID string) (stake.Stake, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+stakeColumns+` FROM stakes
WHERE territory_id = ? AND nation_id = ? AND staker_id = ? AND is_active = 1
`, territoryID, nationID, stakerID)
	return scanStake(row)
}

// ListActiveStakes returns all active stakes on a territory.
func (s *Store) ListActiveStakes(ctx context.Context, territoryID string) ([]stake.Stake, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+stakeColumns+` FROM stakes
WHERE territory_id = ? AND is_active = 1
ORDER BY created_at, id
`, territoryID)
	if err != nil {
		return nil, fmt.Errorf("list active stakes: %w", err)
	}
	defer rows.Close()

	var stakes []stake.Stake
	for rows.Next() {
		st, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		stakes = append(stakes, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stakes: %w", err)
	}
	return stakes, nil
}

// DeactivateStake marks the triple's active stake with the given reason and
// decrements the territory's total, returning the amount released.
func (s *Store) DeactivateStake(ctx context.Context, territoryID, nationID, stakerID string, reason stake.DeactivationReason, now time.Time) (int64, error) {
	var released int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		st, err := getActiveStakeTx(tx, ctx, territoryID, nationID, stakerID)
		if err != nil {
			return err
		}

		nowMillis := toMillis(now)
		_, err = tx.ExecContext(ctx, `
UPDATE stakes SET is_active = 0, deactivated_reason = ?, updated_at = ? WHERE id = ?
`, string(reason), nowMillis, st.ID)
		if err != nil {
			return fmt.Errorf("deactivate stake: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
UPDATE territories SET total_staked = total_staked - ?, updated_at = ? WHERE id = ?
`, st.Amount, nowMillis, territoryID)
		if err != nil {
			return fmt.Errorf("decrement total staked: %w", err)
		}

		released = st.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func getActiveStakeTx(tx *sql.Tx, ctx context.Context, territoryID, nationID, stakerID string) (stake.Stake, error) {
	row := tx.QueryRowContext(ctx, `
SELECT `+stakeColumns+` FROM stakes
WHERE territory_id = ? AND nation_id = ? AND staker_id = ? AND is_active = 1
`, territoryID, nationID, stakerID)
	return scanStake(row)
}

func scanStake(row rowScanner) (stake.Stake, error) {
	var st stake.Stake
	var active int64
	var lockedUntil sql.NullInt64
	var reason string
	var createdAt, updatedAt int64
	err := row.Scan(&st.ID, &st.TerritoryID, &st.NationID, &st.StakerID, &st.Amount, &active, &lockedUntil, &reason, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stake.Stake{}, storage.ErrNotFound
		}
		return stake.Stake{}, fmt.Errorf("scan stake: %w", err)
	}
	st.Active = active == 1
	st.LockedUntil = fromNullMillis(lockedUntil)
	st.DeactivatedReason = stake.DeactivationReason(reason)
	st.CreatedAt = fromMillis(createdAt)
	st.UpdatedAt = fromMillis(updatedAt)
	return st, nil
}

// liquidateStakesTx deactivates every active stake on a territory after a
// transfer. The total is zeroed by the caller, so every backing row must
// go inactive to keep the sum invariant.
func liquidateStakesTx(tx *sql.Tx, ctx context.Context, territoryID string, now int64) error {
	_, err := tx.ExecContext(ctx, `
UPDATE stakes SET is_active = 0, deactivated_reason = ?, updated_at = ?
WHERE territory_id = ? AND is_active = 1
`, string(stake.ReasonLiquidated), now, territoryID)
	if err != nil {
		return fmt.Errorf("liquidate stakes: %w", err)
	}
	return nil
}
