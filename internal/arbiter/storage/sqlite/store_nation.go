package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/rating"
	"github.com/roadwars/roadwars/internal/arbiter/domain/standing"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
	"github.com/roadwars/roadwars/internal/platform/id"
)

const nationColumns = "id, name, owner_wallet, territory_count, defense_rating, attack_rating, diplomatic_standing, created_at, updated_at"

// PutNation inserts or replaces a nation record.
func (s *Store) PutNation(ctx context.Context, n nation.Nation) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO nations (id, name, owner_wallet, territory_count, defense_rating, attack_rating, diplomatic_standing, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    owner_wallet = excluded.owner_wallet,
    territory_count = excluded.territory_count,
    defense_rating = excluded.defense_rating,
    attack_rating = excluded.attack_rating,
    diplomatic_standing = excluded.diplomatic_standing,
    updated_at = excluded.updated_at
`, n.ID, n.Name, n.OwnerWallet, n.TerritoryCount, n.DefenseRating, n.AttackRating, n.DiplomaticStanding, toMillis(n.CreatedAt), toMillis(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put nation: %w", err)
	}
	return nil
}

// GetNation loads one nation by id.
func (s *Store) GetNation(ctx context.Context, id string) (nation.Nation, error) {
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+nationColumns+" FROM nations WHERE id = ?", id)
	return scanNation(row)
}

// ListNations returns all nations ordered by id.
func (s *Store) ListNations(ctx context.Context) ([]nation.Nation, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT "+nationColumns+" FROM nations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list nations: %w", err)
	}
	defer rows.Close()

	var nations []nation.Nation
	for rows.Next() {
		n, err := scanNation(rows)
		if err != nil {
			return nil, err
		}
		nations = append(nations, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nations: %w", err)
	}
	return nations, nil
}

func scanNation(row rowScanner) (nation.Nation, error) {
	var n nation.Nation
	var createdAt, updatedAt int64
	err := row.Scan(&n.ID, &n.Name, &n.OwnerWallet, &n.TerritoryCount, &n.DefenseRating, &n.AttackRating, &n.DiplomaticStanding, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nation.Nation{}, storage.ErrNotFound
		}
		return nation.Nation{}, fmt.Errorf("scan nation: %w", err)
	}
	n.CreatedAt = fromMillis(createdAt)
	n.UpdatedAt = fromMillis(updatedAt)
	return n, nil
}

func getNationTx(tx *sql.Tx, ctx context.Context, id string) (nation.Nation, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+nationColumns+" FROM nations WHERE id = ?", id)
	return scanNation(row)
}

// applyRatingChange adjusts one nation's combat ratings inside a
// transaction, flooring each rating at zero. SQLite's single-writer model
// makes the read-modify-write safe.
func applyRatingChange(tx *sql.Tx, ctx context.Context, change storage.RatingChange, now int64) error {
	n, err := getNationTx(tx, ctx, change.NationID)
	if err != nil {
		return fmt.Errorf("load nation %s: %w", change.NationID, err)
	}

	defense := applyDelta(n.DefenseRating, change.DefenseDelta)
	attack := applyDelta(n.AttackRating, change.AttackDelta)

	_, err = tx.ExecContext(ctx, `
UPDATE nations SET defense_rating = ?, attack_rating = ?, updated_at = ? WHERE id = ?
`, defense, attack, now, change.NationID)
	if err != nil {
		return fmt.Errorf("update ratings for nation %s: %w", change.NationID, err)
	}
	return nil
}

// applyCountChange adjusts one nation's territory count inside a
// transaction, flooring at zero.
func applyCountChange(tx *sql.Tx, ctx context.Context, change storage.CountChange, now int64) error {
	n, err := getNationTx(tx, ctx, change.NationID)
	if err != nil {
		return fmt.Errorf("load nation %s: %w", change.NationID, err)
	}

	count := applyDelta(n.TerritoryCount, change.Delta)

	_, err = tx.ExecContext(ctx, `
UPDATE nations SET territory_count = ?, updated_at = ? WHERE id = ?
`, count, now, change.NationID)
	if err != nil {
		return fmt.Errorf("update territory count for nation %s: %w", change.NationID, err)
	}
	return nil
}

// applyDelta adds a signed delta to a non-negative counter, flooring the
// result at zero on subtraction.
func applyDelta(value, delta int64) int64 {
	if delta < 0 {
		return rating.SaturatingSub(value, -delta)
	}
	return value + delta
}

// applyStandingEvent adjusts a nation's diplomatic standing and appends
// the audit event carrying the standing after the adjustment.
func applyStandingEvent(tx *sql.Tx, ctx context.Context, event standing.Event, now int64) error {
	eventID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate diplomatic event id: %w", err)
	}

	n, err := getNationTx(tx, ctx, event.NationID)
	if err != nil {
		return fmt.Errorf("load nation %s: %w", event.NationID, err)
	}

	after := n.DiplomaticStanding + event.Delta

	_, err = tx.ExecContext(ctx, `
UPDATE nations SET diplomatic_standing = ?, updated_at = ? WHERE id = ?
`, after, now, event.NationID)
	if err != nil {
		return fmt.Errorf("update standing for nation %s: %w", event.NationID, err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO diplomatic_events (id, nation_id, reason, delta, standing_after, alliance_id, contest_id, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, eventID, event.NationID, string(event.Reason), event.Delta, after, event.AllianceID, event.ContestID, toMillis(event.OccurredAt))
	if err != nil {
		return fmt.Errorf("append diplomatic event for nation %s: %w", event.NationID, err)
	}
	return nil
}
