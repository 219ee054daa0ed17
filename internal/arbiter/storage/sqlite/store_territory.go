package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
)

const territoryColumns = "id, controller_nation_id, defense_level, total_staked, created_at, updated_at"

// PutTerritory inserts or replaces a territory record.
func (s *Store) PutTerritory(ctx context.Context, t territory.Territory) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO territories (id, controller_nation_id, defense_level, total_staked, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    controller_nation_id = excluded.controller_nation_id,
    defense_level = excluded.defense_level,
    total_staked = excluded.total_staked,
    updated_at = excluded.updated_at
`, t.ID, t.ControllerNationID, t.DefenseLevel, t.TotalStaked, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put territory: %w", err)
	}
	return nil
}

// GetTerritory loads one territory by id.
func (s *Store) GetTerritory(ctx context.Context, id string) (territory.Territory, error) {
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+territoryColumns+" FROM territories WHERE id = ?", id)
	return scanTerritory(row)
}

// ListTerritories returns all territories ordered by id.
func (s *Store) ListTerritories(ctx context.Context) ([]territory.Territory, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT "+territoryColumns+" FROM territories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	defer rows.Close()

	var territories []territory.Territory
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, err
		}
		territories = append(territories, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate territories: %w", err)
	}
	return territories, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTerritory(row rowScanner) (territory.Territory, error) {
	var t territory.Territory
	var createdAt, updatedAt int64
	err := row.Scan(&t.ID, &t.ControllerNationID, &t.DefenseLevel, &t.TotalStaked, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return territory.Territory{}, storage.ErrNotFound
		}
		return territory.Territory{}, fmt.Errorf("scan territory: %w", err)
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

// getTerritoryTx loads a territory inside a transaction.
func getTerritoryTx(tx *sql.Tx, ctx context.Context, id string) (territory.Territory, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+territoryColumns+" FROM territories WHERE id = ?", id)
	return scanTerritory(row)
}
