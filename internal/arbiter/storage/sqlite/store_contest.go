package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/contest"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
	"github.com/roadwars/roadwars/internal/platform/id"
)

const contestColumns = "id, territory_id, attacker_nation_id, defender_nation_id, status, tokens_burned_attack, tokens_burned_defense, attack_power, defense_power, defense_deadline, winner_nation_id, created_at, updated_at, resolved_at"

// CreateContest inserts a new pending contest. The territory's controller
// is re-read in the same transaction so a transfer committed after the
// caller's snapshot cannot pin an ousted nation as defender; the
// open-territory partial index rejects a second open contest.
func (s *Store) CreateContest(ctx context.Context, c contest.Contest) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := getTerritoryTx(tx, ctx, c.TerritoryID)
		if err != nil {
			return err
		}
		if current.ControllerNationID != c.DefenderNationID {
			return storage.ErrStaleDefender
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO contests (id, territory_id, attacker_nation_id, defender_nation_id, status, tokens_burned_attack, tokens_burned_defense, attack_power, defense_power, defense_deadline, winner_nation_id, created_at, updated_at, resolved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, c.ID, c.TerritoryID, c.AttackerNationID, c.DefenderNationID, c.Status.String(),
			c.TokensBurnedAttack, c.TokensBurnedDefense, c.AttackPower, nullableInt(c.DefensePower),
			toMillis(c.DefenseDeadline), c.WinnerNationID, toMillis(c.CreatedAt), toMillis(c.UpdatedAt), toNullMillis(c.ResolvedAt))
		if err != nil {
			if isOpenContestConflict(err) {
				return storage.ErrOpenContestExists
			}
			return fmt.Errorf("insert contest: %w", err)
		}
		return nil
	})
}

// GetContest loads one contest by id.
func (s *Store) GetContest(ctx context.Context, id string) (contest.Contest, error) {
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+contestColumns+" FROM contests WHERE id = ?", id)
	return scanContest(row)
}

// GetOpenContest loads the pending or active contest on a territory.
func (s *Store) GetOpenContest(ctx context.Context, territoryID string) (contest.Contest, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+contestColumns+` FROM contests
WHERE territory_id = ? AND status IN ('pending', 'active')
`, territoryID)
	return scanContest(row)
}

// ResolveContest applies one resolution atomically: the contest row, the
// territory, stake liquidation, nation counts, the territory event, and
// the standing adjustments all commit together or not at all.
func (s *Store) ResolveContest(ctx context.Context, res storage.ContestResolution) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		c := res.Contest
		now := toMillis(c.UpdatedAt)

		query := `
UPDATE contests
SET status = ?, tokens_burned_defense = ?, defense_power = ?, winner_nation_id = ?, updated_at = ?, resolved_at = ?
WHERE id = ? AND status IN ('pending', 'active')
`
		args := []any{
			c.Status.String(), c.TokensBurnedDefense, nullableInt(c.DefensePower),
			c.WinnerNationID, now, toNullMillis(c.ResolvedAt), c.ID,
		}
		if res.RequireUndefended {
			// Timeout path: a concurrent defense wins the race.
			query = `
UPDATE contests
SET status = ?, tokens_burned_defense = ?, defense_power = ?, winner_nation_id = ?, updated_at = ?, resolved_at = ?
WHERE id = ? AND status = 'pending' AND tokens_burned_defense = 0 AND defense_deadline <= ?
`
			args = append(args, toMillis(c.UpdatedAt))
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("resolve contest: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("resolve contest rows: %w", err)
		}
		if affected == 0 {
			return storage.ErrContestNotOpen
		}

		// The territory row is only touched on transfer, and its fields are
		// updated in-row rather than from the caller's snapshot: a stake
		// committed while the contest was open must keep its total.
		if res.Transferred {
			_, err = tx.ExecContext(ctx, `
UPDATE territories
SET controller_nation_id = ?, defense_level = MAX(defense_level - ?, 0), total_staked = 0, updated_at = ?
WHERE id = ?
`, c.AttackerNationID, res.DefenseDecay, now, c.TerritoryID)
			if err != nil {
				return fmt.Errorf("transfer territory: %w", err)
			}
			if err := liquidateStakesTx(tx, ctx, c.TerritoryID, now); err != nil {
				return err
			}
		}

		for _, change := range res.Counts {
			if err := applyCountChange(tx, ctx, change, now); err != nil {
				return err
			}
		}

		if err := appendTerritoryEventTx(tx, ctx, res); err != nil {
			return err
		}

		for _, event := range res.Adjustments {
			if err := applyStandingEvent(tx, ctx, event, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListExpiredPendingContests returns pending contests whose defense
// deadline has passed at now with no defense burn recorded.
func (s *Store) ListExpiredPendingContests(ctx context.Context, now time.Time) ([]contest.Contest, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+contestColumns+` FROM contests
WHERE status = 'pending' AND tokens_burned_defense = 0 AND defense_deadline <= ?
ORDER BY defense_deadline, id
`, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list expired contests: %w", err)
	}
	defer rows.Close()

	var contests []contest.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contests: %w", err)
	}
	return contests, nil
}

func appendTerritoryEventTx(tx *sql.Tx, ctx context.Context, res storage.ContestResolution) error {
	eventID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate territory event id: %w", err)
	}

	c := res.Contest
	var defensePower int64
	if c.DefensePower != nil {
		defensePower = *c.DefensePower
	}
	var occurredAt int64
	if c.ResolvedAt != nil {
		occurredAt = toMillis(*c.ResolvedAt)
	} else {
		occurredAt = toMillis(c.UpdatedAt)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO territory_events (id, territory_id, contest_id, attacker_nation_id, defender_nation_id, attack_power, defense_power, winner_nation_id, transferred, forfeited, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, eventID, c.TerritoryID, c.ID, c.AttackerNationID, c.DefenderNationID,
		c.AttackPower, defensePower, c.WinnerNationID, boolToInt(res.Transferred), boolToInt(res.Forfeited), occurredAt)
	if err != nil {
		return fmt.Errorf("append territory event: %w", err)
	}
	return nil
}

func scanContest(row rowScanner) (contest.Contest, error) {
	var c contest.Contest
	var status string
	var defensePower, resolvedAt sql.NullInt64
	var deadline, createdAt, updatedAt int64

	err := row.Scan(&c.ID, &c.TerritoryID, &c.AttackerNationID, &c.DefenderNationID, &status,
		&c.TokensBurnedAttack, &c.TokensBurnedDefense, &c.AttackPower, &defensePower,
		&deadline, &c.WinnerNationID, &createdAt, &updatedAt, &resolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contest.Contest{}, storage.ErrNotFound
		}
		return contest.Contest{}, fmt.Errorf("scan contest: %w", err)
	}

	c.Status, err = contest.ParseStatus(status)
	if err != nil {
		return contest.Contest{}, fmt.Errorf("contest %s: %w", c.ID, err)
	}
	if defensePower.Valid {
		value := defensePower.Int64
		c.DefensePower = &value
	}
	c.DefenseDeadline = fromMillis(deadline)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	c.ResolvedAt = fromNullMillis(resolvedAt)
	return c, nil
}

func nullableInt(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
