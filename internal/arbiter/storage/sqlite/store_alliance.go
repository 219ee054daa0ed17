package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/alliance"
	"github.com/roadwars/roadwars/internal/arbiter/domain/standing"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
)

const allianceColumns = "id, proposer_nation_id, target_nation_id, alliance_type, status, terms, countered_from_id, proposed_at, accepted_at, terminated_at, expires_at, updated_at"

// CreateAlliance inserts a new proposal and applies its standing
// adjustments atomically. The open-pair partial index rejects a second
// proposed or active alliance between the same nations.
func (s *Store) CreateAlliance(ctx context.Context, a alliance.Alliance, adjustments []standing.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertAllianceTx(tx, ctx, a); err != nil {
			return err
		}
		now := toMillis(a.UpdatedAt)
		for _, event := range adjustments {
			if err := applyStandingEvent(tx, ctx, event, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAlliance loads one alliance by id.
func (s *Store) GetAlliance(ctx context.Context, id string) (alliance.Alliance, error) {
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+allianceColumns+" FROM alliances WHERE id = ?", id)
	return scanAlliance(row)
}

// ListOpenAlliancesBetween returns proposed and active alliances between
// the pair, in either role order.
func (s *Store) ListOpenAlliancesBetween(ctx context.Context, nationA, nationB string) ([]alliance.Alliance, error) {
	lo, hi := alliance.PairKey(nationA, nationB)
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+allianceColumns+` FROM alliances
WHERE pair_lo = ? AND pair_hi = ? AND status IN ('proposed', 'active')
ORDER BY proposed_at, id
`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("list open alliances: %w", err)
	}
	defer rows.Close()
	return collectAlliances(rows)
}

// TransitionAlliance persists an accept/reject/break/expire result along
// with its rating changes and standing adjustments. The row must still be
// in priorStatus or ErrAllianceNotOpen is returned.
func (s *Store) TransitionAlliance(ctx context.Context, a alliance.Alliance, priorStatus alliance.Status, ratings []storage.RatingChange, adjustments []standing.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(a.UpdatedAt)

		result, err := tx.ExecContext(ctx, `
UPDATE alliances
SET status = ?, accepted_at = ?, terminated_at = ?, expires_at = ?, updated_at = ?
WHERE id = ? AND status = ?
`, a.Status.String(), toNullMillis(a.AcceptedAt), toNullMillis(a.TerminatedAt), toMillis(a.ExpiresAt), now, a.ID, priorStatus.String())
		if err != nil {
			return fmt.Errorf("transition alliance: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("transition alliance rows: %w", err)
		}
		if affected == 0 {
			return storage.ErrAllianceNotOpen
		}

		for _, change := range ratings {
			if err := applyRatingChange(tx, ctx, change, now); err != nil {
				return err
			}
		}
		for _, event := range adjustments {
			if err := applyStandingEvent(tx, ctx, event, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// CounterAlliance terminates the original proposal as countered and
// inserts the swapped-role counter proposal in one transaction. The
// original must leave the open set before the insert so the pair index
// admits the new row.
func (s *Store) CounterAlliance(ctx context.Context, countered alliance.Alliance, proposal alliance.Alliance, adjustments []standing.Event) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := toMillis(countered.UpdatedAt)

		result, err := tx.ExecContext(ctx, `
UPDATE alliances
SET status = ?, terminated_at = ?, updated_at = ?
WHERE id = ? AND status = 'proposed'
`, countered.Status.String(), toNullMillis(countered.TerminatedAt), now, countered.ID)
		if err != nil {
			return fmt.Errorf("mark alliance countered: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark alliance countered rows: %w", err)
		}
		if affected == 0 {
			return storage.ErrAllianceNotOpen
		}

		if err := insertAllianceTx(tx, ctx, proposal); err != nil {
			return err
		}

		for _, event := range adjustments {
			if err := applyStandingEvent(tx, ctx, event, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListLapsedOpenAlliances returns proposed and active alliances whose
// expiry has passed at now.
func (s *Store) ListLapsedOpenAlliances(ctx context.Context, now time.Time) ([]alliance.Alliance, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+allianceColumns+` FROM alliances
WHERE status IN ('proposed', 'active') AND expires_at <= ?
ORDER BY expires_at, id
`, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list lapsed alliances: %w", err)
	}
	defer rows.Close()
	return collectAlliances(rows)
}

func insertAllianceTx(tx *sql.Tx, ctx context.Context, a alliance.Alliance) error {
	terms, err := json.Marshal(a.Terms)
	if err != nil {
		return fmt.Errorf("encode alliance terms: %w", err)
	}
	lo, hi := alliance.PairKey(a.ProposerID, a.TargetID)

	_, err = tx.ExecContext(ctx, `
INSERT INTO alliances (id, proposer_nation_id, target_nation_id, pair_lo, pair_hi, alliance_type, status, terms, countered_from_id, proposed_at, accepted_at, terminated_at, expires_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, a.ID, a.ProposerID, a.TargetID, lo, hi, a.Type.String(), a.Status.String(), string(terms), a.CounteredFromID,
		toMillis(a.ProposedAt), toNullMillis(a.AcceptedAt), toNullMillis(a.TerminatedAt), toMillis(a.ExpiresAt), toMillis(a.UpdatedAt))
	if err != nil {
		if isOpenAllianceConflict(err) {
			return storage.ErrOpenAllianceExists
		}
		return fmt.Errorf("insert alliance: %w", err)
	}
	return nil
}

func collectAlliances(rows *sql.Rows) ([]alliance.Alliance, error) {
	var alliances []alliance.Alliance
	for rows.Next() {
		a, err := scanAlliance(rows)
		if err != nil {
			return nil, err
		}
		alliances = append(alliances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alliances: %w", err)
	}
	return alliances, nil
}

func scanAlliance(row rowScanner) (alliance.Alliance, error) {
	var a alliance.Alliance
	var allianceType, status, terms string
	var proposedAt, expiresAt, updatedAt int64
	var acceptedAt, terminatedAt sql.NullInt64

	err := row.Scan(&a.ID, &a.ProposerID, &a.TargetID, &allianceType, &status, &terms, &a.CounteredFromID,
		&proposedAt, &acceptedAt, &terminatedAt, &expiresAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return alliance.Alliance{}, storage.ErrNotFound
		}
		return alliance.Alliance{}, fmt.Errorf("scan alliance: %w", err)
	}

	a.Type, err = alliance.ParseType(allianceType)
	if err != nil {
		return alliance.Alliance{}, fmt.Errorf("alliance %s: %w", a.ID, err)
	}
	a.Status, err = alliance.ParseStatus(status)
	if err != nil {
		return alliance.Alliance{}, fmt.Errorf("alliance %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(terms), &a.Terms); err != nil {
		return alliance.Alliance{}, fmt.Errorf("decode terms for alliance %s: %w", a.ID, err)
	}

	a.ProposedAt = fromMillis(proposedAt)
	a.AcceptedAt = fromNullMillis(acceptedAt)
	a.TerminatedAt = fromNullMillis(terminatedAt)
	a.ExpiresAt = fromMillis(expiresAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}
