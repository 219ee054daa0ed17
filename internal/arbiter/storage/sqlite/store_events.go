package sqlite

import (
	"context"
	"fmt"

	"github.com/roadwars/roadwars/internal/arbiter/domain/standing"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
	"github.com/roadwars/roadwars/internal/arbiter/storage/cursor"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// clampPageSize applies the default and the cap to a requested page size.
func clampPageSize(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// decodeEventCursor restores the paging position for a listing request.
func decodeEventCursor(req storage.ListEventsRequest) (cursor.Cursor, error) {
	if req.PageToken == "" {
		return cursor.New(0, req.Filter), nil
	}
	c, err := cursor.Decode(req.PageToken)
	if err != nil {
		return cursor.Cursor{}, err
	}
	if err := cursor.ValidateFilterHash(c, req.Filter); err != nil {
		return cursor.Cursor{}, err
	}
	return c, nil
}

// ListTerritoryEvents returns a page of territory events in sequence order.
func (s *Store) ListTerritoryEvents(ctx context.Context, req storage.ListEventsRequest) (storage.TerritoryEventPage, error) {
	pos, err := decodeEventCursor(req)
	if err != nil {
		return storage.TerritoryEventPage{}, err
	}
	pageSize := clampPageSize(req.PageSize)

	query := `
SELECT seq, id, territory_id, contest_id, attacker_nation_id, defender_nation_id, attack_power, defense_power, winner_nation_id, transferred, forfeited, occurred_at
FROM territory_events
WHERE seq > ?
`
	params := []any{pos.Seq}
	if req.Where != "" {
		query += " AND " + req.Where
		params = append(params, req.WhereParams...)
	}
	// Fetch one extra row to detect whether another page exists.
	query += " ORDER BY seq LIMIT ?"
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.TerritoryEventPage{}, fmt.Errorf("list territory events: %w", err)
	}
	defer rows.Close()

	var events []storage.TerritoryEvent
	for rows.Next() {
		var e storage.TerritoryEvent
		var transferred, forfeited, occurredAt int64
		err := rows.Scan(&e.Seq, &e.ID, &e.TerritoryID, &e.ContestID, &e.AttackerNationID, &e.DefenderNationID,
			&e.AttackPower, &e.DefensePower, &e.WinnerNationID, &transferred, &forfeited, &occurredAt)
		if err != nil {
			return storage.TerritoryEventPage{}, fmt.Errorf("scan territory event: %w", err)
		}
		e.Transferred = transferred == 1
		e.Forfeited = forfeited == 1
		e.OccurredAt = fromMillis(occurredAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return storage.TerritoryEventPage{}, fmt.Errorf("iterate territory events: %w", err)
	}

	page := storage.TerritoryEventPage{Events: events}
	if len(events) > pageSize {
		page.Events = events[:pageSize]
		token, err := cursor.Encode(cursor.New(page.Events[pageSize-1].Seq, req.Filter))
		if err != nil {
			return storage.TerritoryEventPage{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

// ListDiplomaticEvents returns a page of diplomatic events in sequence
// order.
func (s *Store) ListDiplomaticEvents(ctx context.Context, req storage.ListEventsRequest) (storage.DiplomaticEventPage, error) {
	pos, err := decodeEventCursor(req)
	if err != nil {
		return storage.DiplomaticEventPage{}, err
	}
	pageSize := clampPageSize(req.PageSize)

	query := `
SELECT seq, id, nation_id, reason, delta, standing_after, alliance_id, contest_id, occurred_at
FROM diplomatic_events
WHERE seq > ?
`
	params := []any{pos.Seq}
	if req.Where != "" {
		query += " AND " + req.Where
		params = append(params, req.WhereParams...)
	}
	query += " ORDER BY seq LIMIT ?"
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.DiplomaticEventPage{}, fmt.Errorf("list diplomatic events: %w", err)
	}
	defer rows.Close()

	var events []storage.DiplomaticEvent
	for rows.Next() {
		var e storage.DiplomaticEvent
		var reason string
		var occurredAt int64
		err := rows.Scan(&e.Seq, &e.ID, &e.NationID, &reason, &e.Delta, &e.StandingAfter, &e.AllianceID, &e.ContestID, &occurredAt)
		if err != nil {
			return storage.DiplomaticEventPage{}, fmt.Errorf("scan diplomatic event: %w", err)
		}
		e.Reason = standing.Reason(reason)
		e.OccurredAt = fromMillis(occurredAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return storage.DiplomaticEventPage{}, fmt.Errorf("iterate diplomatic events: %w", err)
	}

	page := storage.DiplomaticEventPage{Events: events}
	if len(events) > pageSize {
		page.Events = events[:pageSize]
		token, err := cursor.Encode(cursor.New(page.Events[pageSize-1].Seq, req.Filter))
		if err != nil {
			return storage.DiplomaticEventPage{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}
