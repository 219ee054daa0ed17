package service

import (
	"context"

	"github.com/roadwars/roadwars/internal/arbiter/filter"
	"github.com/roadwars/roadwars/internal/arbiter/storage"
)

// ListEventsInput describes one page of an audit listing. Filter is an
// AIP-160 expression over the event fields.
type ListEventsInput struct {
	Filter    string
	PageSize  int
	PageToken string
}

// ListTerritoryEvents returns contest outcome records in append order.
func (e *Engine) ListTerritoryEvents(ctx context.Context, input ListEventsInput) (storage.TerritoryEventPage, error) {
	cond, err := filter.ParseTerritoryEventFilter(input.Filter)
	if err != nil {
		return storage.TerritoryEventPage{}, err
	}
	return e.store.ListTerritoryEvents(ctx, storage.ListEventsRequest{
		Where:       cond.Clause,
		WhereParams: cond.Params,
		Filter:      input.Filter,
		PageSize:    input.PageSize,
		PageToken:   input.PageToken,
	})
}

// ListDiplomaticEvents returns standing adjustment records in append order.
func (e *Engine) ListDiplomaticEvents(ctx context.Context, input ListEventsInput) (storage.DiplomaticEventPage, error) {
	cond, err := filter.ParseDiplomaticEventFilter(input.Filter)
	if err != nil {
		return storage.DiplomaticEventPage{}, err
	}
	return e.store.ListDiplomaticEvents(ctx, storage.ListEventsRequest{
		Where:       cond.Clause,
		WhereParams: cond.Params,
		Filter:      input.Filter,
		PageSize:    input.PageSize,
		PageToken:   input.PageToken,
	})
}
