package filter

import (
	"testing"
	"time"
)

func TestParseTerritoryEventFilter(t *testing.T) {
	tests := []struct {
		name       string
		filter     string
		wantClause string
		wantParams []any
	}{
		{
			name:   "empty filter",
			filter: "",
		},
		{
			name:       "territory equality",
			filter:     `territory_id = "D4OUT"`,
			wantClause: "territory_id = ?",
			wantParams: []any{"D4OUT"},
		},
		{
			name:       "attacker and transferred",
			filter:     `attacker_id = "abc" AND transferred = true`,
			wantClause: "(attacker_nation_id = ? AND transferred = ?)",
			wantParams: []any{"abc", true},
		},
		{
			name:       "winner or defender",
			filter:     `winner_id = "abc" OR defender_id = "abc"`,
			wantClause: "(winner_nation_id = ? OR defender_nation_id = ?)",
			wantParams: []any{"abc", "abc"},
		},
		{
			name:       "timestamp bound",
			filter:     `ts >= timestamp("2026-01-02T00:00:00Z")`,
			wantClause: "occurred_at >= ?",
			wantParams: []any{time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC).UnixMilli()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := ParseTerritoryEventFilter(tt.filter)
			if err != nil {
				t.Fatalf("ParseTerritoryEventFilter(%q) error = %v", tt.filter, err)
			}
			if cond.Clause != tt.wantClause {
				t.Errorf("Clause = %q, want %q", cond.Clause, tt.wantClause)
			}
			if len(cond.Params) != len(tt.wantParams) {
				t.Fatalf("Params = %v, want %v", cond.Params, tt.wantParams)
			}
			for i := range cond.Params {
				if cond.Params[i] != tt.wantParams[i] {
					t.Errorf("Params[%d] = %v, want %v", i, cond.Params[i], tt.wantParams[i])
				}
			}
		})
	}
}

func TestParseTerritoryEventFilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
	}{
		{name: "unknown field", filter: `session_id = "abc"`},
		{name: "bad syntax", filter: `territory_id = `},
		{name: "field in value position", filter: `territory_id = contest_id`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTerritoryEventFilter(tt.filter); err == nil {
				t.Fatalf("ParseTerritoryEventFilter(%q) error = nil, want error", tt.filter)
			}
		})
	}
}

func TestParseDiplomaticEventFilter(t *testing.T) {
	cond, err := ParseDiplomaticEventFilter(`nation_id = "abc" AND reason = "contest_won" AND delta > 0`)
	if err != nil {
		t.Fatalf("ParseDiplomaticEventFilter() error = %v", err)
	}
	want := "((nation_id = ? AND reason = ?) AND delta > ?)"
	if cond.Clause != want {
		t.Errorf("Clause = %q, want %q", cond.Clause, want)
	}
	if len(cond.Params) != 3 {
		t.Fatalf("len(Params) = %d, want 3", len(cond.Params))
	}
}

func TestParseDiplomaticEventFilterUnknownField(t *testing.T) {
	if _, err := ParseDiplomaticEventFilter(`territory_id = "D4OUT"`); err == nil {
		t.Fatal("expected error for field outside diplomatic declarations")
	}
}
