// Package storage defines the persistence contract for the arbitration core.
//
// Store implementations must apply each composite operation atomically: a
// contest resolution touches the contest row, the territory, multiple stake
// rows, two nation rows, and two audit tables, and either all of those
// commit or none do.
package storage

import (
	"context"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/domain/alliance"
	"github.com/roadwars/roadwars/internal/arbiter/domain/contest"
	"github.com/roadwars/roadwars/internal/arbiter/domain/nation"
	"github.com/roadwars/roadwars/internal/arbiter/domain/stake"
	"github.com/roadwars/roadwars/internal/arbiter/domain/standing"
	"github.com/roadwars/roadwars/internal/arbiter/domain/territory"
	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrOpenContestExists indicates an attack tried to open a second contest
// on a territory that already has one pending or active.
var ErrOpenContestExists = apperrors.New(apperrors.CodeContestAlreadyOpen, "territory already has an open contest")

// ErrOpenAllianceExists indicates a proposal tried to open a second
// proposed or active alliance between the same pair of nations.
var ErrOpenAllianceExists = apperrors.New(apperrors.CodeAllianceDuplicatePending, "nations already have an open alliance")

// ErrStaleDefender indicates a contest insert named a defender who no
// longer controls the territory; control moved between the caller's read
// and the insert.
var ErrStaleDefender = apperrors.New(apperrors.CodeContestStaleDefender, "territory control changed since the attack was declared")

// ErrContestNotOpen indicates a resolution lost the race: the contest row
// was already resolved (or defended) by the time the update ran.
var ErrContestNotOpen = apperrors.New(apperrors.CodeContestNotPending, "contest is no longer open")

// ErrAllianceNotOpen indicates an alliance transition lost the race: the
// row was no longer in the expected prior status.
var ErrAllianceNotOpen = apperrors.New(apperrors.CodeAllianceInvalidTransition, "alliance is no longer in the expected status")

// ErrReceiptReplayed indicates a burn receipt jti was already consumed.
var ErrReceiptReplayed = apperrors.New(apperrors.CodeSettlementReceiptReplayed, "burn receipt was already used")

// TerritoryStore owns the registry of contestable territories.
type TerritoryStore interface {
	// PutTerritory inserts or replaces a territory record (world seeding).
	PutTerritory(ctx context.Context, t territory.Territory) error
	GetTerritory(ctx context.Context, id string) (territory.Territory, error)
	ListTerritories(ctx context.Context) ([]territory.Territory, error)
}

// NationStore owns nation identity and derived statistics.
type NationStore interface {
	PutNation(ctx context.Context, n nation.Nation) error
	GetNation(ctx context.Context, id string) (nation.Nation, error)
	ListNations(ctx context.Context) ([]nation.Nation, error)
}

// StakeStore owns stake rows and keeps Territory.TotalStaked equal to the
// sum of active stake amounts at every commit boundary.
type StakeStore interface {
	// CreateStake records a settlement-confirmed stake and increments the
	// territory's total. When the (territory, nation, staker) triple
	// already has an active stake, the amounts merge into the existing row
	// and the merged record is returned.
	CreateStake(ctx context.Context, s stake.Stake) (stake.Stake, error)
	GetActiveStake(ctx context.Context, territoryID, nationID, stakerID string) (stake.Stake, error)
	ListActiveStakes(ctx context.Context, territoryID string) ([]stake.Stake, error)
	// DeactivateStake marks the active stake for the triple as withdrawn
	// and decrements the territory's total, returning the amount released.
	DeactivateStake(ctx context.Context, territoryID, nationID, stakerID string, reason stake.DeactivationReason, now time.Time) (int64, error)
}

// RatingChange adjusts one nation's combat ratings. Negative deltas floor
// at zero; ratings never go negative.
type RatingChange struct {
	NationID     string
	DefenseDelta int64
	AttackDelta  int64
}

// CountChange adjusts one nation's territory count. Negative deltas floor
// at zero.
type CountChange struct {
	NationID string
	Delta    int64
}

// AllianceStore owns the alliance state machine rows and applies the
// diplomatic side effects of each transition in the same transaction.
type AllianceStore interface {
	// CreateAlliance inserts a new proposal and appends its standing
	// adjustments. Returns ErrOpenAllianceExists when the pair already has
	// a proposed or active alliance.
	CreateAlliance(ctx context.Context, a alliance.Alliance, adjustments []standing.Event) error
	GetAlliance(ctx context.Context, id string) (alliance.Alliance, error)
	// ListOpenAlliancesBetween returns proposed and active alliances
	// between the pair, in either role order.
	ListOpenAlliancesBetween(ctx context.Context, nationA, nationB string) ([]alliance.Alliance, error)
	// TransitionAlliance persists an accept/reject/break/expire result.
	// The row must still be in priorStatus or ErrAllianceNotOpen is
	// returned. Rating changes and standing adjustments apply atomically
	// with the status change.
	TransitionAlliance(ctx context.Context, a alliance.Alliance, priorStatus alliance.Status, ratings []RatingChange, adjustments []standing.Event) error
	// CounterAlliance terminates the original proposal as countered and
	// inserts the swapped-role proposal in one transaction.
	CounterAlliance(ctx context.Context, countered alliance.Alliance, proposal alliance.Alliance, adjustments []standing.Event) error
	// ListLapsedOpenAlliances returns proposed and active alliances whose
	// expiry has passed at now.
	ListLapsedOpenAlliances(ctx context.Context, now time.Time) ([]alliance.Alliance, error)
}

// ContestResolution is the full set of mutations one resolved contest
// applies. The store commits all of it in a single transaction.
type ContestResolution struct {
	// Contest is the resolved row to persist.
	Contest contest.Contest
	// RequireUndefended restricts the update to a pending contest with no
	// defense burn and a passed deadline. The timeout sweep sets this so a
	// concurrent SubmitDefense wins the race cleanly.
	RequireUndefended bool
	// Transferred marks an attacker win: control moves to the attacker,
	// the defense level decays, the staked total resets, and the
	// territory's active stakes are liquidated. When false the territory
	// row is left alone so stakes committed after the contest opened keep
	// their total intact.
	Transferred bool
	// DefenseDecay is subtracted from the territory's defense level on
	// transfer, flooring at zero.
	DefenseDecay int64
	// Forfeited marks a timeout resolution with no defense submitted.
	Forfeited bool
	// Counts adjusts territory counts for winner and loser.
	Counts []CountChange
	// Adjustments are the standing events for winner and loser.
	Adjustments []standing.Event
}

// ContestStore owns contest rows and the resolution commit.
type ContestStore interface {
	// CreateContest inserts a new pending contest. The territory's current
	// controller is re-checked in the same transaction: ErrStaleDefender is
	// returned when it no longer matches the contest's defender, and
	// ErrOpenContestExists when the territory already has an open contest.
	CreateContest(ctx context.Context, c contest.Contest) error
	GetContest(ctx context.Context, id string) (contest.Contest, error)
	// GetOpenContest returns the pending or active contest on a territory,
	// or ErrNotFound when none is open.
	GetOpenContest(ctx context.Context, territoryID string) (contest.Contest, error)
	// ResolveContest applies a resolution atomically. Returns
	// ErrContestNotOpen when the row was already resolved.
	ResolveContest(ctx context.Context, res ContestResolution) error
	// ListExpiredPendingContests returns pending contests whose defense
	// deadline has passed at now with no defense burn recorded.
	ListExpiredPendingContests(ctx context.Context, now time.Time) ([]contest.Contest, error)
}

// TerritoryEvent is the append-only audit record of one contest outcome.
type TerritoryEvent struct {
	Seq               int64
	ID                string
	TerritoryID       string
	ContestID         string
	AttackerNationID  string
	DefenderNationID  string
	AttackPower       int64
	DefensePower      int64
	WinnerNationID    string
	Transferred       bool
	Forfeited         bool
	OccurredAt        time.Time
}

// DiplomaticEvent is the append-only audit record of one standing
// adjustment.
type DiplomaticEvent struct {
	Seq           int64
	ID            string
	NationID      string
	Reason        standing.Reason
	Delta         int64
	StandingAfter int64
	AllianceID    string
	ContestID     string
	OccurredAt    time.Time
}

// ListEventsRequest describes one page of an event listing. Filter is an
// AIP-160 expression compiled by the caller into Where.
type ListEventsRequest struct {
	// Where is an optional SQL condition fragment with positional params.
	Where       string
	WhereParams []any
	// Filter is the raw filter string, recorded in page tokens so a cursor
	// cannot be replayed against a different filter.
	Filter    string
	PageSize  int
	PageToken string
}

// TerritoryEventPage is one page of territory events in sequence order.
type TerritoryEventPage struct {
	Events        []TerritoryEvent
	NextPageToken string
}

// DiplomaticEventPage is one page of diplomatic events in sequence order.
type DiplomaticEventPage struct {
	Events        []DiplomaticEvent
	NextPageToken string
}

// EventStore owns the append-only audit tables. Appends happen inside the
// composite operations above; this interface only reads.
type EventStore interface {
	ListTerritoryEvents(ctx context.Context, req ListEventsRequest) (TerritoryEventPage, error)
	ListDiplomaticEvents(ctx context.Context, req ListEventsRequest) (DiplomaticEventPage, error)
}

// ReceiptStore tracks consumed burn receipts for replay protection.
type ReceiptStore interface {
	// RecordBurnReceipt consumes a receipt jti. Returns ErrReceiptReplayed
	// when the jti was already recorded.
	RecordBurnReceipt(ctx context.Context, receiptID, ownerRef string, amount int64, expiresAt, now time.Time) error
}

// Store is the full persistence surface the arbitration engine requires.
type Store interface {
	TerritoryStore
	NationStore
	StakeStore
	AllianceStore
	ContestStore
	EventStore
	ReceiptStore
}
