// Package errors provides structured error handling for the arbitration core.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Stake errors
	CodeStakeAmountInvalid       Code = "STAKE_AMOUNT_INVALID"
	CodeStakeInsufficientBalance Code = "STAKE_INSUFFICIENT_BALANCE"
	CodeStakeNotActive           Code = "STAKE_NOT_ACTIVE"
	CodeStakeLocked              Code = "STAKE_LOCKED"

	// Territory errors
	CodeTerritoryNotFound  Code = "TERRITORY_NOT_FOUND"
	CodeTerritoryEmptyID   Code = "TERRITORY_EMPTY_ID"
	CodeTerritoryUnclaimed Code = "TERRITORY_UNCLAIMED"

	// Nation errors
	CodeNationNotFound Code = "NATION_NOT_FOUND"
	CodeNationEmptyID  Code = "NATION_EMPTY_ID"

	// Alliance errors
	CodeAllianceSelf              Code = "ALLIANCE_SELF"
	CodeAllianceDuplicatePending  Code = "ALLIANCE_DUPLICATE_PENDING"
	CodeAllianceInvalidType       Code = "ALLIANCE_INVALID_TYPE"
	CodeAllianceInvalidTerms      Code = "ALLIANCE_INVALID_TERMS"
	CodeAllianceInvalidTransition Code = "ALLIANCE_INVALID_STATUS_TRANSITION"
	CodeAllianceNotTarget         Code = "ALLIANCE_NOT_TARGET"
	CodeAllianceNotParty          Code = "ALLIANCE_NOT_PARTY"
	CodeAllianceMissingCounter    Code = "ALLIANCE_MISSING_COUNTER_TERMS"
	CodeAllianceInvalidAction     Code = "ALLIANCE_INVALID_ACTION"

	// Contest errors
	CodeContestAlreadyOpen    Code = "CONTEST_ALREADY_OPEN"
	CodeContestNonAggression  Code = "CONTEST_NON_AGGRESSION_PACT"
	CodeContestSelfAttack     Code = "CONTEST_SELF_ATTACK"
	CodeContestNoDefender     Code = "CONTEST_NO_DEFENDER"
	CodeContestNotPending     Code = "CONTEST_NOT_PENDING"
	CodeContestDeadlinePassed Code = "CONTEST_DEADLINE_PASSED"
	CodeContestNotDefender    Code = "CONTEST_NOT_DEFENDER"
	CodeContestBurnRequired   Code = "CONTEST_BURN_REQUIRED"
	CodeContestStaleDefender  Code = "CONTEST_STALE_DEFENDER"

	// Settlement errors
	CodeSettlementFailed          Code = "SETTLEMENT_FAILED"
	CodeSettlementReceiptInvalid  Code = "SETTLEMENT_RECEIPT_INVALID"
	CodeSettlementReceiptExpired  Code = "SETTLEMENT_RECEIPT_EXPIRED"
	CodeSettlementReceiptMismatch Code = "SETTLEMENT_RECEIPT_MISMATCH"
	CodeSettlementReceiptReplayed Code = "SETTLEMENT_RECEIPT_REPLAYED"

	// Listing errors
	CodeInvalidFilter    Code = "INVALID_FILTER"
	CodeInvalidPageToken Code = "INVALID_PAGE_TOKEN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeStakeAmountInvalid,
		CodeTerritoryEmptyID,
		CodeNationEmptyID,
		CodeAllianceSelf,
		CodeAllianceInvalidType,
		CodeAllianceInvalidTerms,
		CodeAllianceMissingCounter,
		CodeAllianceInvalidAction,
		CodeContestSelfAttack,
		CodeContestBurnRequired,
		CodeInvalidFilter,
		CodeInvalidPageToken:
		return codes.InvalidArgument

	// FailedPrecondition - current state doesn't allow the operation
	case CodeStakeInsufficientBalance,
		CodeStakeLocked,
		CodeTerritoryUnclaimed,
		CodeAllianceDuplicatePending,
		CodeAllianceInvalidTransition,
		CodeContestAlreadyOpen,
		CodeContestNonAggression,
		CodeContestNoDefender,
		CodeContestNotPending,
		CodeContestDeadlinePassed,
		CodeContestStaleDefender,
		CodeSettlementReceiptExpired,
		CodeSettlementReceiptReplayed:
		return codes.FailedPrecondition

	// PermissionDenied - wrong caller for the operation
	case CodeAllianceNotTarget,
		CodeAllianceNotParty,
		CodeContestNotDefender:
		return codes.PermissionDenied

	// NotFound
	case CodeTerritoryNotFound,
		CodeNationNotFound,
		CodeStakeNotActive,
		CodeNotFound:
		return codes.NotFound

	// Unavailable - settlement layer failures are retryable by the caller
	case CodeSettlementFailed:
		return codes.Unavailable

	// Unauthenticated - the burn receipt could not be trusted
	case CodeSettlementReceiptInvalid,
		CodeSettlementReceiptMismatch:
		return codes.Unauthenticated

	default:
		return codes.Internal
	}
}
