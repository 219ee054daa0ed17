package stake

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateValid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, err := Create(CreateInput{
		TerritoryID: "D4OUT",
		NationID:    "nation-a",
		StakerID:    "wallet-1",
		Amount:      500,
	}, fixedClock(now), func() (string, error) { return "stake-1", nil })
	if err != nil {
		t.Fatalf("create stake: %v", err)
	}
	if !s.Active {
		t.Fatal("expected new stake to be active")
	}
	if s.ID != "stake-1" || s.Amount != 500 {
		t.Fatalf("unexpected stake %+v", s)
	}
	if !s.CreatedAt.Equal(now) || !s.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps %v, got %v / %v", now, s.CreatedAt, s.UpdatedAt)
	}
	if s.DeactivatedReason != ReasonNone {
		t.Fatalf("expected no deactivation reason, got %q", s.DeactivatedReason)
	}
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []int64{0, -5} {
		_, err := Create(CreateInput{
			TerritoryID: "D4OUT",
			NationID:    "nation-a",
			StakerID:    "wallet-1",
			Amount:      amount,
		}, nil, nil)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeStakeAmountInvalid {
			t.Fatalf("amount %d: expected CodeStakeAmountInvalid, got %v", amount, err)
		}
	}
}

func TestCreateRejectsEmptyRefs(t *testing.T) {
	_, err := Create(CreateInput{NationID: "n", StakerID: "s", Amount: 1}, nil, nil)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeTerritoryEmptyID {
		t.Fatalf("expected CodeTerritoryEmptyID, got %v", err)
	}

	_, err = Create(CreateInput{TerritoryID: "D4OUT", StakerID: "s", Amount: 1}, nil, nil)
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeNationEmptyID {
		t.Fatalf("expected CodeNationEmptyID, got %v", err)
	}
}

func TestLocked(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	if (Stake{}).Locked(now) {
		t.Fatal("stake without lock should not be locked")
	}
	if !(Stake{LockedUntil: &later}).Locked(now) {
		t.Fatal("stake locked until the future should be locked")
	}
	if (Stake{LockedUntil: &earlier}).Locked(now) {
		t.Fatal("stake with elapsed lock should not be locked")
	}
}
