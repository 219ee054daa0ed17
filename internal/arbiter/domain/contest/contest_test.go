package contest

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

var testNow = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func initiateTest(t *testing.T, tokens, attackRating int64) Contest {
	t.Helper()
	c, err := Initiate(InitiateInput{
		TerritoryID:      "D4OUT",
		AttackerNationID: "nation-a",
		DefenderNationID: "nation-b",
		TokensBurned:     tokens,
		AttackRating:     attackRating,
	}, fixedClock(testNow), func() (string, error) { return "contest-1", nil })
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return c
}

func TestInitiate(t *testing.T) {
	c := initiateTest(t, 5, 10)

	if c.Status != StatusPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if want := int64(5*10 + 10); c.AttackPower != want {
		t.Fatalf("attack power = %d, want %d", c.AttackPower, want)
	}
	if want := testNow.Add(24 * time.Hour); !c.DefenseDeadline.Equal(want) {
		t.Fatalf("deadline = %v, want %v", c.DefenseDeadline, want)
	}
	if c.DefensePower != nil {
		t.Fatal("defense power must be nil until computed")
	}
	if c.TokensBurnedDefense != 0 {
		t.Fatal("defense burn must start at zero")
	}
}

func TestInitiateGuards(t *testing.T) {
	_, err := Initiate(InitiateInput{
		TerritoryID:      "D4OUT",
		AttackerNationID: "nation-a",
		DefenderNationID: "nation-a",
		TokensBurned:     5,
	}, fixedClock(testNow), nil)
	if !hasCode(err, apperrors.CodeContestSelfAttack) {
		t.Fatalf("self attack: got %v", err)
	}

	_, err = Initiate(InitiateInput{
		TerritoryID:      "D4OUT",
		AttackerNationID: "nation-a",
		DefenderNationID: "nation-b",
		TokensBurned:     0,
	}, fixedClock(testNow), nil)
	if !hasCode(err, apperrors.CodeContestBurnRequired) {
		t.Fatalf("zero burn: got %v", err)
	}
}

func TestSubmitDefenseDefenderWins(t *testing.T) {
	c := initiateTest(t, 5, 10) // attack power 60

	outcome, err := c.SubmitDefense("nation-b", 4, 8, 5, 20, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("submit defense: %v", err)
	}
	// defense power 4*10 + 8 + 5 + 20 = 73 > 60
	if outcome.Transferred {
		t.Fatal("defender should retain control")
	}
	if outcome.Winner() != "nation-b" || outcome.Loser() != "nation-a" {
		t.Fatalf("unexpected winner/loser %s/%s", outcome.Winner(), outcome.Loser())
	}
	if outcome.Contest.Status != StatusResolved {
		t.Fatalf("expected resolved, got %s", outcome.Contest.Status)
	}
	if outcome.Contest.DefensePower == nil || *outcome.Contest.DefensePower != 73 {
		t.Fatalf("defense power = %v, want 73", outcome.Contest.DefensePower)
	}
	if outcome.Forfeited {
		t.Fatal("explicit defense is not a forfeit")
	}
}

func TestSubmitDefenseAttackerWins(t *testing.T) {
	c := initiateTest(t, 10, 15) // attack power 115

	outcome, err := c.SubmitDefense("nation-b", 1, 5, 5, 10, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("submit defense: %v", err)
	}
	// defense power 10 + 5 + 5 + 10 = 30 < 115
	if !outcome.Transferred {
		t.Fatal("attacker should win")
	}
	if outcome.Winner() != "nation-a" {
		t.Fatalf("winner = %s, want nation-a", outcome.Winner())
	}
}

func TestTiesFavorTheDefender(t *testing.T) {
	c := initiateTest(t, 5, 0) // attack power 50

	outcome, err := c.SubmitDefense("nation-b", 5, 0, 0, 0, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("submit defense: %v", err)
	}
	// defense power 50 == attack power 50
	if outcome.Transferred {
		t.Fatal("ties must favor the defender")
	}
	if outcome.Winner() != "nation-b" {
		t.Fatalf("winner = %s, want nation-b", outcome.Winner())
	}
}

func TestSubmitDefenseGuards(t *testing.T) {
	c := initiateTest(t, 5, 10)

	if _, err := c.SubmitDefense("nation-c", 1, 0, 0, 0, testNow); !hasCode(err, apperrors.CodeContestNotDefender) {
		t.Fatalf("non-defender: got %v", err)
	}
	if _, err := c.SubmitDefense("nation-b", 1, 0, 0, 0, c.DefenseDeadline); !hasCode(err, apperrors.CodeContestDeadlinePassed) {
		t.Fatalf("late defense: got %v", err)
	}
	if _, err := c.SubmitDefense("nation-b", 0, 0, 0, 0, testNow); !hasCode(err, apperrors.CodeContestBurnRequired) {
		t.Fatalf("zero burn: got %v", err)
	}

	resolved, err := c.SubmitDefense("nation-b", 1, 0, 0, 0, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("submit defense: %v", err)
	}
	if _, err := resolved.Contest.SubmitDefense("nation-b", 1, 0, 0, 0, testNow.Add(2*time.Hour)); !hasCode(err, apperrors.CodeContestNotPending) {
		t.Fatalf("double defense: got %v", err)
	}
}

func TestResolveByTimeout(t *testing.T) {
	c := initiateTest(t, 5, 10)

	outcome, err := c.ResolveByTimeout(c.DefenseDeadline.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve by timeout: %v", err)
	}
	if !outcome.Forfeited {
		t.Fatal("timeout resolution is a forfeit")
	}
	if !outcome.Transferred {
		t.Fatal("attacker with positive power must win a forfeit")
	}
	if outcome.Contest.DefensePower == nil || *outcome.Contest.DefensePower != 0 {
		t.Fatalf("forfeit defense power = %v, want 0", outcome.Contest.DefensePower)
	}
}

func TestResolveByTimeoutGuards(t *testing.T) {
	c := initiateTest(t, 5, 10)

	if _, err := c.ResolveByTimeout(testNow.Add(time.Hour)); !hasCode(err, apperrors.CodeContestDeadlinePassed) {
		t.Fatalf("early timeout: got %v", err)
	}

	withDefense := c
	withDefense.TokensBurnedDefense = 3
	if _, err := withDefense.ResolveByTimeout(c.DefenseDeadline.Add(time.Minute)); !hasCode(err, apperrors.CodeContestNotPending) {
		t.Fatalf("timeout with defense submitted: got %v", err)
	}

	outcome, err := c.ResolveByTimeout(c.DefenseDeadline)
	if err != nil {
		t.Fatalf("resolve by timeout: %v", err)
	}
	if _, err := outcome.Contest.ResolveByTimeout(c.DefenseDeadline.Add(time.Hour)); !hasCode(err, apperrors.CodeContestNotPending) {
		t.Fatalf("double timeout resolution: got %v", err)
	}
}

func hasCode(err error, code apperrors.Code) bool {
	var appErr *apperrors.Error
	return errors.As(err, &appErr) && appErr.Code == code
}
