package alliance

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

var testNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seqIDs(ids ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		id := ids[i%len(ids)]
		i++
		return id, nil
	}
}

func proposeTest(t *testing.T, typ Type, terms Terms) Alliance {
	t.Helper()
	a, err := Propose(ProposeInput{
		ProposerID: "nation-a",
		TargetID:   "nation-b",
		Type:       typ,
		Terms:      terms,
	}, fixedClock(testNow), seqIDs("alliance-1"))
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	return a
}

func TestProposeDefaults(t *testing.T) {
	a := proposeTest(t, TypeDefense, nil)

	if a.Status != StatusProposed {
		t.Fatalf("expected proposed status, got %s", a.Status)
	}
	if got := a.Terms[TermDefenseBonus]; got != 25 {
		t.Fatalf("expected default defense bonus 25, got %v", got)
	}
	wantExpiry := testNow.Add(30 * 24 * time.Hour)
	if !a.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, a.ExpiresAt)
	}
}

func TestProposeCallerTermsOverrideDefaults(t *testing.T) {
	a := proposeTest(t, TypeDefense, Terms{TermDefenseBonus: 40, TermDurationDays: 7})

	if got := a.Terms[TermDefenseBonus]; got != 40 {
		t.Fatalf("expected overridden bonus 40, got %v", got)
	}
	wantExpiry := testNow.Add(7 * 24 * time.Hour)
	if !a.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, a.ExpiresAt)
	}
}

func TestProposeSelfAlliance(t *testing.T) {
	_, err := Propose(ProposeInput{
		ProposerID: "nation-a",
		TargetID:   "nation-a",
		Type:       TypeTrade,
	}, fixedClock(testNow), seqIDs("x"))
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeAllianceSelf {
		t.Fatalf("expected CodeAllianceSelf, got %v", err)
	}
}

func TestProposeRejectsInvalidTerms(t *testing.T) {
	cases := []struct {
		name  string
		terms Terms
	}{
		{name: "negative bonus", terms: Terms{TermDefenseBonus: -5}},
		{name: "zero duration", terms: Terms{TermDurationDays: 0}},
		{name: "bad key", terms: Terms{"Bad Key": 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Propose(ProposeInput{
				ProposerID: "nation-a",
				TargetID:   "nation-b",
				Type:       TypeDefense,
				Terms:      tc.terms,
			}, fixedClock(testNow), seqIDs("x"))
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeAllianceInvalidTerms {
				t.Fatalf("expected CodeAllianceInvalidTerms, got %v", err)
			}
		})
	}
}

func TestAccept(t *testing.T) {
	a := proposeTest(t, TypeDefense, nil)

	accepted, err := a.Accept("nation-b", testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != StatusActive {
		t.Fatalf("expected active, got %s", accepted.Status)
	}
	if accepted.AcceptedAt == nil {
		t.Fatal("expected acceptance timestamp")
	}
}

func TestAcceptGuards(t *testing.T) {
	a := proposeTest(t, TypeDefense, nil)

	if _, err := a.Accept("nation-a", testNow); !hasCode(err, apperrors.CodeAllianceNotTarget) {
		t.Fatalf("proposer accepting own proposal: got %v", err)
	}
	if _, err := a.Accept("nation-b", a.ExpiresAt); !hasCode(err, apperrors.CodeAllianceInvalidTransition) {
		t.Fatalf("accepting lapsed proposal: got %v", err)
	}

	active, err := a.Accept("nation-b", testNow)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := active.Accept("nation-b", testNow); !hasCode(err, apperrors.CodeAllianceInvalidTransition) {
		t.Fatalf("accepting active alliance: got %v", err)
	}
}

func TestReject(t *testing.T) {
	a := proposeTest(t, TypeTrade, nil)

	rejected, err := a.Reject("nation-b", testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if rejected.TerminatedAt == nil {
		t.Fatal("expected termination timestamp")
	}
}

func TestCounterSwapsRoles(t *testing.T) {
	a := proposeTest(t, TypeFederation, nil)

	countered, proposal, err := a.Counter("nation-b", Terms{TermDurationDays: 14}, fixedClock(testNow.Add(time.Hour)), seqIDs("alliance-2"))
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if countered.Status != StatusCountered {
		t.Fatalf("expected countered original, got %s", countered.Status)
	}
	if proposal.ProposerID != "nation-b" || proposal.TargetID != "nation-a" {
		t.Fatalf("expected swapped roles, got %s -> %s", proposal.ProposerID, proposal.TargetID)
	}
	if proposal.CounteredFromID != a.ID {
		t.Fatalf("expected back-reference to %s, got %s", a.ID, proposal.CounteredFromID)
	}
	if proposal.Status != StatusProposed {
		t.Fatalf("expected fresh proposal, got %s", proposal.Status)
	}
	if got := proposal.Terms[TermDurationDays]; got != 14 {
		t.Fatalf("expected merged duration 14, got %v", got)
	}
}

func TestCounterRequiresTerms(t *testing.T) {
	a := proposeTest(t, TypeTrade, nil)

	_, _, err := a.Counter("nation-b", nil, fixedClock(testNow), seqIDs("x"))
	if !hasCode(err, apperrors.CodeAllianceMissingCounter) {
		t.Fatalf("expected CodeAllianceMissingCounter, got %v", err)
	}
}

func TestBreak(t *testing.T) {
	a := proposeTest(t, TypeDefense, nil)
	active, err := a.Accept("nation-b", testNow)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	broken, err := active.Break("nation-b", testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("break: %v", err)
	}
	if broken.Status != StatusBroken {
		t.Fatalf("expected broken, got %s", broken.Status)
	}

	if _, err := active.Break("nation-c", testNow); !hasCode(err, apperrors.CodeAllianceNotParty) {
		t.Fatalf("outsider breaking alliance: got %v", err)
	}
	if _, err := a.Break("nation-a", testNow); !hasCode(err, apperrors.CodeAllianceInvalidTransition) {
		t.Fatalf("breaking a proposal: got %v", err)
	}
}

func TestExpire(t *testing.T) {
	a := proposeTest(t, TypeDefense, nil)

	if _, err := a.Expire(testNow.Add(time.Hour)); !hasCode(err, apperrors.CodeAllianceInvalidTransition) {
		t.Fatalf("expiring before deadline: got %v", err)
	}

	expired, err := a.Expire(a.ExpiresAt)
	if err != nil {
		t.Fatalf("expire proposal: %v", err)
	}
	if expired.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", expired.Status)
	}

	active, err := a.Accept("nation-b", testNow)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	expired, err = active.Expire(active.ExpiresAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("expire active: %v", err)
	}
	if expired.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", expired.Status)
	}
}

func TestEffectByType(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
		want Effect
	}{
		{name: "trade has no stat effect", typ: TypeTrade, want: Effect{}},
		{name: "defense uses terms bonus", typ: TypeDefense, want: Effect{DefenseBonus: 25}},
		{name: "border has no stat effect", typ: TypeBorder, want: Effect{}},
		{name: "federation uses fixed bonuses", typ: TypeFederation, want: Effect{DefenseBonus: 50, AttackBonus: 25}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := proposeTest(t, tc.typ, nil)
			if got := a.Effect(); got != tc.want {
				t.Fatalf("effect = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNonAggression(t *testing.T) {
	border := proposeTest(t, TypeBorder, nil)
	if !border.NonAggression() {
		t.Fatal("proposed border pact should block aggression")
	}

	defense := proposeTest(t, TypeDefense, nil)
	if defense.NonAggression() {
		t.Fatal("merely proposed defense alliance should not block aggression")
	}
	active, err := defense.Accept("nation-b", testNow)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !active.NonAggression() {
		t.Fatal("active defense alliance should block aggression")
	}
	broken, err := active.Break("nation-a", testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("break: %v", err)
	}
	if broken.NonAggression() {
		t.Fatal("broken alliance should not block aggression")
	}

	trade := proposeTest(t, TypeTrade, nil)
	activeTrade, err := trade.Accept("nation-b", testNow)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if activeTrade.NonAggression() {
		t.Fatal("trade alliance should never block aggression")
	}
}

func TestPairKeyOrdersBothWays(t *testing.T) {
	lo1, hi1 := PairKey("nation-a", "nation-b")
	lo2, hi2 := PairKey("nation-b", "nation-a")
	if lo1 != lo2 || hi1 != hi2 {
		t.Fatalf("pair key must be order independent: (%s,%s) vs (%s,%s)", lo1, hi1, lo2, hi2)
	}
}

func TestParseTypeRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeTrade, TypeDefense, TypeBorder, TypeFederation} {
		parsed, err := ParseType(typ.String())
		if err != nil {
			t.Fatalf("parse %s: %v", typ, err)
		}
		if parsed != typ {
			t.Fatalf("round trip mismatch: %v != %v", parsed, typ)
		}
	}
	if _, err := ParseType("vassalage"); !hasCode(err, apperrors.CodeAllianceInvalidType) {
		t.Fatalf("expected CodeAllianceInvalidType, got %v", err)
	}
}

func hasCode(err error, code apperrors.Code) bool {
	var appErr *apperrors.Error
	return errors.As(err, &appErr) && appErr.Code == code
}
