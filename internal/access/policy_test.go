package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

var (
	friday   = time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)
	thursday = time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
)

func snapshotWith(status enums.SubscriptionStatus) *ledger.SubscriptionSnapshot {
	return &ledger.SubscriptionSnapshot{Status: status}
}

func TestCanAccessTruthTable(t *testing.T) {
	statuses := []enums.SubscriptionStatus{
		enums.SubscriptionStatusInactive,
		enums.SubscriptionStatusTrialing,
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusPaused,
	}
	for _, status := range statuses {
		for _, answered := range []bool{false, true} {
			for _, day := range []time.Time{friday, thursday} {
				got := CanAccess(snapshotWith(status), answered, day, time.Friday)
				want := status.GrantsAccess() || !answered || day.Weekday() == time.Friday
				if got != want {
					t.Fatalf("CanAccess(%s, answered=%v, %s) = %v, want %v", status, answered, day.Weekday(), got, want)
				}
			}
		}
	}
}

func TestCanAccessWithoutSnapshot(t *testing.T) {
	if CanAccess(nil, true, thursday, time.Friday) {
		t.Fatalf("missing snapshot must not grant access on a paid day")
	}
	if !CanAccess(nil, false, thursday, time.Friday) {
		t.Fatalf("first question is always free")
	}
	if !CanAccess(nil, true, friday, time.Friday) {
		t.Fatalf("free day grants access")
	}
}

func TestEvaluateReasonOrder(t *testing.T) {
	if r := Evaluate(snapshotWith(enums.SubscriptionStatusActive), false, friday, time.Friday); r != ReasonSubscribed {
		t.Fatalf("expected subscribed first, got %s", r)
	}
	if r := Evaluate(snapshotWith(enums.SubscriptionStatusPastDue), false, friday, time.Friday); r != ReasonFirstQuestion {
		t.Fatalf("expected first question, got %s", r)
	}
	if r := Evaluate(snapshotWith(enums.SubscriptionStatusPaused), true, thursday, time.Friday); r != ReasonPaywall {
		t.Fatalf("expected paywall, got %s", r)
	}
}

func TestServiceUsesConfiguredTimezone(t *testing.T) {
	// 02:00 UTC Friday is still Thursday in UTC-5.
	clock := func() time.Time { return time.Date(2026, 1, 9, 2, 0, 0, 0, time.UTC) }
	svc, err := NewService(ServiceParams{
		Snapshots: stubSnapshots{snapshot: snapshotWith(enums.SubscriptionStatusInactive)},
		Answers:   stubAnswers{answered: true},
		FreeDay:   time.Friday,
		Location:  time.FixedZone("UTC-5", -5*3600),
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	decision, err := svc.CanAccessQuestions(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonPaywall {
		t.Fatalf("expected paywall, got %+v", decision)
	}
	if decision.Today != "2026-01-08" {
		t.Fatalf("unexpected today %s", decision.Today)
	}
}

func TestServiceSurfacesErrors(t *testing.T) {
	svc, _ := NewService(ServiceParams{
		Snapshots: stubSnapshots{err: errors.New("ledger down")},
		Answers:   stubAnswers{},
		FreeDay:   time.Friday,
	})
	if _, err := svc.CanAccessQuestions(context.Background(), uuid.New()); err == nil {
		t.Fatalf("expected error")
	}
}

type stubSnapshots struct {
	snapshot *ledger.SubscriptionSnapshot
	err      error
}

func (s stubSnapshots) FetchStatus(ctx context.Context, userID uuid.UUID, forceRefresh bool) (*ledger.SubscriptionSnapshot, error) {
	return s.snapshot, s.err
}

type stubAnswers struct {
	answered bool
}

func (s stubAnswers) HasEverAnswered(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.answered, nil
}
