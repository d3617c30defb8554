package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/internal/testdb"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

func setupLinkedUser(t *testing.T, customer string) (ledger.Repository, uuid.UUID) {
	t.Helper()
	conn := testdb.Open(t)
	repo := ledger.NewRepository(conn)
	userID := testdb.CreateUser(t, conn)
	if err := repo.EnsureRow(context.Background(), userID, nil, nil); err != nil {
		t.Fatalf("ensure row: %v", err)
	}
	if err := repo.Upsert(context.Background(), userID, ledger.Update{
		StripeCustomerID: &customer,
		ObservedAt:       ledger.NeverObserved,
	}); err != nil {
		t.Fatalf("link customer: %v", err)
	}
	return repo, userID
}

func subscriptionEvent(t *testing.T, typ stripe.EventType, sub *stripe.Subscription, created int64) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal subscription: %v", err)
	}
	return &stripe.Event{ID: "evt_" + uuid.NewString(), Type: typ, Created: created, Data: &stripe.EventData{Raw: raw}}
}

func TestHandleSubscriptionCreatedWritesTrial(t *testing.T) {
	repo, userID := setupLinkedUser(t, "cus_1")
	svc, err := NewService(ServiceParams{Ledger: repo, StripeClient: &stubStripeClient{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	trialEnd := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	sub := &stripe.Subscription{
		ID:       "sub_1",
		Status:   stripe.SubscriptionStatusTrialing,
		Customer: &stripe.Customer{ID: "cus_1"},
		TrialEnd: trialEnd.Unix(),
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{CurrentPeriodEnd: trialEnd.Unix()}},
		},
	}
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionCreated, sub, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).Unix())
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	row, err := repo.FindByUserID(context.Background(), userID)
	if err != nil || row == nil {
		t.Fatalf("load row: %v", err)
	}
	if row.Status != enums.SubscriptionStatusTrialing {
		t.Fatalf("expected trialing, got %s", row.Status)
	}
	if row.TrialEnd == nil || !row.TrialEnd.Equal(trialEnd) {
		t.Fatalf("unexpected trial end %v", row.TrialEnd)
	}
	if row.StripeSubscriptionID == nil || *row.StripeSubscriptionID != "sub_1" {
		t.Fatalf("expected subscription id recorded")
	}
}

func TestHandleSubscriptionDeletedDeactivates(t *testing.T) {
	repo, userID := setupLinkedUser(t, "cus_2")
	svc, err := NewService(ServiceParams{Ledger: repo, StripeClient: &stubStripeClient{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	sub := &stripe.Subscription{ID: "sub_2", Status: stripe.SubscriptionStatusCanceled, Customer: &stripe.Customer{ID: "cus_2"}}
	if err := svc.HandleEvent(context.Background(), subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionDeleted, sub, time.Now().Unix())); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	row, _ := repo.FindByUserID(context.Background(), userID)
	if row.Status != enums.SubscriptionStatusInactive || row.EntitlementStatus != enums.EntitlementStatusExpired {
		t.Fatalf("expected inactive/expired, got %s/%s", row.Status, row.EntitlementStatus)
	}
}

func TestHandleInvoiceEventFetchesStripe(t *testing.T) {
	repo, userID := setupLinkedUser(t, "cus_3")
	client := &stubStripeClient{
		getResp: &stripe.Subscription{
			ID:       "sub_invoice",
			Status:   stripe.SubscriptionStatusPastDue,
			Customer: &stripe.Customer{ID: "cus_3"},
		},
	}
	svc, err := NewService(ServiceParams{Ledger: repo, StripeClient: client})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		ID:   "evt_invoice",
		Type: stripe.EventTypeInvoicePaymentFailed,
		Data: &stripe.EventData{
			Object: map[string]interface{}{"subscription": "sub_invoice"},
		},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if client.lastID != "sub_invoice" {
		t.Fatalf("expected subscription fetched, got %q", client.lastID)
	}
	row, _ := repo.FindByUserID(context.Background(), userID)
	if row.Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due, got %s", row.Status)
	}
}

func TestHandleEventUnknownCustomer(t *testing.T) {
	repo, _ := setupLinkedUser(t, "cus_known")
	svc, err := NewService(ServiceParams{Ledger: repo, StripeClient: &stubStripeClient{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	sub := &stripe.Subscription{ID: "sub_x", Status: stripe.SubscriptionStatusActive, Customer: &stripe.Customer{ID: "cus_other"}}
	err = svc.HandleEvent(context.Background(), subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionUpdated, sub, time.Now().Unix()))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[stripe.SubscriptionStatus]enums.SubscriptionStatus{
		stripe.SubscriptionStatusTrialing:          enums.SubscriptionStatusTrialing,
		stripe.SubscriptionStatusActive:            enums.SubscriptionStatusActive,
		stripe.SubscriptionStatusPastDue:           enums.SubscriptionStatusPastDue,
		stripe.SubscriptionStatusUnpaid:            enums.SubscriptionStatusPastDue,
		stripe.SubscriptionStatusPaused:            enums.SubscriptionStatusPaused,
		stripe.SubscriptionStatusCanceled:          enums.SubscriptionStatusInactive,
		stripe.SubscriptionStatusIncomplete:        enums.SubscriptionStatusInactive,
		stripe.SubscriptionStatusIncompleteExpired: enums.SubscriptionStatusInactive,
	}
	for in, want := range cases {
		if got, _ := MapStatus(in); got != want {
			t.Fatalf("MapStatus(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestIdempotencyGuard(t *testing.T) {
	store := newInMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	dup, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil || dup {
		t.Fatalf("first claim: dup=%v err=%v", dup, err)
	}
	dup, _ = guard.CheckAndMark(context.Background(), "evt_1")
	if !dup {
		t.Fatalf("expected duplicate on second claim")
	}
	if err := guard.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	dup, _ = guard.CheckAndMark(context.Background(), "evt_1")
	if dup {
		t.Fatalf("expected claim after release")
	}
	if _, err := NewIdempotencyGuard(nil, time.Minute, "x"); err == nil {
		t.Fatalf("expected nil store error")
	}
}

type stubStripeClient struct {
	getResp *stripe.Subscription
	lastID  string
}

func (s *stubStripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	s.lastID = id
	return s.getResp, nil
}

func TestCreatedEventAfterTrialSetupKeepsNewerState(t *testing.T) {
	repo, userID := setupLinkedUser(t, "cus_4")
	svc, err := NewService(ServiceParams{Ledger: repo, StripeClient: &stubStripeClient{}})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	setupAt := time.Date(2026, 3, 1, 0, 0, 2, 0, time.UTC)
	trialing := enums.SubscriptionStatusTrialing
	if err := repo.Upsert(context.Background(), userID, ledger.Update{Status: &trialing, ObservedAt: setupAt}); err != nil {
		t.Fatalf("seed trial: %v", err)
	}

	sub := &stripe.Subscription{ID: "sub_4", Status: stripe.SubscriptionStatusIncomplete, Customer: &stripe.Customer{ID: "cus_4"}}
	event := subscriptionEvent(t, stripe.EventTypeCustomerSubscriptionCreated, sub, setupAt.Add(-2*time.Second).Unix())
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	row, _ := repo.FindByUserID(context.Background(), userID)
	if row.Status != enums.SubscriptionStatusTrialing {
		t.Fatalf("older event overwrote status: %s", row.Status)
	}
	if row.StripeSubscriptionID == nil || *row.StripeSubscriptionID != "sub_4" {
		t.Fatalf("expected subscription id recorded from older event")
	}
}
