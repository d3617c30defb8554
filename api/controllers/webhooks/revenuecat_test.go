package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	revenuecatwebhook "github.com/thedailydev/dailydev-backend/internal/webhooks/revenuecat"
)

type fakeRevenueCatService struct {
	calls   int
	last    *revenuecatwebhook.Event
	outcome revenuecatwebhook.Outcome
	err     error
}

func (f *fakeRevenueCatService) HandleEvent(ctx context.Context, evt *revenuecatwebhook.Event) (revenuecatwebhook.Outcome, error) {
	f.calls++
	f.last = evt
	return f.outcome, f.err
}

const rcBody = `{"api_version":"1.0","event":{"id":"evt_1","type":"RENEWAL","app_user_id":"user-1","period_type":"NORMAL","expiration_at_ms":1767225600000}}`

func postRevenueCat(handler http.Handler, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/revenuecat-webhook", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRevenueCatWebhookAppliesEvent(t *testing.T) {
	svc := &fakeRevenueCatService{outcome: revenuecatwebhook.OutcomeMutated}
	rec := postRevenueCat(RevenueCatWebhook(svc, "rc_secret", nil), "Bearer rc_secret", rcBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 || svc.last == nil || svc.last.Type != "RENEWAL" {
		t.Fatalf("expected event forwarded, got %+v", svc.last)
	}
}

func TestRevenueCatWebhookAcknowledgesNoOps(t *testing.T) {
	svc := &fakeRevenueCatService{outcome: revenuecatwebhook.OutcomeNoOpUnknownUser}
	rec := postRevenueCat(RevenueCatWebhook(svc, "rc_secret", nil), "Bearer rc_secret", rcBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRevenueCatWebhookRejectsBadSecret(t *testing.T) {
	svc := &fakeRevenueCatService{}
	handler := RevenueCatWebhook(svc, "rc_secret", nil)

	if rec := postRevenueCat(handler, "", rcBody); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header got %d", rec.Code)
	}
	if rec := postRevenueCat(handler, "Bearer nope", rcBody); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not run for unauthenticated calls")
	}
}

func TestRevenueCatWebhookUnconfiguredSecretIs500(t *testing.T) {
	rec := postRevenueCat(RevenueCatWebhook(&fakeRevenueCatService{}, "", nil), "Bearer anything", rcBody)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}

func TestRevenueCatWebhookRejectsMalformedBody(t *testing.T) {
	svc := &fakeRevenueCatService{}
	handler := RevenueCatWebhook(svc, "rc_secret", nil)

	if rec := postRevenueCat(handler, "Bearer rc_secret", `{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if rec := postRevenueCat(handler, "Bearer rc_secret", `{"api_version":"1.0"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing event got %d", rec.Code)
	}
}
