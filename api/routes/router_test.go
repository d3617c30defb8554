package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v84"

	"github.com/thedailydev/dailydev-backend/internal/answers"
	"github.com/thedailydev/dailydev-backend/internal/ledger"
	revenuecatwebhook "github.com/thedailydev/dailydev-backend/internal/webhooks/revenuecat"
	pkgAuth "github.com/thedailydev/dailydev-backend/pkg/auth"
	"github.com/thedailydev/dailydev-backend/pkg/config"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRedis struct {
	mu      sync.Mutex
	data    map[string]string
	revoked map[string]bool
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: map[string]string{}, revoked: map[string]bool{}}
}

func (s *stubRedis) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("dd:idempotency:%s:%s", scope, id)
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *stubRedis) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[tokenID], nil
}

func (s *stubRedis) RevokeToken(_ context.Context, tokenID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = true
	return nil
}

func (s *stubRedis) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) FetchStatus(_ context.Context, userID uuid.UUID, _ bool) (*ledger.SubscriptionSnapshot, error) {
	return &ledger.SubscriptionSnapshot{UserID: userID, Status: enums.SubscriptionStatusActive}, nil
}

func (stubSessions) Invalidate(uuid.UUID) {}

func (stubSessions) SignOut(uuid.UUID) {}

type countingAnswers struct {
	calls int
}

func (c *countingAnswers) RecordToday(context.Context, uuid.UUID, *string) (answers.RecordResult, error) {
	c.calls++
	return answers.RecordResult{Day: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), Recorded: c.calls == 1}, nil
}

type stubRevenueCat struct{}

func (stubRevenueCat) HandleEvent(context.Context, *revenuecatwebhook.Event) (revenuecatwebhook.Outcome, error) {
	return revenuecatwebhook.OutcomeMutated, nil
}

type stubStripe struct{}

func (stubStripe) HandleEvent(context.Context, *stripe.Event) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App:        config.AppConfig{Env: "dev", Port: "8080"},
		JWT:        config.JWTConfig{Secret: "secret", Issuer: "dailydev", RevocationTTL: time.Hour},
		RevenueCat: config.RevenueCatConfig{WebhookSecret: "rc_secret"},
	}
}

func newTestRouter(t *testing.T, redisStore *stubRedis, answerSvc *countingAnswers) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config:             testConfig(),
		Logger:             logger.New(logger.Options{ServiceName: "test"}),
		DB:                 stubPinger{},
		Redis:              redisStore,
		Gatherer:           prometheus.NewRegistry(),
		RevenueCatWebhooks: stubRevenueCat{},
		StripeWebhooks:     stubStripe{},
		Sessions:           stubSessions{},
		Answers:            answerSvc,
	})
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintUserToken(testConfig().JWT, time.Now(), userID, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t, newStubRedis(), &countingAnswers{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAppRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, newStubRedis(), &countingAnswers{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/subscription"},
		{http.MethodGet, "/api/v1/access"},
		{http.MethodGet, "/api/v1/contributions"},
		{http.MethodPost, "/api/v1/answers"},
		{http.MethodPost, "/api/v1/auth/signout"},
		{http.MethodPost, "/complete-trial-setup"},
	}
	for _, tc := range paths {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tc.method, tc.path, resp.Code)
		}
	}
}

func TestSubscriptionRouteWithToken(t *testing.T) {
	router := newTestRouter(t, newStubRedis(), &countingAnswers{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"has_access":true`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestSignOutRevokesTokenForLaterRequests(t *testing.T) {
	router := newTestRouter(t, newStubRedis(), &countingAnswers{})
	auth := bearer(t, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil)
	req.Header.Set("Authorization", auth)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil)
	req.Header.Set("Authorization", auth)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to get 401, got %d", resp.Code)
	}
}

func TestAnswersRouteReplaysIdempotentRequests(t *testing.T) {
	answerSvc := &countingAnswers{}
	router := newTestRouter(t, newStubRedis(), answerSvc)
	auth := bearer(t, uuid.New())

	var codes []int
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", strings.NewReader(`{"question_id":"q1"}`))
		req.Header.Set("Authorization", auth)
		req.Header.Set("Idempotency-Key", "answer-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if answerSvc.calls != 1 {
		t.Fatalf("expected one service call, got %d", answerSvc.calls)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %v", codes)
	}
}

func TestRevenueCatWebhookRoute(t *testing.T) {
	router := newTestRouter(t, newStubRedis(), &countingAnswers{})
	body := `{"api_version":"1.0","event":{"id":"e1","type":"RENEWAL","app_user_id":"u1"}}`

	req := httptest.NewRequest(http.MethodPost, "/revenuecat-webhook", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/revenuecat-webhook", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer rc_secret")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestStripeWebhookRouteWithoutGuardFails(t *testing.T) {
	router := newTestRouter(t, newStubRedis(), &countingAnswers{})
	req := httptest.NewRequest(http.MethodPost, "/stripe-webhook", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when stripe is not wired, got %d", resp.Code)
	}
}
