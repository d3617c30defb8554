package revenuecat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/thedailydev/dailydev-backend/pkg/config"
)

const defaultBaseURL = "https://api.revenuecat.com"

// ErrSubscriberNotFound is returned when RevenueCat has no record of the app user.
var ErrSubscriberNotFound = errors.New("revenuecat subscriber not found")

// Client reads subscriber state from the RevenueCat REST API (v1).
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient builds a client from config. httpClient may be nil.
func NewClient(cfg config.RevenueCatConfig, httpClient *http.Client) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errors.New("revenuecat secret key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: base, secretKey: secret}, nil
}

// Entitlement is one entitlement joined with the subscription backing it.
type Entitlement struct {
	ID           string
	ProductID    string
	PurchasedAt  *time.Time
	ExpiresAt    *time.Time
	PeriodType   string
	WillRenew    bool
	BillingIssue bool
}

// IsActive reports whether the entitlement is unexpired at now. A nil expiry
// is a lifetime grant.
func (e Entitlement) IsActive(now time.Time) bool {
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}

// InTrial reports whether the backing subscription is in its trial period.
func (e Entitlement) InTrial() bool {
	return strings.EqualFold(e.PeriodType, "trial")
}

// Subscriber is the normalized GET /v1/subscribers/{id} payload.
type Subscriber struct {
	AppUserID         string
	OriginalAppUserID string
	Entitlements      []Entitlement
	// RequestDate is RevenueCat's time for this response, when reported.
	RequestDate *time.Time
}

// ObservedAt is when RevenueCat produced this view of the subscriber, or
// fallback when the response carried no request date.
func (s *Subscriber) ObservedAt(fallback time.Time) time.Time {
	if s != nil && s.RequestDate != nil {
		return s.RequestDate.UTC()
	}
	return fallback.UTC()
}

// Entitlement returns the entitlement with id, if present.
func (s *Subscriber) Entitlement(id string) (Entitlement, bool) {
	if s == nil {
		return Entitlement{}, false
	}
	for _, ent := range s.Entitlements {
		if ent.ID == id {
			return ent, true
		}
	}
	return Entitlement{}, false
}

type subscriberEnvelope struct {
	RequestDate *string `json:"request_date"`
	Subscriber  struct {
		OriginalAppUserID string                          `json:"original_app_user_id"`
		Entitlements      map[string]entitlementPayload  `json:"entitlements"`
		Subscriptions     map[string]subscriptionPayload `json:"subscriptions"`
	} `json:"subscriber"`
}

type entitlementPayload struct {
	ExpiresDate       *string `json:"expires_date"`
	PurchaseDate      *string `json:"purchase_date"`
	ProductIdentifier string  `json:"product_identifier"`
}

type subscriptionPayload struct {
	PeriodType              string  `json:"period_type"`
	UnsubscribeDetectedAt   *string `json:"unsubscribe_detected_at"`
	BillingIssuesDetectedAt *string `json:"billing_issues_detected_at"`
}

// GetSubscriber fetches the subscriber for appUserID.
func (c *Client) GetSubscriber(ctx context.Context, appUserID string) (*Subscriber, error) {
	appUserID = strings.TrimSpace(appUserID)
	if appUserID == "" {
		return nil, errors.New("app user id is required")
	}

	endpoint := c.baseURL + "/v1/subscribers/" + url.PathEscape(appUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revenuecat request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrSubscriberNotFound
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("revenuecat api status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var envelope subscriberEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode revenuecat subscriber: %w", err)
	}
	return envelope.normalize(appUserID), nil
}

func (e subscriberEnvelope) normalize(appUserID string) *Subscriber {
	out := &Subscriber{
		AppUserID:         appUserID,
		OriginalAppUserID: e.Subscriber.OriginalAppUserID,
		RequestDate:       parseTime(e.RequestDate),
	}
	for id, ent := range e.Subscriber.Entitlements {
		item := Entitlement{
			ID:          id,
			ProductID:   ent.ProductIdentifier,
			PurchasedAt: parseTime(ent.PurchaseDate),
			ExpiresAt:   parseTime(ent.ExpiresDate),
			WillRenew:   true,
		}
		if sub, ok := e.Subscriber.Subscriptions[ent.ProductIdentifier]; ok {
			item.PeriodType = sub.PeriodType
			item.WillRenew = sub.UnsubscribeDetectedAt == nil
			item.BillingIssue = sub.BillingIssuesDetectedAt != nil
		}
		out.Entitlements = append(out.Entitlements, item)
	}
	sort.Slice(out.Entitlements, func(i, j int) bool {
		return out.Entitlements[i].ID < out.Entitlements[j].ID
	})
	return out
}

func parseTime(raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
