package revenuecatwebhook

import (
	"crypto/subtle"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

// Payload is the envelope RevenueCat posts to the webhook URL.
type Payload struct {
	APIVersion string `json:"api_version"`
	Event      *Event `json:"event"`
}

// SubscriberAttribute is a custom attribute set by the app through the SDK.
type SubscriberAttribute struct {
	Value       string `json:"value"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

// Event carries the fields of a RevenueCat webhook event the ledger reads.
type Event struct {
	ID                    string                         `json:"id"`
	Type                  string                         `json:"type"`
	AppUserID             string                         `json:"app_user_id"`
	OriginalAppUserID     string                         `json:"original_app_user_id"`
	Aliases               []string                       `json:"aliases"`
	PeriodType            string                         `json:"period_type"`
	ProductID             string                         `json:"product_id"`
	NewProductID          string                         `json:"new_product_id"`
	EntitlementIDs        []string                       `json:"entitlement_ids"`
	TransactionID         string                         `json:"transaction_id"`
	OriginalTransactionID string                         `json:"original_transaction_id"`
	Environment           string                         `json:"environment"`
	Store                 string                         `json:"store"`
	TrialEndsAt           *time.Time                     `json:"trial_ends_at"`
	ExpiresAt             *time.Time                     `json:"expires_at"`
	ExpirationAtMs        *int64                         `json:"expiration_at_ms"`
	PurchasedAtMs         *int64                         `json:"purchased_at_ms"`
	EventTimestampMs      *int64                         `json:"event_timestamp_ms"`
	SubscriberAttributes  map[string]SubscriberAttribute `json:"subscriber_attributes"`
}

// ParsePayload decodes a webhook body. A body without an event object is
// rejected as malformed.
func ParsePayload(body []byte) (*Event, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid revenuecat payload")
	}
	if payload.Event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "revenuecat payload missing event")
	}
	return payload.Event, nil
}

// VerifyAuthorization checks the shared bearer secret RevenueCat sends in the
// Authorization header. An unset secret is a deployment error.
func VerifyAuthorization(header, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "revenuecat webhook secret not configured")
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authorization")
	}
	token := header
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		token = strings.TrimSpace(header[7:])
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid authorization")
	}
	return nil
}

// NormalizedType resolves the event type and its aliases.
func (e *Event) NormalizedType() enums.RevenueCatEventType {
	return enums.NormalizeRevenueCatEventType(e.Type)
}

// Expiry is the end of the current billing or trial period, if reported.
func (e *Event) Expiry() *time.Time {
	if e.ExpiresAt != nil {
		v := e.ExpiresAt.UTC()
		return &v
	}
	return fromMillis(e.ExpirationAtMs)
}

// InTrial reports whether the purchase started a trial period.
func (e *Event) InTrial() bool {
	return strings.EqualFold(e.PeriodType, "trial") || e.TrialEndsAt != nil
}

// TrialEnd is the explicit trial end, falling back to the period expiry of a
// trial purchase.
func (e *Event) TrialEnd() *time.Time {
	if e.TrialEndsAt != nil {
		v := e.TrialEndsAt.UTC()
		return &v
	}
	if strings.EqualFold(e.PeriodType, "trial") {
		return e.Expiry()
	}
	return nil
}

// ObservedAt is when RevenueCat generated the event, or fallback when absent.
func (e *Event) ObservedAt(fallback time.Time) time.Time {
	if ts := fromMillis(e.EventTimestampMs); ts != nil {
		return *ts
	}
	return fallback.UTC()
}

// candidateIDs lists the identifiers that may name our user, in lookup order.
func (e *Event) candidateIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(e.AppUserID)
	for _, alias := range e.Aliases {
		add(alias)
	}
	add(e.OriginalAppUserID)
	if attr, ok := e.SubscriberAttributes["user_id"]; ok {
		add(attr.Value)
	}
	return ids
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil || *ms <= 0 {
		return nil
	}
	v := time.UnixMilli(*ms).UTC()
	return &v
}
