package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/internal/reconcile"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/db/models"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/metrics"
	"github.com/thedailydev/dailydev-backend/pkg/revenuecat"
)

const (
	subscriptionSweepJobName = "subscription-sweep"
	defaultSweepLimit        = 200
)

type cacheInvalidator interface {
	Invalidate(userID uuid.UUID)
}

// SubscriptionSweepJobParams configures the lapsed-subscription sweep.
type SubscriptionSweepJobParams struct {
	Logger        *logger.Logger
	Ledger        ledger.Repository
	Provider      reconcile.SubscriberSource
	EntitlementID string
	Sessions      cacheInvalidator
	Metrics       *metrics.CronJobMetrics
	Limit         int
	Now           func() time.Time
}

// NewSubscriptionSweepJob builds the job that re-checks rows whose trial or
// billing period has ended without a webhook moving them on.
func NewSubscriptionSweepJob(params SubscriptionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("subscriber source required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &subscriptionSweepJob{
		logg:          params.Logger,
		ledger:        params.Ledger,
		provider:      params.Provider,
		entitlementID: params.EntitlementID,
		sessions:      params.Sessions,
		metrics:       params.Metrics,
		limit:         limit,
		now:           now,
	}, nil
}

type subscriptionSweepJob struct {
	logg          *logger.Logger
	ledger        ledger.Repository
	provider      reconcile.SubscriberSource
	entitlementID string
	sessions      cacheInvalidator
	metrics       *metrics.CronJobMetrics
	limit         int
	now           func() time.Time
}

func (j *subscriptionSweepJob) Name() string { return subscriptionSweepJobName }

func (j *subscriptionSweepJob) Run(ctx context.Context) error {
	rows, err := j.ledger.ListLapsedCandidates(ctx, j.now(), j.limit)
	if err != nil {
		return fmt.Errorf("list lapsed subscriptions: %w", err)
	}

	var errs error
	synced, skipped := 0, 0
	for i := range rows {
		ok, err := j.sweep(ctx, &rows[i])
		switch {
		case err != nil:
			errs = multierr.Append(errs, err)
		case ok:
			synced++
		default:
			skipped++
		}
	}
	failed := len(multierr.Errors(errs))
	j.metrics.AddItems(j.Name(), "synced", synced)
	j.metrics.AddItems(j.Name(), "skipped", skipped)
	j.metrics.AddItems(j.Name(), "failed", failed)

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"synced":     synced,
		"skipped":    skipped,
		"failed":     failed,
	})
	j.logg.Info(reportCtx, "subscription sweep complete")
	return errs
}

func (j *subscriptionSweepJob) sweep(ctx context.Context, row *models.UserSubscription) (bool, error) {
	if row.RevenueCatUserID == nil || *row.RevenueCatUserID == "" {
		return false, nil
	}
	appUserID := *row.RevenueCatUserID
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"user_id":            row.UserID.String(),
		"revenuecat_user_id": appUserID,
		"status":             row.Status.String(),
	})

	sub, err := j.provider.GetSubscriber(logCtx, appUserID)
	if err != nil && !errors.Is(err, revenuecat.ErrSubscriberNotFound) {
		return false, fmt.Errorf("fetch subscriber %s: %w", appUserID, err)
	}
	// A subscriber RevenueCat no longer knows has nothing active.
	update := reconcile.SyncUpdateFromSubscriber(sub, appUserID, j.entitlementID, j.now()).WithoutProviderIDs()
	if err := j.ledger.Upsert(logCtx, row.UserID, update); err != nil {
		if db.IsForeignKeyViolation(err) {
			j.logg.Info(logCtx, "account removed; skipping")
			return false, nil
		}
		return false, fmt.Errorf("update ledger for %s: %w", row.UserID, err)
	}
	if j.sessions != nil {
		j.sessions.Invalidate(row.UserID)
	}

	j.logg.Info(j.logg.WithField(logCtx, "new_status", update.Status.String()), "subscription swept")
	return true, nil
}
