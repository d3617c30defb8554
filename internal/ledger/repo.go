package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thedailydev/dailydev-backend/pkg/db/models"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

// Repository persists the per-user subscription ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureRow(ctx context.Context, userID uuid.UUID, firstName, lastName *string) error
	Upsert(ctx context.Context, userID uuid.UUID, update Update) error
	Apply(ctx context.Context, userID uuid.UUID, update Update) (WriteResult, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error)
	FindByRevenueCatUserID(ctx context.Context, appUserID string) (*models.UserSubscription, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.UserSubscription, error)
	ListLapsedCandidates(ctx context.Context, now time.Time, limit int) ([]models.UserSubscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureRow creates the inactive row for a new account; an existing row is left as is.
func (r *repository) EnsureRow(ctx context.Context, userID uuid.UUID, firstName, lastName *string) error {
	row := &models.UserSubscription{
		UserID:            userID,
		Status:            enums.SubscriptionStatusInactive,
		EntitlementStatus: enums.EntitlementStatusInactive,
		FirstName:         firstName,
		LastName:          lastName,
		UpdatedAt:         NeverObserved,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error
}

// Upsert is Apply for callers that do not need to know what was written.
func (r *repository) Upsert(ctx context.Context, userID uuid.UUID, update Update) error {
	_, err := r.Apply(ctx, userID, update)
	return err
}

// Apply inserts or patches the row for userID with the columns update
// carries. State columns apply only when the row's recorded observation is not
// newer than update.ObservedAt. Provider identifiers are written whenever they
// differ from the stored value, whatever the observation time.
func (r *repository) Apply(ctx context.Context, userID uuid.UUID, update Update) (WriteResult, error) {
	var res WriteResult
	if userID == uuid.Nil {
		return res, errors.New("user id is required")
	}
	if update.IsEmpty() {
		return res, nil
	}
	if update.ObservedAt.IsZero() {
		update.ObservedAt = time.Now().UTC()
	}
	observedAt := update.ObservedAt.UTC()
	state, ids := update.assignments()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(update.toModel(userID))
		if created.Error != nil {
			return created.Error
		}
		if created.RowsAffected > 0 {
			res = WriteResult{State: len(state) > 0, IDs: len(ids) > 0}
			return nil
		}

		if len(ids) > 0 {
			changed, args := identifierChanged(ids)
			linked := tx.Model(&models.UserSubscription{}).
				Where("user_id = ?", userID).
				Where(changed, args...).
				UpdateColumns(ids)
			if linked.Error != nil {
				return linked.Error
			}
			res.IDs = linked.RowsAffected > 0
		}
		if len(state) > 0 {
			state["updated_at"] = observedAt
			patched := tx.Model(&models.UserSubscription{}).
				Where("user_id = ? AND updated_at <= ?", userID, observedAt).
				UpdateColumns(state)
			if patched.Error != nil {
				return patched.Error
			}
			res.State = patched.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}
	return res, nil
}

// identifierChanged matches rows where at least one of ids differs from the
// stored value, so re-sending a known link is not reported as a write.
func identifierChanged(ids map[string]any) (string, []any) {
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)
	conds := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, name := range names {
		conds = append(conds, "("+name+" IS NULL OR "+name+" <> ?)")
		args = append(args, ids[name])
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.UserSubscription, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *repository) FindByRevenueCatUserID(ctx context.Context, appUserID string) (*models.UserSubscription, error) {
	if appUserID == "" {
		return nil, nil
	}
	return r.first(ctx, "revenuecat_user_id = ?", appUserID)
}

func (r *repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.UserSubscription, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.first(ctx, "stripe_customer_id = ?", customerID)
}

// ListLapsedCandidates returns rows that still grant (or owe) access although
// their trial or billing period has ended, and which are linked to RevenueCat.
func (r *repository) ListLapsedCandidates(ctx context.Context, now time.Time, limit int) ([]models.UserSubscription, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.UserSubscription
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.SubscriptionStatus{
			enums.SubscriptionStatusTrialing,
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusPastDue,
		}).
		Where("revenuecat_user_id IS NOT NULL").
		Where("((status = ? AND trial_end < ?) OR (status <> ? AND current_period_end < ?))",
			enums.SubscriptionStatusTrialing, now.UTC(),
			enums.SubscriptionStatusTrialing, now.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*models.UserSubscription, error) {
	var row models.UserSubscription
	err := r.db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
