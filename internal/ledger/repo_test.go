package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedailydev/dailydev-backend/internal/testdb"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/enums"
)

func ptr[T any](v T) *T { return &v }

func TestEnsureRowCreatesInactiveOnce(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)

	require.NoError(t, repo.EnsureRow(ctx, userID, ptr("Ada"), nil))
	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:     ptr(enums.SubscriptionStatusActive),
		ObservedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.EnsureRow(ctx, userID, ptr("Other"), nil))

	row, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, enums.SubscriptionStatusActive, row.Status)
	assert.Equal(t, "Ada", *row.FirstName)
}

func TestUpsertTouchesOnlyProvidedColumns(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)

	trialEnd := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:                   ptr(enums.SubscriptionStatusTrialing),
		EntitlementStatus:        ptr(enums.EntitlementStatusActive),
		TrialEnd:                 &trialEnd,
		RevenueCatSubscriptionID: ptr("rc_sub_1"),
		ObservedAt:               time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC),
	}))

	periodEnd := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:           ptr(enums.SubscriptionStatusActive),
		CurrentPeriodEnd: &periodEnd,
		ObservedAt:       time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	}))

	row, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, enums.SubscriptionStatusActive, row.Status)
	assert.Equal(t, enums.EntitlementStatusActive, row.EntitlementStatus)
	require.NotNil(t, row.TrialEnd)
	assert.True(t, row.TrialEnd.Equal(trialEnd))
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.True(t, row.CurrentPeriodEnd.Equal(periodEnd))
	assert.Equal(t, "rc_sub_1", *row.RevenueCatSubscriptionID)
}

func TestUpsertDropsStaleObservations(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)

	newer := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:     ptr(enums.SubscriptionStatusActive),
		ObservedAt: newer,
	}))
	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:     ptr(enums.SubscriptionStatusInactive),
		ObservedAt: newer.Add(-time.Minute),
	}))

	row, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, row.Status)
	assert.True(t, row.UpdatedAt.Equal(newer))

	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:     ptr(enums.SubscriptionStatusPaused),
		ObservedAt: newer,
	}))
	row, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusPaused, row.Status, "equal observation time still applies")
}

func TestApplyKeepsIdentifiersFromStaleObservation(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)
	synced := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	res, err := repo.Apply(ctx, userID, Update{
		Status:            ptr(enums.SubscriptionStatusActive),
		EntitlementStatus: ptr(enums.EntitlementStatusActive),
		RevenueCatUserID:  ptr(userID.String()),
		ObservedAt:        synced,
	})
	require.NoError(t, err)
	assert.Equal(t, WriteResult{State: true, IDs: true}, res)

	res, err = repo.Apply(ctx, userID, Update{
		Status:                   ptr(enums.SubscriptionStatusTrialing),
		RevenueCatSubscriptionID: ptr("tx_1"),
		OriginalTransactionID:    ptr("otx_1"),
		ObservedAt:               synced.Add(-5 * time.Second),
	})
	require.NoError(t, err)
	assert.False(t, res.State)
	assert.True(t, res.IDs)
	assert.True(t, res.Applied())

	row, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, enums.SubscriptionStatusActive, row.Status)
	assert.True(t, row.UpdatedAt.Equal(synced))
	require.NotNil(t, row.RevenueCatSubscriptionID)
	assert.Equal(t, "tx_1", *row.RevenueCatSubscriptionID)
	require.NotNil(t, row.OriginalTransactionID)
	assert.Equal(t, "otx_1", *row.OriginalTransactionID)
}

func TestApplyReportsDroppedStateWrite(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)
	newer := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, userID, Update{Status: ptr(enums.SubscriptionStatusActive), ObservedAt: newer}))
	res, err := repo.Apply(ctx, userID, Update{
		Status:     ptr(enums.SubscriptionStatusInactive),
		ObservedAt: newer.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, res.Applied())
}

func TestApplyIdentifiersOnlyLeavesRowUnobserved(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)

	res, err := repo.Apply(ctx, userID, Update{
		StripeCustomerID: ptr("cus_1"),
		ObservedAt:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, WriteResult{IDs: true}, res)

	row, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.UpdatedAt.Equal(NeverObserved), "got %s", row.UpdatedAt)

	require.NoError(t, repo.Upsert(ctx, userID, Update{
		Status:     ptr(enums.SubscriptionStatusTrialing),
		ObservedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	row, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusTrialing, row.Status)
}

func TestUpsertUnknownUserIsForeignKeyViolation(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)

	err := repo.Upsert(context.Background(), uuid.New(), Update{Status: ptr(enums.SubscriptionStatusActive)})
	require.Error(t, err)
	assert.True(t, db.IsForeignKeyViolation(err), "got %v", err)
}

func TestUpsertEmptyUpdateIsNoop(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	userID := testdb.CreateUser(t, conn)

	require.NoError(t, repo.Upsert(context.Background(), userID, Update{ObservedAt: time.Now()}))
	row, err := repo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestFindByProviderIdentifiers(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)

	require.NoError(t, repo.Upsert(ctx, userID, Update{
		RevenueCatUserID: ptr("$RCAnonymousID:1"),
		StripeCustomerID: ptr("cus_1"),
	}))

	byRC, err := repo.FindByRevenueCatUserID(ctx, "$RCAnonymousID:1")
	require.NoError(t, err)
	require.NotNil(t, byRC)
	assert.Equal(t, userID, byRC.UserID)

	byStripe, err := repo.FindByStripeCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	require.NotNil(t, byStripe)
	assert.Equal(t, userID, byStripe.UserID)

	missing, err := repo.FindByStripeCustomerID(ctx, "cus_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	empty, err := repo.FindByRevenueCatUserID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestListLapsedCandidates(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	lapsedTrial := testdb.CreateUser(t, conn)
	require.NoError(t, repo.Upsert(ctx, lapsedTrial, Update{
		Status: ptr(enums.SubscriptionStatusTrialing), TrialEnd: &past, RevenueCatUserID: ptr("a"),
	}))
	lapsedActive := testdb.CreateUser(t, conn)
	require.NoError(t, repo.Upsert(ctx, lapsedActive, Update{
		Status: ptr(enums.SubscriptionStatusActive), CurrentPeriodEnd: &past, RevenueCatUserID: ptr("b"),
	}))
	current := testdb.CreateUser(t, conn)
	require.NoError(t, repo.Upsert(ctx, current, Update{
		Status: ptr(enums.SubscriptionStatusActive), CurrentPeriodEnd: &future, RevenueCatUserID: ptr("c"),
	}))
	stripeOnly := testdb.CreateUser(t, conn)
	require.NoError(t, repo.Upsert(ctx, stripeOnly, Update{
		Status: ptr(enums.SubscriptionStatusActive), CurrentPeriodEnd: &past, StripeCustomerID: ptr("cus_x"),
	}))
	inactive := testdb.CreateUser(t, conn)
	require.NoError(t, repo.Upsert(ctx, inactive, Update{
		Status: ptr(enums.SubscriptionStatusInactive), CurrentPeriodEnd: &past, RevenueCatUserID: ptr("d"),
	}))

	rows, err := repo.ListLapsedCandidates(ctx, now, 10)
	require.NoError(t, err)
	got := map[uuid.UUID]bool{}
	for _, row := range rows {
		got[row.UserID] = true
	}
	assert.Len(t, rows, 2)
	assert.True(t, got[lapsedTrial])
	assert.True(t, got[lapsedActive])
}

func TestUpdateWithoutProviderIDs(t *testing.T) {
	u := Update{
		Status:                   ptr(enums.SubscriptionStatusActive),
		RevenueCatUserID:         ptr("rc"),
		RevenueCatSubscriptionID: ptr("sub"),
		OriginalTransactionID:    ptr("tx"),
		StripeCustomerID:         ptr("cus"),
		StripeSubscriptionID:     ptr("sub_stripe"),
	}.WithoutProviderIDs()

	assert.ElementsMatch(t, []string{"status", "revenuecat_user_id"}, u.columns())
	assert.False(t, u.IsEmpty())
	assert.True(t, Update{}.IsEmpty())
}

func TestSnapshotHasAccess(t *testing.T) {
	var nilSnap *SubscriptionSnapshot
	assert.False(t, nilSnap.HasAccess())
	for status, want := range map[enums.SubscriptionStatus]bool{
		enums.SubscriptionStatusActive:   true,
		enums.SubscriptionStatusTrialing: true,
		enums.SubscriptionStatusPastDue:  false,
		enums.SubscriptionStatusPaused:   false,
		enums.SubscriptionStatusInactive: false,
	} {
		assert.Equal(t, want, (&SubscriptionSnapshot{Status: status}).HasAccess(), status)
	}
}
