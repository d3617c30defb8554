package answers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedailydev/dailydev-backend/internal/testdb"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
)

func TestRecordIsOncePerDay(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)

	never, err := repo.HasEverAnswered(ctx, userID)
	require.NoError(t, err)
	assert.False(t, never)

	day := time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)
	created, err := repo.Record(ctx, userID, day, nil)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Record(ctx, userID, day.Add(2*time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, created)

	ever, err := repo.HasEverAnswered(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ever)
}

func TestAnsweredDaysRange(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	userID := testdb.CreateUser(t, conn)
	other := testdb.CreateUser(t, conn)

	for _, d := range []int{1, 3, 10} {
		_, err := repo.Record(ctx, userID, time.Date(2026, 1, d, 9, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, other, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	days, err := repo.AnsweredDays(ctx, userID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 3, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, days[1].Equal(time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)))
}

func TestServiceRecordTodayUsesConfiguredZone(t *testing.T) {
	conn := testdb.Open(t)
	userID := testdb.CreateUser(t, conn)
	loc := time.FixedZone("UTC-8", -8*3600)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Location: loc,
		Clock:    func() time.Time { return time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	res, err := svc.RecordToday(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.True(t, res.Day.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)), "got %s", res.Day)
}

func TestServiceRecordTodayWithoutAccount(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: NewRepository(testdb.Open(t))})
	require.NoError(t, err)

	_, err = svc.RecordToday(context.Background(), uuid.New(), nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestDayKey(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got := DayKey(time.Date(2026, 12, 31, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), got)
}
