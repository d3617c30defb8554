package answers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thedailydev/dailydev-backend/pkg/db/models"
)

// Repository persists which calendar days a user answered the daily question.
type Repository interface {
	Record(ctx context.Context, userID uuid.UUID, day time.Time, questionID *string) (bool, error)
	HasEverAnswered(ctx context.Context, userID uuid.UUID) (bool, error)
	AnsweredDays(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Record stores an answer for day. It reports false when the day was already recorded.
func (r *repository) Record(ctx context.Context, userID uuid.UUID, day time.Time, questionID *string) (bool, error) {
	row := &models.QuestionAnswer{
		ID:         uuid.New(),
		UserID:     userID,
		AnsweredOn: DayKey(day),
		QuestionID: questionID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "answered_on"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) HasEverAnswered(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuestionAnswer{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AnsweredDays returns the answered days in [from, to], oldest first, as DayKey values.
func (r *repository) AnsweredDays(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	var rows []models.QuestionAnswer
	err := r.db.WithContext(ctx).
		Select("answered_on").
		Where("user_id = ? AND answered_on >= ? AND answered_on <= ?", userID, DayKey(from), DayKey(to)).
		Order("answered_on ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	days := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		days = append(days, DayKey(row.AnsweredOn))
	}
	return days, nil
}

// DayKey normalizes t to midnight UTC of its wall-clock date in t's location.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
