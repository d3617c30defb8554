package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionAnswer records that a user answered the daily question on a given
// calendar day. AnsweredOn is stored as midnight UTC of that day.
type QuestionAnswer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:question_answers_user_day_key"`
	AnsweredOn time.Time `gorm:"column:answered_on;type:date;not null;uniqueIndex:question_answers_user_day_key"`
	QuestionID *string   `gorm:"column:question_id"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (QuestionAnswer) TableName() string { return "question_answers" }
