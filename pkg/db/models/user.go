package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity provider's account row. Deleting it cascades to the
// subscription ledger and answer history.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     *string   `gorm:"column:email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string { return "users" }
