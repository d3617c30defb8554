// Package testdb opens isolated in-memory sqlite databases carrying the
// service schema, for repository and service tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/thedailydev/dailydev-backend/pkg/db/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS user_subscriptions (
  user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'inactive',
  entitlement_status TEXT NOT NULL DEFAULT 'inactive',
  trial_end DATETIME,
  current_period_end DATETIME,
  revenuecat_user_id TEXT,
  revenuecat_subscription_id TEXT,
  original_transaction_id TEXT,
  stripe_customer_id TEXT,
  stripe_subscription_id TEXT,
  first_name TEXT,
  last_name TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS question_answers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  answered_on DATE NOT NULL,
  question_id TEXT,
  created_at DATETIME,
  CONSTRAINT question_answers_user_day_key UNIQUE (user_id, answered_on)
);`

// Open returns a fresh database private to t with foreign keys enforced.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// CreateUser inserts a users row and returns its id.
func CreateUser(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	user := models.User{ID: uuid.New()}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}
