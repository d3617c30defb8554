package instance

import "github.com/thedailydev/dailydev-backend/pkg/env"

// GetID identifies this process in logs and lock ownership: WORKER_ID, then
// the platform's DYNO, then "local".
func GetID() string {
	if id, ok := env.Lookup("WORKER_ID", "DYNO"); ok {
		return id
	}
	return "local"
}
