package contributions

import (
	"sort"
	"time"

	"github.com/thedailydev/dailydev-backend/internal/answers"
)

// Streaks computes the current and longest runs of consecutive answered
// days. The current streak still counts when today is not answered yet but
// yesterday was.
func Streaks(days []time.Time, today time.Time) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}
	keys := make([]time.Time, 0, len(days))
	seen := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		k := answers.DayKey(d)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	run := 0
	for i, k := range keys {
		if i > 0 && keys[i-1].AddDate(0, 0, 1).Equal(k) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	cursor := answers.DayKey(today)
	if _, ok := seen[cursor]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for {
		if _, ok := seen[cursor]; !ok {
			break
		}
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return current, longest
}
