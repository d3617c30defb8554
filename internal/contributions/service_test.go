package contributions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
)

func TestStreaks(t *testing.T) {
	today := day(2026, 3, 10)
	cases := []struct {
		name             string
		days             []time.Time
		current, longest int
	}{
		{"none", nil, 0, 0},
		{"today only", []time.Time{today}, 1, 1},
		{"through yesterday", []time.Time{day(2026, 3, 8), day(2026, 3, 9)}, 2, 2},
		{"broken", []time.Time{day(2026, 3, 1), day(2026, 3, 2), day(2026, 3, 3), day(2026, 3, 10)}, 1, 3},
		{"stale", []time.Time{day(2026, 3, 1), day(2026, 3, 2)}, 0, 2},
		{"leap day run", []time.Time{day(2024, 2, 28), day(2024, 2, 29), day(2024, 3, 1)}, 0, 3},
		{"duplicates", []time.Time{today, today.Add(3 * time.Hour)}, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current, longest := Streaks(tc.days, today)
			if current != tc.current || longest != tc.longest {
				t.Fatalf("Streaks = (%d,%d), want (%d,%d)", current, longest, tc.current, tc.longest)
			}
		})
	}
}

func TestBuildRollingCalendar(t *testing.T) {
	stub := &stubAnswered{days: []time.Time{day(2026, 10, 12), day(2026, 10, 13), day(2025, 1, 5)}}
	svc, err := NewService(ServiceParams{
		Answers: stub,
		Clock:   func() time.Time { return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	cal, err := svc.Build(context.Background(), uuid.New(), 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cal.Year != 2026 || cal.Mode != "rolling" {
		t.Fatalf("unexpected header %d %s", cal.Year, cal.Mode)
	}
	if len(cal.Cells) != Weeks*DaysPerWeek {
		t.Fatalf("expected %d cells, got %d", Weeks*DaysPerWeek, len(cal.Cells))
	}
	if cal.AnsweredCount != 2 {
		t.Fatalf("expected 2 answered cells in range, got %d", cal.AnsweredCount)
	}
	if cal.CurrentStreak != 2 || cal.LongestStreak != 2 {
		t.Fatalf("unexpected streaks %d/%d", cal.CurrentStreak, cal.LongestStreak)
	}
	if cal.To != "2026-10-14" || cal.From != "2025-10-19" {
		t.Fatalf("unexpected bounds %s..%s", cal.From, cal.To)
	}
	last := cal.Cells[51*DaysPerWeek+1]
	if last.Date != "2026-10-12" || !last.Answered {
		t.Fatalf("unexpected cell %+v", last)
	}
	if future := cal.Cells[51*DaysPerWeek+6]; future.Date != "" {
		t.Fatalf("future cell should be blank, got %+v", future)
	}
}

func TestBuildRejectsFutureYear(t *testing.T) {
	svc, _ := NewService(ServiceParams{
		Answers: &stubAnswered{},
		Clock:   func() time.Time { return day(2026, 10, 14) },
	})
	_, err := svc.Build(context.Background(), uuid.New(), 2027)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type stubAnswered struct {
	days []time.Time
}

func (s *stubAnswered) AnsweredDays(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range s.days {
		if !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}
