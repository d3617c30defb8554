package contributions

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/internal/answers"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
)

const minYear = 2000

type answeredDays interface {
	AnsweredDays(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

type ServiceParams struct {
	Answers  answeredDays
	Location *time.Location
	Clock    func() time.Time
}

type Service struct {
	answers answeredDays
	loc     *time.Location
	clock   func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Answers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "answers repo required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{answers: params.Answers, loc: loc, clock: clock}, nil
}

// Cell is one square of the calendar. Date is empty for cells outside the
// displayed range.
type Cell struct {
	Week     int    `json:"week"`
	Weekday  int    `json:"weekday"`
	Date     string `json:"date,omitempty"`
	Answered bool   `json:"answered"`
}

type MonthLabel struct {
	Week  int    `json:"week"`
	Label string `json:"label"`
}

// Calendar is the contributions view for one year.
type Calendar struct {
	Year          int          `json:"year"`
	Mode          string       `json:"mode"`
	From          string       `json:"from,omitempty"`
	To            string       `json:"to,omitempty"`
	Cells         []Cell       `json:"cells"`
	MonthLabels   []MonthLabel `json:"month_labels"`
	AnsweredCount int          `json:"answered_count"`
	CurrentStreak int          `json:"current_streak"`
	LongestStreak int          `json:"longest_streak"`
}

// Build assembles the calendar for year; zero means the current year.
func (s *Service) Build(ctx context.Context, userID uuid.UUID, year int) (*Calendar, error) {
	today := answers.DayKey(s.clock().In(s.loc))
	if year == 0 {
		year = today.Year()
	}
	if year < minYear || year > today.Year() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "year must be between %d and %d", minYear, today.Year())
	}

	history, err := s.answers.AnsweredDays(ctx, userID, time.Time{}, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load answered days")
	}
	answered := make(map[time.Time]struct{}, len(history))
	for _, d := range history {
		answered[answers.DayKey(d)] = struct{}{}
	}

	grid := NewGrid(year, today)
	cal := &Calendar{Year: year, Mode: "fixed", Cells: make([]Cell, 0, Weeks*DaysPerWeek)}
	if grid.Rolling() {
		cal.Mode = "rolling"
	}
	if first, last, ok := grid.Bounds(); ok {
		cal.From = first.Format(time.DateOnly)
		cal.To = last.Format(time.DateOnly)
	}
	for week := 0; week < Weeks; week++ {
		for weekday := 0; weekday < DaysPerWeek; weekday++ {
			cell := Cell{Week: week, Weekday: weekday}
			if date, ok := grid.DateFor(week, weekday); ok {
				cell.Date = date.Format(time.DateOnly)
				if _, hit := answered[date]; hit {
					cell.Answered = true
					cal.AnsweredCount++
				}
			}
			cal.Cells = append(cal.Cells, cell)
		}
	}

	for week, label := range grid.MonthLabels() {
		cal.MonthLabels = append(cal.MonthLabels, MonthLabel{Week: week, Label: label})
	}
	sort.Slice(cal.MonthLabels, func(i, j int) bool { return cal.MonthLabels[i].Week < cal.MonthLabels[j].Week })

	cal.CurrentStreak, cal.LongestStreak = Streaks(history, today)
	return cal, nil
}
