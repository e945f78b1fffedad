package resolver

import (
	"time"

	"github.com/openihd/feedmart/internal/entity"
)

// NormalizeDate truncates a timestamp to its UTC calendar date.
func NormalizeDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildTimeRow derives the calendar attributes for one date.
// The holiday flag is always false; no holiday calendar is consulted.
func BuildTimeRow(date time.Time) *entity.DimTime {
	date = NormalizeDate(date)
	weekday := date.Weekday()
	_, isoWeek := date.ISOWeek()

	return &entity.DimTime{
		FullDate:   date,
		Year:       date.Year(),
		Quarter:    (int(date.Month())-1)/3 + 1,
		Month:      int(date.Month()),
		MonthName:  date.Month().String(),
		Day:        date.Day(),
		DayOfWeek:  isoDayOfWeek(weekday),
		DayName:    weekday.String(),
		WeekOfYear: isoWeek,
		IsWeekend:  weekday == time.Saturday || weekday == time.Sunday,
		IsHoliday:  false,
	}
}

// isoDayOfWeek maps Go's Sunday-based weekday to ISO numbering (Monday=1).
func isoDayOfWeek(w time.Weekday) int {
	if w == time.Sunday {
		return 7
	}
	return int(w)
}
