package core

import "time"

// All calendar arithmetic is done in UTC at day granularity. Mixing local
// time in would shift day boundaries and corrupt every comparison downstream.

const daysPerWeek = 7

// TruncateDay strips the time-of-day component of `t` in UTC.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CompareDates returns the sign of the whole-day difference between `a` and `b`:
// -1 if a's day precedes b's, 0 if same day, 1 otherwise.
func CompareDates(a, b time.Time) int {
	a, b = TruncateDay(a), TruncateDay(b)
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}

// IsWithinDates reports whether `d` falls within [from, to], inclusive both
// ends, at day granularity.
func IsWithinDates(d, from, to time.Time) bool {
	return CompareDates(d, from) >= 0 && CompareDates(d, to) <= 0
}

// DaysUntil returns the non-negative whole-day count from `a` to `b`.
func DaysUntil(a, b time.Time) int {
	days := int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PastSunday returns the Sunday on or before `d`, then applies `offset` days.
func PastSunday(d time.Time, offset int) time.Time {
	d = TruncateDay(d)
	return d.AddDate(0, 0, offset-int(d.Weekday()))
}

// NextSunday returns the Sunday strictly after `d`, then applies `offset` days.
func NextSunday(d time.Time, offset int) time.Time {
	return PastSunday(d, offset+daysPerWeek)
}

// NearestSunday rounds `d` to a Sunday: Sunday through Tuesday round down,
// Thursday through Saturday round up. Wednesday rounds down only when
// `floorWednesday` is set.
func NearestSunday(d time.Time, floorWednesday bool) time.Time {
	wd := int(TruncateDay(d).Weekday())
	if wd <= int(time.Tuesday) || (wd == int(time.Wednesday) && floorWednesday) {
		return PastSunday(d, 0)
	}
	return NextSunday(d, 0)
}
