package schedule

import (
	"fmt"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

// CreateSchedule derives a user's weekly calendar once, at creation.
// The weekday threshold decides whether the starting week still counts:
// starting on or before the threshold weekday leaves enough of the week to
// work in, so its closing Sunday becomes the first due boundary; starting
// later skips ahead one week.
func CreateSchedule(start, end time.Time, threshold int) record.Schedule {
	start, end = core.TruncateDay(start), core.TruncateDay(end)

	firstSunday := core.NextSunday(start, 0)
	if int(start.Weekday()) > threshold {
		firstSunday = firstSunday.AddDate(0, 0, 7)
	}

	startSunday := core.PastSunday(start, 0)
	weeks := 0
	lastSunday := startSunday
	for core.CompareDates(lastSunday, end) < 0 {
		lastSunday = lastSunday.AddDate(0, 0, 7)
		weeks++
	}

	return record.Schedule{
		StartDate:   start,
		EndDate:     end,
		Weeks:       weeks,
		StartSunday: startSunday,
		FirstSunday: firstSunday,
		LastSunday:  lastSunday,
	}
}

// AssignWeekly creates one "base[n]" assignment per Sunday from the user's
// first Sunday through their end date, n starting at 1, each due date pushed
// past vacations. The hard cap guards against runaway generation loops and
// is fatal when exceeded.
func AssignWeekly(s *record.Store, usr *record.User, base string) error {
	max := core.Conf.GetInt("maxGeneratedAssignments")

	n := 0
	for sunday := usr.Schedule.FirstSunday; core.CompareDates(sunday, usr.Schedule.EndDate) <= 0; sunday = sunday.AddDate(0, 0, 7) {
		n++
		if n > max {
			return core.NewScheduleOverflowError(
				fmt.Sprintf("user %q: weekly assignment generation exceeded the %d cap", usr.ID, max))
		}
		s.AddAssignment(record.Assignment{
			UserID:     usr.ID,
			ID:         record.WeeklyID(base, n),
			DueDate:    OffsetDateByVacations(s, usr.OwnerKeys, sunday),
			Attributes: record.AssignmentAttributes{Status: record.StatusPending},
		})
	}
	return nil
}

// AssignOnce creates a single-date assignment (e.g. "intro", "last"), with
// the same vacation offsetting as the weekly ones.
func AssignOnce(s *record.Store, usr *record.User, id string, due time.Time) {
	s.AddAssignment(record.Assignment{
		UserID:     usr.ID,
		ID:         id,
		DueDate:    OffsetDateByVacations(s, usr.OwnerKeys, due),
		Attributes: record.AssignmentAttributes{Status: record.StatusPending},
	})
}
