package schedule

import (
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

// minBlackoutWeekdays is how many weekdays (Mon-Fri) of a week a vacation
// must cover before that whole week stops counting as an effective work week.
const minBlackoutWeekdays = 3

// DateRange is an inclusive day-granularity interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// EffectiveWorkWeeks converts a raw vacation interval into whole-week
// blackout ranges. Weeks run Sunday through Saturday; a week is blacked out
// only when the raw interval covers at least 3 of its weekdays. Intervals
// shorter than 3 days contribute nothing.
func EffectiveWorkWeeks(start, end time.Time) []DateRange {
	start, end = core.TruncateDay(start), core.TruncateDay(end)
	if end.Before(start) || core.DaysUntil(start, end)+1 < minBlackoutWeekdays {
		return nil
	}

	var ranges []DateRange
	for sunday := core.PastSunday(start, 0); !sunday.After(end); sunday = sunday.AddDate(0, 0, 7) {
		covered := 0
		for i := int(time.Monday); i <= int(time.Friday); i++ {
			if core.IsWithinDates(sunday.AddDate(0, 0, i), start, end) {
				covered++
			}
		}
		if covered >= minBlackoutWeekdays {
			ranges = append(ranges, DateRange{Start: sunday, End: sunday.AddDate(0, 0, 6)})
		}
	}
	return MergeRangesWithOverlap(ranges)
}

// MergeRangesWithOverlap merges contiguous-or-overlapping ranges in a single
// forward pass, compacting in place. Input must be sorted by Start ascending.
func MergeRangesWithOverlap(ranges []DateRange) []DateRange {
	if len(ranges) < 2 {
		return ranges
	}
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if core.CompareDates(r.Start, last.End.AddDate(0, 0, 1)) <= 0 {
			if core.CompareDates(r.End, last.End) > 0 {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// NewVacation builds a Vacation record with its user-entered interval padded
// to effective work weeks. Returns false when the interval is too short to
// black anything out.
func NewVacation(id, ownerKey string, start, end time.Time) (record.Vacation, bool) {
	effective := EffectiveWorkWeeks(start, end)
	if len(effective) == 0 {
		return record.Vacation{}, false
	}
	return record.Vacation{
		ID:                 id,
		OwnerKey:           ownerKey,
		UserStartDate:      core.TruncateDay(start),
		UserEndDate:        core.TruncateDay(end),
		EffectiveStartDate: effective[0].Start,
		EffectiveEndDate:   effective[len(effective)-1].End,
	}, true
}

// OffsetDateByVacations pushes `date` forward past every effective vacation
// range it lands in: a hit advances the date by the vacation's whole length
// (a multiple of 7 for padded weeks, so Sundays stay Sundays) and the sweep
// continues against the remaining ranges. Relies on per-owner vacations
// being pairwise disjoint; a single forward pass over the
// effective-start-sorted list is then enough.
func OffsetDateByVacations(s *record.Store, ownerKeys []string, date time.Time) time.Time {
	date = core.TruncateDay(date)
	for _, vac := range s.VacationsFor(ownerKeys...) {
		if core.IsWithinDates(date, vac.EffectiveStartDate, vac.EffectiveEndDate) {
			date = date.AddDate(0, 0, core.DaysUntil(vac.EffectiveStartDate, vac.EffectiveEndDate)+1)
		}
	}
	return date
}
