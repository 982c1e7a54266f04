package slip

import (
	"sort"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

const secondsPerDay = 24 * 60 * 60

// UserStats is the per-user slip accounting written back into the user's
// attributes after a pipeline pass.
type UserStats struct {
	UserID    string
	Used      int
	Remaining int
	Mean      float64
	Median    float64
	Done      int
	Total     int
}

// Progress is the done/total ratio, 0 when the user has no assignments.
func (st UserStats) Progress() float64 {
	if st.Total == 0 {
		return 0
	}
	return float64(st.Done) / float64(st.Total)
}

type Calculator struct {
	store *record.Store
	log   core.Logger

	now          time.Time
	tzGrace      time.Duration
	slipsPerWeek int
}

func NewCalculator(s *record.Store, log core.Logger) *Calculator {
	return &Calculator{
		store:        s,
		log:          log,
		now:          core.CurrentDate(),
		tzGrace:      core.Conf.GetDuration("latestTZOffset"),
		slipsPerWeek: core.Conf.GetInt("slipsPerWeek"),
	}
}

// CalculateSlipDays counts whole days of lateness of `submit` against `due`.
// The grace duration pads the due date so nobody is penalized purely by
// timezone skew; early or on-time submissions yield 0.
func CalculateSlipDays(submit, due time.Time, grace time.Duration) int {
	days := int(submit.UTC().Unix()/secondsPerDay - due.Add(grace).UTC().Unix()/secondsPerDay)
	if days < 0 {
		return 0
	}
	return days
}

// Compute stamps status and slip days on every assignment, then aggregates
// per user. Stats land in each user's attributes under "slips" and
// "progress".
func (c *Calculator) Compute() []UserStats {
	for _, a := range c.store.Assignments() {
		c.computeAssignment(a)
	}

	var all []UserStats
	for _, usr := range c.store.Users() {
		st := c.computeUser(usr)
		usr.Attributes["slips"] = st
		usr.Attributes["progress"] = st.Progress()
		all = append(all, st)
	}
	return all
}

func (c *Calculator) computeAssignment(a *record.Assignment) {
	if core.CompareDates(c.now, a.DueDate) < 0 {
		a.Attributes.Status = record.StatusPending
		a.Attributes.SlipDays = 0
		return
	}
	if sub := a.Attributes.Submission; sub != nil {
		a.Attributes.Status = record.StatusDone
		a.Attributes.SlipDays = CalculateSlipDays(sub.Date, a.DueDate, c.tzGrace)
		return
	}
	a.Attributes.Status = record.StatusMissing
	a.Attributes.SlipDays = CalculateSlipDays(c.now, a.DueDate, c.tzGrace)
}

func (c *Calculator) computeUser(usr *record.User) UserStats {
	st := UserStats{UserID: usr.ID}

	var positives []int
	for _, a := range c.store.AssignmentsByUser(usr.ID) {
		st.Total++
		if a.Attributes.Status == record.StatusDone {
			st.Done++
		}
		if a.Attributes.SlipDays > 0 {
			st.Used += a.Attributes.SlipDays
			positives = append(positives, a.Attributes.SlipDays)
		}
	}
	st.Remaining = usr.Schedule.Weeks*c.slipsPerWeek - st.Used

	if len(positives) > 0 {
		st.Mean = float64(st.Used) / float64(len(positives))
		st.Median = median(positives)
	}
	return st
}

// median locates the middle value of the sorted positive slips, averaging
// the two middle values for even counts.
func median(values []int) float64 {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
