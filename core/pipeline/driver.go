package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
	"github.com/trezcool/darasa/core/resolve"
	"github.com/trezcool/darasa/core/review"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/slip"
)

// State of one pipeline pass.
type State string

const (
	StateLoaded    State = "LOADED"
	StateResolved  State = "RESOLVED"
	StateReviewed  State = "REVIEWED"
	StateClean     State = "CLEAN"
	StateHasErrors State = "HAS_ERRORS"
)

// Source ids the driver reads from its RowSource. Column layouts:
// users: id, name, owner keys (| separated), start date, end date
// submissions: owner key, provisional assignment id, date, head, body, post id
// vacations: owner key, start date, end date
const (
	SourceUsers       = "users"
	SourceSubmissions = "submissions"
	SourceVacations   = "vacations"
)

// OwnerKeySep separates multiple owner keys within one user field.
const OwnerKeySep = "|"

// Driver owns one RecordStore and runs the whole audit loop: load, apply
// reviews stage by stage, resolve, account slips, then either report or
// escalate. Every iteration rebuilds the store from raw inputs plus the
// accumulated review set, so replayed corrections converge instead of
// patching state in place.
type Driver struct {
	store     *record.Store
	engine    *review.Engine
	builder   *review.Builder
	rows      core.RowSource
	reviewLog review.Log
	report    core.ReportSink
	port      core.EscalationPort
	log       core.Logger

	state   State
	reviews []record.Review
	stats   []slip.UserStats
}

func NewDriver(
	store *record.Store,
	engine *review.Engine,
	rows core.RowSource,
	reviewLog review.Log,
	report core.ReportSink,
	port core.EscalationPort,
	log core.Logger,
) *Driver {
	return &Driver{
		store:     store,
		engine:    engine,
		builder:   review.NewBuilder(port, log),
		rows:      rows,
		reviewLog: reviewLog,
		report:    report,
		port:      port,
		log:       log,
	}
}

// State reports where the last pass ended.
func (d *Driver) State() State { return d.state }

// Stats reports the per-user slip accounting of the last pass.
func (d *Driver) Stats() []slip.UserStats { return d.stats }

// Run drives the escalation loop until the store comes out clean or the
// operator stops. Only fatal defects return an error.
func (d *Driver) Run(interactive bool) (State, error) {
	reviews, err := d.reviewLog.LoadReviews()
	if err != nil {
		return d.state, err
	}
	d.reviews = reviews

	for {
		if err := d.runOnce(); err != nil {
			return d.state, err
		}
		if d.state == StateClean {
			d.log.Info("no unresolved errors")
			return StateClean, d.emitReports()
		}

		d.logBreakdown()
		if !interactive {
			return StateHasErrors, nil
		}

		built := d.escalate()
		if len(built) > 0 {
			if err := d.reviewLog.SaveReviews(built...); err != nil {
				return d.state, errors.Wrap(err, "persisting reviews")
			}
			d.reviews = append(d.reviews, built...)
		}
		cont := len(built) > 0
		if cont {
			cont, err = d.port.Confirm("re-run the audit with the new reviews?")
			if err != nil && err != core.ErrEscalationAborted {
				return d.state, err
			}
		}
		if !cont {
			return StateHasErrors, nil
		}
	}
}

// RunOnce performs a single non-interactive pass, leaving any errors in the
// store for inspection.
func (d *Driver) RunOnce() error {
	reviews, err := d.reviewLog.LoadReviews()
	if err != nil {
		return err
	}
	d.reviews = reviews
	if err := d.runOnce(); err != nil {
		return err
	}
	if d.state == StateClean {
		return d.emitReports()
	}
	d.logBreakdown()
	return nil
}

func (d *Driver) runOnce() error {
	s := d.store
	s.Clear()

	if err := d.load(); err != nil {
		return err
	}
	for _, rev := range d.reviews {
		s.AddReview(rev)
	}
	d.state = StateLoaded

	d.engine.ApplyStage(s, review.StageSetup)
	if err := d.generateSchedules(); err != nil {
		return err
	}
	d.engine.ApplyStage(s, review.StagePreResolve)

	resolve.NewResolver(s, d.log).Resolve()
	d.state = StateResolved

	d.stats = slip.NewCalculator(s, d.log).Compute()
	d.engine.ApplyStage(s, review.StagePostResolve)
	d.state = StateReviewed

	if err := s.Fatal(); err != nil {
		return err
	}
	if len(s.Errors()) == 0 {
		d.state = StateClean
	} else {
		d.state = StateHasErrors
	}
	return nil
}

func (d *Driver) load() error {
	threshold := core.Conf.GetInt("weekdayThreshold")

	userRows, err := d.rows.LoadRows(SourceUsers)
	if err != nil {
		return errors.Wrap(err, "loading users")
	}
	for i, fields := range userRows {
		if len(fields) < 5 {
			d.badRow(SourceUsers, i, "want 5 fields")
			continue
		}
		row := record.NewUserRow{
			ID:        fields[0],
			Name:      fields[1],
			OwnerKeys: strings.Split(fields[2], OwnerKeySep),
			StartDate: fields[3],
			EndDate:   fields[4],
		}
		if err := row.Validate(); err != nil {
			d.badRow(SourceUsers, i, err.Error())
			continue
		}
		start, _ := record.ParseDate(row.StartDate)
		end, _ := record.ParseDate(row.EndDate)
		d.store.AddUser(record.User{
			ID:        row.ID,
			Name:      row.Name,
			OwnerKeys: row.OwnerKeys,
			Schedule:  schedule.CreateSchedule(start, end, threshold),
		})
	}

	vacRows, err := d.rows.LoadRows(SourceVacations)
	if err != nil {
		return errors.Wrap(err, "loading vacations")
	}
	for i, fields := range vacRows {
		if len(fields) < 3 {
			d.badRow(SourceVacations, i, "want 3 fields")
			continue
		}
		row := record.NewVacationRow{OwnerKey: fields[0], StartDate: fields[1], EndDate: fields[2]}
		if err := row.Validate(); err != nil {
			d.badRow(SourceVacations, i, err.Error())
			continue
		}
		start, _ := record.ParseDate(row.StartDate)
		end, _ := record.ParseDate(row.EndDate)
		vac, ok := schedule.NewVacation("vac:"+row.OwnerKey+":"+row.StartDate, row.OwnerKey, start, end)
		if !ok {
			d.log.Debug("vacation too short to black out", "ownerKey", row.OwnerKey, "start", row.StartDate)
			continue
		}
		d.store.AddVacation(vac)
	}

	subRows, err := d.rows.LoadRows(SourceSubmissions)
	if err != nil {
		return errors.Wrap(err, "loading submissions")
	}
	for i, fields := range subRows {
		if len(fields) < 6 {
			d.badRow(SourceSubmissions, i, "want 6 fields")
			continue
		}
		row := record.NewSubmissionRow{
			OwnerKey:     fields[0],
			AssignmentID: fields[1],
			Date:         fields[2],
			Head:         fields[3],
			Body:         fields[4],
			PostID:       fields[5],
		}
		if err := row.Validate(); err != nil {
			d.badRow(SourceSubmissions, i, err.Error())
			continue
		}
		date, _ := record.ParseDate(row.Date)
		d.store.AddSubmission(record.Submission{
			ID:           record.NewSubmissionID(row.OwnerKey, row.PostID, date),
			OwnerKey:     row.OwnerKey,
			AssignmentID: row.AssignmentID,
			Date:         date,
			Content:      record.SubmissionContent{Head: row.Head, Body: row.Body, PostID: row.PostID},
		})
	}
	return nil
}

func (d *Driver) badRow(source string, index int, reason string) {
	d.store.ThrowError(record.TagInvalidRow,
		fmt.Sprintf("%s row %d: %s", source, index+1, reason),
		[]string{"skip_error"},
		map[string]string{"source": source, "row": strconv.Itoa(index + 1)})
}

func (d *Driver) generateSchedules() error {
	introID := core.Conf.GetString("introAssignment")
	base := core.Conf.GetString("weeklyAssignmentBase")
	lastID := core.Conf.GetString("lastAssignment")

	for _, usr := range d.store.Users() {
		schedule.AssignOnce(d.store, usr, introID, usr.Schedule.FirstSunday)
		if err := schedule.AssignWeekly(d.store, usr, base); err != nil {
			return err
		}
		schedule.AssignOnce(d.store, usr, lastID, usr.Schedule.LastSunday)
	}
	return nil
}

func (d *Driver) logBreakdown() {
	breakdown := d.store.ErrorBreakdown()
	parts := make([]string, 0, len(breakdown))
	for tag, n := range breakdown {
		parts = append(parts, fmt.Sprintf("%s=%d", tag, n))
	}
	d.log.Info("unresolved errors", "count", len(d.store.Errors()), "breakdown", strings.Join(parts, " "))
}

// escalate walks the unresolved errors and lets the operator build
// corrective reviews. Aborting one prompt returns to the list; it never
// kills the run.
func (d *Driver) escalate() []record.Review {
	var built []record.Review
	for _, e := range d.store.Errors() {
		rev, err := d.builder.BuildFor(e)
		if err == core.ErrEscalationAborted {
			d.log.Debug("escalation prompt aborted", "errorID", e.ID)
			continue
		}
		if err != nil {
			d.log.Error("building review failed", "errorID", e.ID, "err", err)
			continue
		}
		if rev != nil {
			built = append(built, *rev)
		}
	}
	return built
}

func (d *Driver) emitReports() error {
	header := []string{"user_id", "name", "weeks", "slips_used", "slips_remaining", "mean", "median", "progress"}
	rows := make([][]string, 0, len(d.stats))
	for _, st := range d.stats {
		usr := d.store.GetUserByID(st.UserID)
		rows = append(rows, []string{
			st.UserID, usr.Name, strconv.Itoa(usr.Schedule.Weeks),
			strconv.Itoa(st.Used), strconv.Itoa(st.Remaining),
			strconv.FormatFloat(st.Mean, 'f', 2, 64),
			strconv.FormatFloat(st.Median, 'f', 2, 64),
			strconv.FormatFloat(st.Progress(), 'f', 2, 64),
		})
	}
	if err := d.report.EmitReport("slips", header, rows); err != nil {
		return errors.Wrap(err, "emitting slip report")
	}

	detailHeader := []string{"user_id", "assignment_id", "due", "status", "slip_days", "submission_id"}
	detail := make([][]string, 0)
	for _, a := range d.store.Assignments() {
		subID := ""
		if a.Attributes.Submission != nil {
			subID = a.Attributes.Submission.ID
		}
		detail = append(detail, []string{
			a.UserID, a.ID, record.FormatDate(a.DueDate),
			string(a.Attributes.Status), strconv.Itoa(a.Attributes.SlipDays), subID,
		})
	}
	if err := d.report.EmitReport("assignments", detailHeader, detail); err != nil {
		return errors.Wrap(err, "emitting assignment report")
	}

	if core.Conf.GetBool("debug") {
		for _, tbl := range d.store.OutputLog() {
			if err := d.report.EmitReport("debug_"+tbl.Name, tbl.Header, tbl.Rows); err != nil {
				return errors.Wrap(err, "emitting debug dump")
			}
		}
	}
	return nil
}
