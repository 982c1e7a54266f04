package review

import (
	"fmt"

	"github.com/trezcool/darasa/core/record"
	"github.com/trezcool/darasa/core/schedule"
)

// Built-in handlers. Each one catches its own per-review failures and
// converts them to recorded errors so one bad review never aborts the
// batch; the context always carries the offending key so the escalation
// loop can re-prompt with a corrected value.

func malformed(s *record.Store, rev *record.Review, reason string) {
	s.ThrowError(record.TagMalformedReview,
		fmt.Sprintf("review %s (%s): %s", rev.ID, rev.Type, reason),
		[]string{"ignore_review"},
		map[string]string{"reviewID": rev.ID})
}

func targetMissing(s *record.Store, rev *record.Review, key, value string) {
	s.ThrowError(record.TagReviewTargetMissing,
		fmt.Sprintf("review %s (%s): no %s %q", rev.ID, rev.Type, key, value),
		[]string{"ignore_review"},
		map[string]string{"reviewID": rev.ID, key: value})
}

// add_vacation [ownerKey, startDate, endDate]
type addVacationHandler struct{}

func (addVacationHandler) Type() string { return "add_vacation" }
func (addVacationHandler) Stage() Stage { return StageSetup }

func (addVacationHandler) Apply(s *record.Store, rev *record.Review) {
	if len(rev.Params) != 3 {
		malformed(s, rev, "want params [ownerKey, startDate, endDate]")
		return
	}
	start, err := record.ParseDate(rev.Params[1])
	if err != nil {
		malformed(s, rev, "bad start date "+rev.Params[1])
		return
	}
	end, err := record.ParseDate(rev.Params[2])
	if err != nil {
		malformed(s, rev, "bad end date "+rev.Params[2])
		return
	}
	// the vacation id derives from the review so replays dedupe onto the
	// same record instead of accumulating
	vac, ok := schedule.NewVacation("rev:"+rev.ID, rev.Params[0], start, end)
	if !ok {
		malformed(s, rev, "range too short to black out a work week")
		return
	}
	s.AddVacation(vac)
}

// ignore_review [targetReviewID]
type ignoreReviewHandler struct{}

func (ignoreReviewHandler) Type() string { return "ignore_review" }
func (ignoreReviewHandler) Stage() Stage { return StageSetup }

func (ignoreReviewHandler) Apply(s *record.Store, rev *record.Review) {
	if len(rev.Params) != 1 {
		malformed(s, rev, "want params [targetReviewID]")
		return
	}
	target := s.GetReviewByID(rev.Params[0])
	if target == nil {
		targetMissing(s, rev, "targetReviewID", rev.Params[0])
		return
	}
	if target.ID == rev.ID {
		malformed(s, rev, "review cannot ignore itself")
		return
	}
	target.Ignore()
}

// add_owner_key [userID, ownerKey]
type addOwnerKeyHandler struct{}

func (addOwnerKeyHandler) Type() string { return "add_owner_key" }
func (addOwnerKeyHandler) Stage() Stage { return StageSetup }

func (addOwnerKeyHandler) Apply(s *record.Store, rev *record.Review) {
	if len(rev.Params) != 2 {
		malformed(s, rev, "want params [userID, ownerKey]")
		return
	}
	usr := s.GetUserByID(rev.Params[0])
	if usr == nil {
		targetMissing(s, rev, "userID", rev.Params[0])
		return
	}
	usr.AddOwnerKey(rev.Params[1])
}

// set_assignment [submissionID, assignmentID]
type setAssignmentHandler struct{}

func (setAssignmentHandler) Type() string { return "set_assignment" }
func (setAssignmentHandler) Stage() Stage { return StagePreResolve }

func (setAssignmentHandler) Apply(s *record.Store, rev *record.Review) {
	if len(rev.Params) != 2 {
		malformed(s, rev, "want params [submissionID, assignmentID]")
		return
	}
	sub := s.GetSubmissionByID(rev.Params[0])
	if sub == nil {
		targetMissing(s, rev, "submissionID", rev.Params[0])
		return
	}
	s.MoveSubmission(sub, rev.Params[1])
}

// set_due_date [userID, assignmentID, date]
type setDueDateHandler struct{}

func (setDueDateHandler) Type() string { return "set_due_date" }
func (setDueDateHandler) Stage() Stage { return StagePreResolve }

func (setDueDateHandler) Apply(s *record.Store, rev *record.Review) {
	if len(rev.Params) != 3 {
		malformed(s, rev, "want params [userID, assignmentID, date]")
		return
	}
	due, err := record.ParseDate(rev.Params[2])
	if err != nil {
		malformed(s, rev, "bad date "+rev.Params[2])
		return
	}
	a := s.GetAssignment(rev.Params[0], rev.Params[1])
	if a == nil {
		targetMissing(s, rev, "assignmentID", rev.Params[0]+"/"+rev.Params[1])
		return
	}
	a.DueDate = due
}

// skip_error [errorID]
type skipErrorHandler struct{}

func (skipErrorHandler) Type() string { return "skip_error" }
func (skipErrorHandler) Stage() Stage { return StagePostResolve }

func (skipErrorHandler) Apply(s *record.Store, rev *record.Review) {
	if len(rev.Params) != 1 {
		malformed(s, rev, "want params [errorID]")
		return
	}
	// an absent target means the underlying problem got fixed upstream;
	// replaying the skip must stay silent then
	s.RemoveErrorByID(rev.Params[0])
}
