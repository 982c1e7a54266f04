package resolve

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

// Resolver assigns free-floating submissions to assignment slots through an
// ordered, non-overlapping pass sequence. Submissions whose owner key
// matches no user are terminal errors; everything still unassigned after
// the last pass is recorded for human review.
type Resolver struct {
	store *record.Store
	log   core.Logger

	introID    string
	weeklyBase string
	lastID     string
}

func NewResolver(s *record.Store, log core.Logger) *Resolver {
	return &Resolver{
		store:      s,
		log:        log,
		introID:    core.Conf.GetString("introAssignment"),
		weeklyBase: core.Conf.GetString("weeklyAssignmentBase"),
		lastID:     core.Conf.GetString("lastAssignment"),
	}
}

// Resolve runs every pass in order. Per-item failures are recorded into the
// store's error log; one bad submission never aborts the batch.
func (r *Resolver) Resolve() {
	r.flagUnowned()
	r.byIntro()
	r.byLast()
	r.byPostNumber()
	r.byHeader()
	r.flagUnassigned()
}

// flagUnowned records a terminal error for every submission whose owner key
// matches no user. Later passes skip those submissions.
func (r *Resolver) flagUnowned() {
	for _, sub := range r.store.Submissions() {
		if r.store.GetUserByOwnerKey(sub.OwnerKey) == nil {
			r.store.ThrowError(record.TagUnownedSubmission,
				fmt.Sprintf("no user owns submission key %q", sub.OwnerKey),
				[]string{"add_owner_key", "skip_error"},
				map[string]string{"ownerKey": sub.OwnerKey, "submissionID": sub.ID})
		}
	}
}

// byIntro: an unassigned submission whose header equals the user's display
// name exactly is the intro post.
func (r *Resolver) byIntro() {
	for _, sub := range r.store.Submissions() {
		if !sub.IsUnassigned() {
			continue
		}
		usr := r.store.GetUserByOwnerKey(sub.OwnerKey)
		if usr == nil {
			continue
		}
		if sub.Content.Head == usr.Name {
			r.store.MoveSubmission(sub, r.introID)
		}
	}
}

// byLast: submissions provisionally bucketed one week past the user's final
// weekly assignment belong to the "last" slot.
func (r *Resolver) byLast() {
	for _, usr := range r.store.Users() {
		maxN := 0
		for _, a := range r.store.AssignmentsByUser(usr.ID) {
			if n, ok := record.ParseWeeklyID(r.weeklyBase, a.ID); ok && n > maxN {
				maxN = n
			}
		}
		if maxN == 0 {
			continue
		}
		overflowID := record.WeeklyID(r.weeklyBase, maxN+1)
		for _, key := range usr.OwnerKeys {
			// copy: moving rebuckets and would disturb the loop otherwise
			subs := append([]*record.Submission(nil), r.store.SubmissionsFor(key, overflowID)...)
			for _, sub := range subs {
				r.store.MoveSubmission(sub, r.lastID)
			}
		}
	}
}

// byPostNumber: an unassigned submission sharing a platform post id with an
// already-correctly-assigned submission from the same owner inherits that
// assignment.
func (r *Resolver) byPostNumber() {
	for _, sub := range r.store.Submissions() {
		if !sub.IsUnassigned() || sub.Content.PostID == "" {
			continue
		}
		usr := r.store.GetUserByOwnerKey(sub.OwnerKey)
		if usr == nil {
			continue
		}
		for _, other := range r.store.Submissions() {
			if other == sub || other.IsUnassigned() {
				continue
			}
			if !usr.HasOwnerKey(other.OwnerKey) || other.Content.PostID != sub.Content.PostID {
				continue
			}
			if r.store.GetAssignment(usr.ID, other.AssignmentID) == nil {
				continue // not a valid slot for this user
			}
			r.store.MoveSubmission(sub, other.AssignmentID)
			break
		}
	}
}

// byHeader: for every valid (user, assignment) pair, elect the base
// submission (nearest the due date, ties broken toward earlier-than-due) and
// compare it with the most recent one. An identical body is a minor edit; a
// differing body is a major edit. Both keep the base submission.
func (r *Resolver) byHeader() {
	for _, a := range r.store.Assignments() {
		usr := r.store.GetUserByID(a.UserID)
		if usr == nil {
			continue
		}
		var subs []*record.Submission
		for _, key := range usr.OwnerKeys {
			subs = append(subs, r.store.SubmissionsFor(key, a.ID)...)
		}
		if len(subs) == 0 {
			continue
		}

		base := electBase(subs, a)
		latest := subs[0]
		for _, sub := range subs[1:] {
			if sub.Date.After(latest.Date) {
				latest = sub
			}
		}

		if latest != base {
			ratio := difflib.NewMatcher(
				strings.Split(base.Content.Body, "\n"),
				strings.Split(latest.Content.Body, "\n"),
			).QuickRatio()
			if ratio < 1.0 {
				// major edit after the base pick; the base still wins
				r.log.Debug("major edit detected",
					"assignment", a.Key(), "base", base.ID, "latest", latest.ID, "ratio", ratio)
			}
		}
		a.Attributes.Submission = base
	}
}

// electBase picks the submission nearest the due date; at equal distance the
// earlier-than-due one wins over the later one.
func electBase(subs []*record.Submission, a *record.Assignment) *record.Submission {
	base := subs[0]
	baseDist := dueDistance(base, a)
	for _, sub := range subs[1:] {
		dist := dueDistance(sub, a)
		switch {
		case dist < baseDist:
			base, baseDist = sub, dist
		case dist == baseDist &&
			core.CompareDates(sub.Date, a.DueDate) <= 0 && core.CompareDates(base.Date, a.DueDate) > 0:
			base = sub
		}
	}
	return base
}

func dueDistance(sub *record.Submission, a *record.Assignment) int {
	if core.CompareDates(sub.Date, a.DueDate) <= 0 {
		return core.DaysUntil(sub.Date, a.DueDate)
	}
	return core.DaysUntil(a.DueDate, sub.Date)
}

// flagUnassigned records every submission that survived all passes without
// an assignment, with enough context for a corrective review.
func (r *Resolver) flagUnassigned() {
	for _, sub := range r.store.Submissions() {
		if !sub.IsUnassigned() {
			continue
		}
		if r.store.GetUserByOwnerKey(sub.OwnerKey) == nil {
			continue // already flagged as unowned
		}
		r.store.ThrowError(record.TagUnassignedSubmission,
			fmt.Sprintf("submission %s could not be matched to an assignment", sub.ID),
			[]string{"set_assignment", "skip_error"},
			map[string]string{"submissionID": sub.ID, "ownerKey": sub.OwnerKey})
	}
}
