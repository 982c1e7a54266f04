package record

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/trezcool/darasa/core"
)

// Table is a header+rows dump of one sub-collection, fed to a ReportSink.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Store holds one run's typed records plus the deduplicated error log.
// It is rebuilt from raw inputs on every pipeline iteration; registered
// review handlers live outside of it and survive Clear().
type Store struct {
	sync.RWMutex
	maxIDIterations int
	fatal           error

	users     map[string]*User
	userOrder []string

	assignments     map[string]*Assignment
	assignmentOrder []string

	submissions     map[string]*Submission
	submissionOrder []string
	buckets         map[string][]*Submission // ownerKey/assignmentID -> date-ascending list

	reviews     map[string]*Review
	reviewOrder []string

	vacations   map[string]*Vacation
	vacsByOwner map[string][]*Vacation

	errors     map[string]*Error
	errorOrder []string
}

func NewStore() *Store {
	s := &Store{maxIDIterations: core.Conf.GetInt("maxErrorIDIterations")}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.fatal = nil
	s.users = make(map[string]*User)
	s.userOrder = nil
	s.assignments = make(map[string]*Assignment)
	s.assignmentOrder = nil
	s.submissions = make(map[string]*Submission)
	s.submissionOrder = nil
	s.buckets = make(map[string][]*Submission)
	s.reviews = make(map[string]*Review)
	s.reviewOrder = nil
	s.vacations = make(map[string]*Vacation)
	s.vacsByOwner = make(map[string][]*Vacation)
	s.errors = make(map[string]*Error)
	s.errorOrder = nil
}

// Clear empties every sub-collection for a fresh pipeline iteration.
func (s *Store) Clear() {
	s.Lock()
	defer s.Unlock()
	s.reset()
}

// Fatal returns the first unrecoverable defect hit by the store, if any.
func (s *Store) Fatal() error {
	s.RLock()
	defer s.RUnlock()
	return s.fatal
}

// Users

func (s *Store) AddUser(usr User) *User {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.users[usr.ID]; ok {
		s.throwError(TagDuplicateKey, fmt.Sprintf("duplicate user id %q", usr.ID),
			nil, map[string]string{"userID": usr.ID})
		return nil
	}
	if usr.Attributes == nil {
		usr.Attributes = make(map[string]interface{})
	}
	s.users[usr.ID] = &usr
	s.userOrder = append(s.userOrder, usr.ID)
	return &usr
}

func (s *Store) GetUserByID(id string) *User {
	s.RLock()
	defer s.RUnlock()
	return s.users[id]
}

// GetUserByOwnerKey finds the user owning `key`, nil when unmatched.
func (s *Store) GetUserByOwnerKey(key string) *User {
	s.RLock()
	defer s.RUnlock()

	for _, id := range s.userOrder {
		if s.users[id].HasOwnerKey(key) {
			return s.users[id]
		}
	}
	return nil
}

func (s *Store) Users() []*User {
	s.RLock()
	defer s.RUnlock()

	users := make([]*User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	return users
}

// Assignments

func (s *Store) AddAssignment(a Assignment) *Assignment {
	s.Lock()
	defer s.Unlock()

	key := a.Key()
	if _, ok := s.assignments[key]; ok {
		s.throwError(TagDuplicateKey, fmt.Sprintf("duplicate assignment %q", key),
			nil, map[string]string{"userID": a.UserID, "assignmentID": a.ID})
		return nil
	}
	s.assignments[key] = &a
	s.assignmentOrder = append(s.assignmentOrder, key)
	return &a
}

func (s *Store) GetAssignment(userID, assignmentID string) *Assignment {
	s.RLock()
	defer s.RUnlock()
	return s.assignments[userID+"/"+assignmentID]
}

func (s *Store) Assignments() []*Assignment {
	s.RLock()
	defer s.RUnlock()

	assignments := make([]*Assignment, 0, len(s.assignmentOrder))
	for _, key := range s.assignmentOrder {
		assignments = append(assignments, s.assignments[key])
	}
	return assignments
}

func (s *Store) AssignmentsByUser(userID string) []*Assignment {
	s.RLock()
	defer s.RUnlock()

	var assignments []*Assignment
	for _, key := range s.assignmentOrder {
		if a := s.assignments[key]; a.UserID == userID {
			assignments = append(assignments, a)
		}
	}
	return assignments
}

// Submissions

func bucketKey(ownerKey, assignmentID string) string {
	if assignmentID == "" {
		assignmentID = UnassignedBucket
	}
	return core.CleanString(ownerKey, true /* lower */) + "/" + assignmentID
}

func (s *Store) AddSubmission(sub Submission) *Submission {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.submissions[sub.ID]; ok {
		s.throwError(TagDuplicateKey, fmt.Sprintf("duplicate submission id %q", sub.ID),
			nil, map[string]string{"submissionID": sub.ID})
		return nil
	}
	if sub.AssignmentID == "" {
		sub.AssignmentID = UnassignedBucket
	}
	s.submissions[sub.ID] = &sub
	s.submissionOrder = append(s.submissionOrder, sub.ID)
	key := bucketKey(sub.OwnerKey, sub.AssignmentID)
	s.buckets[key] = insertByDate(s.buckets[key], &sub)
	return &sub
}

func (s *Store) GetSubmissionByID(id string) *Submission {
	s.RLock()
	defer s.RUnlock()
	return s.submissions[id]
}

func (s *Store) Submissions() []*Submission {
	s.RLock()
	defer s.RUnlock()

	subs := make([]*Submission, 0, len(s.submissionOrder))
	for _, id := range s.submissionOrder {
		subs = append(subs, s.submissions[id])
	}
	return subs
}

// SubmissionsFor returns the date-ascending list for one owner+assignment.
func (s *Store) SubmissionsFor(ownerKey, assignmentID string) []*Submission {
	s.RLock()
	defer s.RUnlock()
	return s.buckets[bucketKey(ownerKey, assignmentID)]
}

// MoveSubmission reassigns `sub` and rebuckets it, preserving each bucket's
// date order with an ordered insert rather than a re-sort.
func (s *Store) MoveSubmission(sub *Submission, assignmentID string) {
	s.Lock()
	defer s.Unlock()

	if assignmentID == "" {
		assignmentID = UnassignedBucket
	}
	oldKey := bucketKey(sub.OwnerKey, sub.AssignmentID)
	s.buckets[oldKey] = removeSubmission(s.buckets[oldKey], sub)
	sub.AssignmentID = assignmentID
	newKey := bucketKey(sub.OwnerKey, assignmentID)
	s.buckets[newKey] = insertByDate(s.buckets[newKey], sub)
}

func insertByDate(list []*Submission, sub *Submission) []*Submission {
	i := sort.Search(len(list), func(i int) bool { return list[i].Date.After(sub.Date) })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = sub
	return list
}

func removeSubmission(list []*Submission, sub *Submission) []*Submission {
	for i, cur := range list {
		if cur == sub {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Reviews

func (s *Store) AddReview(rev Review) *Review {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.reviews[rev.ID]; ok {
		s.throwError(TagDuplicateKey, fmt.Sprintf("duplicate review id %q", rev.ID),
			nil, map[string]string{"reviewID": rev.ID})
		return nil
	}
	s.reviews[rev.ID] = &rev
	s.reviewOrder = append(s.reviewOrder, rev.ID)
	return &rev
}

func (s *Store) GetReviewByID(id string) *Review {
	s.RLock()
	defer s.RUnlock()
	return s.reviews[id]
}

func (s *Store) Reviews() []*Review {
	s.RLock()
	defer s.RUnlock()

	reviews := make([]*Review, 0, len(s.reviewOrder))
	for _, id := range s.reviewOrder {
		reviews = append(reviews, s.reviews[id])
	}
	return reviews
}

// Vacations

func (s *Store) AddVacation(vac Vacation) *Vacation {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.vacations[vac.ID]; ok {
		s.throwError(TagDuplicateKey, fmt.Sprintf("duplicate vacation id %q", vac.ID),
			nil, map[string]string{"vacationID": vac.ID})
		return nil
	}
	vac.OwnerKey = core.CleanString(vac.OwnerKey, true /* lower */)
	s.vacations[vac.ID] = &vac
	s.vacsByOwner[vac.OwnerKey] = append(s.vacsByOwner[vac.OwnerKey], &vac)
	return &vac
}

// VacationsFor collects the vacations of all given owner keys, sorted by
// effective start date ascending.
func (s *Store) VacationsFor(ownerKeys ...string) []*Vacation {
	s.RLock()
	defer s.RUnlock()

	var vacs []*Vacation
	for _, key := range ownerKeys {
		vacs = append(vacs, s.vacsByOwner[core.CleanString(key, true)]...)
	}
	sort.SliceStable(vacs, func(i, j int) bool {
		return vacs[i].EffectiveStartDate.Before(vacs[j].EffectiveStartDate)
	})
	return vacs
}

// Errors

// ThrowError records a data/review error under a deterministic id.
// Re-throwing an identical payload dedupes silently. A differing payload
// colliding on the same id probes suffixed ids up to maxErrorIDIterations;
// exhausting the probes is a caller bug and comes back as a fatal error.
func (s *Store) ThrowError(tag ErrorTag, message string, opts []string, ctx map[string]string) (*Error, error) {
	s.Lock()
	defer s.Unlock()
	return s.throwError(tag, message, opts, ctx)
}

func (s *Store) throwError(tag ErrorTag, message string, opts []string, ctx map[string]string) (*Error, error) {
	base := s.errorBaseID(tag, message, ctx)

	id := base
	for i := 0; i < s.maxIDIterations; i++ {
		existing, ok := s.errors[id]
		if !ok {
			e := &Error{ID: id, Tag: tag, Message: message, Options: opts, Context: ctx}
			s.errors[id] = e
			s.errorOrder = append(s.errorOrder, id)
			return e, nil
		}
		if existing.Tag == tag && existing.Message == message && sameContext(existing.Context, ctx) {
			return existing, nil // dedupe
		}
		id = base + "~" + strconv.Itoa(i+1)
	}
	err := core.NewIDCollisionError(fmt.Sprintf("error id %q: %d collision probes exhausted", base, s.maxIDIterations))
	if s.fatal == nil {
		s.fatal = err
	}
	return nil, err
}

// errorBaseID hashes the caller-supplied context when available and falls
// back to the log position otherwise.
func (s *Store) errorBaseID(tag ErrorTag, message string, ctx map[string]string) string {
	if len(ctx) == 0 {
		return fmt.Sprintf("e%03d", len(s.errorOrder)+1)
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha1.New()
	fmt.Fprintf(h, "%s|%s", tag, message)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, ctx[k])
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

func sameContext(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (s *Store) GetErrorByID(id string) *Error {
	s.RLock()
	defer s.RUnlock()
	return s.errors[id]
}

func (s *Store) Errors() []*Error {
	s.RLock()
	defer s.RUnlock()

	errs := make([]*Error, 0, len(s.errorOrder))
	for _, id := range s.errorOrder {
		errs = append(errs, s.errors[id])
	}
	return errs
}

// RemoveErrorByID drops one recorded error; used by the skip_error review.
func (s *Store) RemoveErrorByID(id string) bool {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.errors[id]; !ok {
		return false
	}
	delete(s.errors, id)
	for i, cur := range s.errorOrder {
		if cur == id {
			s.errorOrder = append(s.errorOrder[:i], s.errorOrder[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) ClearErrors() {
	s.Lock()
	defer s.Unlock()
	s.errors = make(map[string]*Error)
	s.errorOrder = nil
}

// ErrorBreakdown counts recorded errors per tag.
func (s *Store) ErrorBreakdown() map[ErrorTag]int {
	s.RLock()
	defer s.RUnlock()

	breakdown := make(map[ErrorTag]int)
	for _, id := range s.errorOrder {
		breakdown[s.errors[id].Tag]++
	}
	return breakdown
}

// OutputLog dumps every sub-collection as header+rows tables for debugging.
func (s *Store) OutputLog() []Table {
	s.RLock()
	defer s.RUnlock()

	users := Table{Name: "users", Header: []string{"id", "name", "owner_keys", "start", "end", "weeks"}}
	for _, id := range s.userOrder {
		u := s.users[id]
		users.Rows = append(users.Rows, []string{
			u.ID, u.Name, fmt.Sprintf("%v", u.OwnerKeys),
			FormatDate(u.Schedule.StartDate), FormatDate(u.Schedule.EndDate), strconv.Itoa(u.Schedule.Weeks),
		})
	}

	assignments := Table{Name: "assignments", Header: []string{"user_id", "assignment_id", "due", "status", "slip_days"}}
	for _, key := range s.assignmentOrder {
		a := s.assignments[key]
		assignments.Rows = append(assignments.Rows, []string{
			a.UserID, a.ID, FormatDate(a.DueDate), string(a.Attributes.Status), strconv.Itoa(a.Attributes.SlipDays),
		})
	}

	submissions := Table{Name: "submissions", Header: []string{"id", "owner_key", "assignment_id", "date", "post_id"}}
	for _, id := range s.submissionOrder {
		sub := s.submissions[id]
		submissions.Rows = append(submissions.Rows, []string{
			sub.ID, sub.OwnerKey, sub.AssignmentID, FormatDate(sub.Date), sub.Content.PostID,
		})
	}

	reviews := Table{Name: "reviews", Header: []string{"id", "date", "type", "params", "comment"}}
	for _, id := range s.reviewOrder {
		r := s.reviews[id]
		reviews.Rows = append(reviews.Rows, []string{
			r.ID, FormatDate(r.Date), r.Type, fmt.Sprintf("%v", r.Params), r.Comment,
		})
	}

	errs := Table{Name: "errors", Header: []string{"id", "tag", "message"}}
	for _, id := range s.errorOrder {
		e := s.errors[id]
		errs.Rows = append(errs.Rows, []string{e.ID, string(e.Tag), e.Message})
	}

	return []Table{users, assignments, submissions, reviews, errs}
}
