package record

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
)

// Schedule is the per-user weekly calendar, derived once at User creation
// and never mutated afterward.
type Schedule struct {
	StartDate   time.Time
	EndDate     time.Time
	Weeks       int
	StartSunday time.Time
	FirstSunday time.Time
	LastSunday  time.Time
}

// User identity is immutable once created; only Attributes and OwnerKeys
// (via reviews) may change.
type User struct {
	ID         string
	Name       string
	OwnerKeys  []string
	Schedule   Schedule
	Attributes map[string]interface{}
}

func (u *User) HasOwnerKey(key string) bool {
	key = core.CleanString(key, true /* lower */)
	for _, k := range u.OwnerKeys {
		if core.CleanString(k, true /* lower */) == key {
			return true
		}
	}
	return false
}

// AddOwnerKey appends `key` unless already present.
func (u *User) AddOwnerKey(key string) {
	if !u.HasOwnerKey(key) {
		u.OwnerKeys = append(u.OwnerKeys, core.CleanString(key))
	}
}

type AssignmentStatus string

const (
	StatusPending AssignmentStatus = "PENDING"
	StatusDone    AssignmentStatus = "DONE"
	StatusMissing AssignmentStatus = "MISSING"
)

type (
	AssignmentAttributes struct {
		Status     AssignmentStatus
		SlipDays   int
		Submission *Submission // the submission that satisfies this assignment
	}

	// Assignment is keyed by (UserID, ID); DueDate is shiftable by vacations.
	Assignment struct {
		UserID     string
		ID         string
		DueDate    time.Time
		Attributes AssignmentAttributes
	}
)

func (a *Assignment) Key() string {
	return a.UserID + "/" + a.ID
}

// UnassignedBucket is the provisional assignment id of submissions the
// parser could not place.
const UnassignedBucket = "null"

type (
	// SubmissionContent holds the raw material the resolution heuristics
	// match on.
	SubmissionContent struct {
		Head   string
		Body   string
		PostID string // platform post id
	}

	Submission struct {
		ID           string
		OwnerKey     string
		AssignmentID string // mutable: provisional guess until resolved
		Date         time.Time
		Content      SubmissionContent
	}
)

func (s *Submission) IsUnassigned() bool {
	return s.AssignmentID == "" || s.AssignmentID == UnassignedBucket
}

// NewSubmissionID derives a stable id so re-parsing identical input
// reproduces the same submission ids across runs.
func NewSubmissionID(ownerKey, postID string, date time.Time) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%d", core.CleanString(ownerKey, true), postID, core.TruncateDay(date).Unix())
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// IgnoredTypeSuffix soft-disables a Review without deleting it: audits can
// still see it was overridden.
const IgnoredTypeSuffix = "!ignored"

// Review is an operator-authored correction, replayed on every run.
type Review struct {
	ID      string
	Date    time.Time
	Comment string
	Type    string
	Params  []string
}

func (r *Review) IsIgnored() bool {
	return strings.HasSuffix(r.Type, IgnoredTypeSuffix)
}

// Ignore suffixes the type so no handler matches it anymore.
func (r *Review) Ignore() {
	if !r.IsIgnored() {
		r.Type += IgnoredTypeSuffix
	}
}

// BaseType strips the ignore suffix, if any.
func (r *Review) BaseType() string {
	return strings.TrimSuffix(r.Type, IgnoredTypeSuffix)
}

// Vacation date ranges for one owner must be pairwise disjoint; the offset
// sweep relies on it and does not merge overlaps itself.
type Vacation struct {
	ID                 string
	OwnerKey           string
	UserStartDate      time.Time
	UserEndDate        time.Time
	EffectiveStartDate time.Time
	EffectiveEndDate   time.Time
}

type ErrorTag string

const (
	TagDuplicateKey         ErrorTag = "duplicate_key"
	TagUnownedSubmission    ErrorTag = "unowned_submission"
	TagUnassignedSubmission ErrorTag = "unassigned_submission"
	TagInvalidRow           ErrorTag = "invalid_row"
	TagUnknownReviewType    ErrorTag = "unknown_review_type"
	TagMalformedReview      ErrorTag = "malformed_review"
	TagReviewTargetMissing  ErrorTag = "review_target_missing"
)

// Error is a recorded data/review problem awaiting human review. It is
// never raised as a Go error.
type Error struct {
	ID      string
	Tag     ErrorTag
	Message string
	Options []string          // suggested fixes, free text
	Context map[string]string // structured data for review builders
}

func (e *Error) String() string {
	return string(e.Tag) + "(" + e.ID + "): " + e.Message
}

// Input rows, validated before entering the store. Cleaning happens first,
// validation second (invalid rows become recorded errors, not hard failures).

type NewUserRow struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	OwnerKeys []string `json:"owner_keys" validate:"owner_keys"`
	StartDate string   `json:"start_date" validate:"required,dateformat"`
	EndDate   string   `json:"end_date" validate:"required,dateformat"`
}

func (r *NewUserRow) Validate() error {
	r.ID = core.CleanString(r.ID)
	r.Name = core.CleanString(r.Name)
	for i := range r.OwnerKeys {
		r.OwnerKeys[i] = core.CleanString(r.OwnerKeys[i])
	}
	r.StartDate = core.CleanString(r.StartDate)
	r.EndDate = core.CleanString(r.EndDate)
	return core.Validate.Struct(r)
}

type NewSubmissionRow struct {
	OwnerKey     string `json:"owner_key" validate:"required"`
	AssignmentID string `json:"assignment_id"`
	Date         string `json:"date" validate:"required,dateformat"`
	Head         string `json:"head"`
	Body         string `json:"body"`
	PostID       string `json:"post_id" validate:"required"`
}

func (r *NewSubmissionRow) Validate() error {
	r.OwnerKey = core.CleanString(r.OwnerKey, true /* lower */)
	r.AssignmentID = core.CleanString(r.AssignmentID)
	r.Date = core.CleanString(r.Date)
	r.PostID = core.CleanString(r.PostID)
	return core.Validate.Struct(r)
}

type NewVacationRow struct {
	OwnerKey  string `json:"owner_key" validate:"required"`
	StartDate string `json:"start_date" validate:"required,dateformat"`
	EndDate   string `json:"end_date" validate:"required,dateformat"`
}

func (r *NewVacationRow) Validate() error {
	r.OwnerKey = core.CleanString(r.OwnerKey, true /* lower */)
	r.StartDate = core.CleanString(r.StartDate)
	r.EndDate = core.CleanString(r.EndDate)
	return core.Validate.Struct(r)
}

// ParseDate parses a validated YYYY-MM-DD field.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(core.DateFormat, s)
}

// FormatDate renders a date the way input rows carry it.
func FormatDate(t time.Time) string {
	return core.TruncateDay(t).Format(core.DateFormat)
}

// WeeklyID renders the n-th weekly assignment id, e.g. "week[3]".
func WeeklyID(base string, n int) string {
	return base + "[" + strconv.Itoa(n) + "]"
}

// ParseWeeklyID extracts n from a "base[n]" id; ok is false for any other shape.
func ParseWeeklyID(base, id string) (int, bool) {
	if !strings.HasPrefix(id, base+"[") || !strings.HasSuffix(id, "]") {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(base)+1 : len(id)-1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
