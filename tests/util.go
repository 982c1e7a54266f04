package testutil

import (
	"testing"
	"time"

	"github.com/trezcool/darasa/core/record"
	"github.com/trezcool/darasa/core/schedule"
)

// Date builds a UTC midnight timestamp, the only kind the audit handles.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateUser(
	t *testing.T,
	s *record.Store,
	id, name string,
	ownerKeys []string,
	start, end time.Time,
	threshold int,
) *record.User {
	t.Helper()
	usr := s.AddUser(record.User{
		ID:        id,
		Name:      name,
		OwnerKeys: ownerKeys,
		Schedule:  schedule.CreateSchedule(start, end, threshold),
	})
	if usr == nil {
		t.Fatalf("CreateUser(%s) failed: %v", id, s.Errors())
	}
	return usr
}

func CreateSubmission(
	t *testing.T,
	s *record.Store,
	ownerKey, assignmentID string,
	date time.Time,
	head, body, postID string,
) *record.Submission {
	t.Helper()
	sub := s.AddSubmission(record.Submission{
		ID:           record.NewSubmissionID(ownerKey, postID, date),
		OwnerKey:     ownerKey,
		AssignmentID: assignmentID,
		Date:         date,
		Content:      record.SubmissionContent{Head: head, Body: body, PostID: postID},
	})
	if sub == nil {
		t.Fatalf("CreateSubmission(%s) failed: %v", postID, s.Errors())
	}
	return sub
}
