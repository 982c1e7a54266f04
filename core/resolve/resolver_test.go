package resolve

import (
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/tests"
)

func date(y int, m time.Month, d int) time.Time { return testutil.Date(y, m, d) }

func setup(t *testing.T) (*record.Store, *record.User) {
	t.Helper()
	s := record.NewStore()
	usr := testutil.CreateUser(t, s, "U1", "Ada Lovelace", []string{"ada@test.cd"},
		date(2024, 1, 15), date(2024, 3, 1), 2)
	schedule.AssignOnce(s, usr, "intro", usr.Schedule.FirstSunday)
	if err := schedule.AssignWeekly(s, usr, "week"); err != nil {
		t.Fatalf("setup: AssignWeekly() error = %v", err)
	}
	schedule.AssignOnce(s, usr, "last", usr.Schedule.LastSunday)
	return s, usr
}

func addSub(t *testing.T, s *record.Store, owner, assignmentID, postID string, d time.Time, head, body string) *record.Submission {
	t.Helper()
	return testutil.CreateSubmission(t, s, owner, assignmentID, d, head, body, postID)
}

func TestResolver_unownedSubmission(t *testing.T) {
	s, _ := setup(t)
	addSub(t, s, "x@example.com", "", "p1", date(2024, 1, 22), "", "")

	NewResolver(s, core.NewNopLogger()).Resolve()

	errs := s.Errors()
	if len(errs) != 1 {
		t.Fatalf("len(Errors()) = %d, want 1", len(errs))
	}
	if errs[0].Tag != record.TagUnownedSubmission {
		t.Errorf("tag = %s, want %s", errs[0].Tag, record.TagUnownedSubmission)
	}
	if errs[0].Context["ownerKey"] != "x@example.com" || errs[0].Context["submissionID"] == "" {
		t.Errorf("context = %v", errs[0].Context)
	}
}

func TestResolver_byIntro(t *testing.T) {
	s, _ := setup(t)
	sub := addSub(t, s, "ada@test.cd", "", "p1", date(2024, 1, 18), "Ada Lovelace", "hello")
	other := addSub(t, s, "ada@test.cd", "", "p2", date(2024, 1, 18), "My first week", "wk1")

	NewResolver(s, core.NewNopLogger()).Resolve()

	if sub.AssignmentID != "intro" {
		t.Errorf("intro submission assigned to %q", sub.AssignmentID)
	}
	if other.AssignmentID == "intro" {
		t.Error("non-matching header must not become intro")
	}
}

func TestResolver_byLast(t *testing.T) {
	s, _ := setup(t)
	// user's weekly assignments top out at week[6]; a week[7] bucket means "last"
	sub := addSub(t, s, "ada@test.cd", "week[7]", "p9", date(2024, 3, 1), "", "bye")

	NewResolver(s, core.NewNopLogger()).Resolve()

	if sub.AssignmentID != "last" {
		t.Errorf("week[7] submission assigned to %q, want last", sub.AssignmentID)
	}
}

func TestResolver_byPostNumber(t *testing.T) {
	s, _ := setup(t)
	assigned := addSub(t, s, "ada@test.cd", "week[3]", "p42", date(2024, 2, 4), "", "v1")
	floating := addSub(t, s, "ada@test.cd", "", "p42", date(2024, 2, 6), "", "v2")

	NewResolver(s, core.NewNopLogger()).Resolve()

	if floating.AssignmentID != "week[3]" {
		t.Errorf("floating submission assigned to %q, want week[3]", floating.AssignmentID)
	}
	if assigned.AssignmentID != "week[3]" {
		t.Errorf("assigned submission moved to %q", assigned.AssignmentID)
	}
	if len(s.Errors()) != 0 {
		t.Errorf("unexpected errors: %v", s.Errors())
	}
}

func TestResolver_byHeader_baseElection(t *testing.T) {
	s, _ := setup(t)
	// week[1] due 2024-01-21
	early := addSub(t, s, "ada@test.cd", "week[1]", "p1", date(2024, 1, 19), "", "draft")
	late := addSub(t, s, "ada@test.cd", "week[1]", "p2", date(2024, 1, 23), "", "final")

	NewResolver(s, core.NewNopLogger()).Resolve()

	a := s.GetAssignment("U1", "week[1]")
	if a.Attributes.Submission != early {
		t.Errorf("base submission = %v, want the earlier-than-due one at equal distance", a.Attributes.Submission)
	}
	_ = late
}

func TestResolver_byHeader_majorEditKeepsBase(t *testing.T) {
	s, _ := setup(t)
	base := addSub(t, s, "ada@test.cd", "week[1]", "p1", date(2024, 1, 21), "", "original text")
	addSub(t, s, "ada@test.cd", "week[1]", "p2", date(2024, 1, 30), "", "completely rewritten")

	NewResolver(s, core.NewNopLogger()).Resolve()

	a := s.GetAssignment("U1", "week[1]")
	if a.Attributes.Submission != base {
		t.Error("major edit must keep the base submission")
	}
}

func TestResolver_flagUnassigned(t *testing.T) {
	s, _ := setup(t)
	sub := addSub(t, s, "ada@test.cd", "", "p1", date(2024, 2, 6), "???", "?")

	NewResolver(s, core.NewNopLogger()).Resolve()

	errs := s.Errors()
	if len(errs) != 1 {
		t.Fatalf("len(Errors()) = %d, want 1", len(errs))
	}
	if errs[0].Tag != record.TagUnassignedSubmission {
		t.Errorf("tag = %s", errs[0].Tag)
	}
	if errs[0].Context["submissionID"] != sub.ID {
		t.Errorf("context = %v", errs[0].Context)
	}
}
