package record

import (
	"math/rand"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_AddUser_duplicate(t *testing.T) {
	s := NewStore()

	if usr := s.AddUser(User{ID: "U1", Name: "Ada"}); usr == nil {
		t.Fatal("AddUser() returned nil for a fresh id")
	}
	if usr := s.AddUser(User{ID: "U1", Name: "Imposter"}); usr != nil {
		t.Errorf("AddUser() = %v, want nil on duplicate", usr)
	}

	errs := s.Errors()
	if len(errs) != 1 {
		t.Fatalf("len(Errors()) = %d, want 1", len(errs))
	}
	if errs[0].Tag != TagDuplicateKey {
		t.Errorf("error tag = %s, want %s", errs[0].Tag, TagDuplicateKey)
	}
	if errs[0].Context["userID"] != "U1" {
		t.Errorf("error context = %v, want userID=U1", errs[0].Context)
	}
}

func TestStore_AddAssignment_duplicateKey(t *testing.T) {
	s := NewStore()

	a := s.AddAssignment(Assignment{UserID: "U1", ID: "week[1]", DueDate: date(2024, 1, 21)})
	if a == nil {
		t.Fatal("AddAssignment() returned nil for a fresh key")
	}
	// same assignment id for another user is fine
	if a := s.AddAssignment(Assignment{UserID: "U2", ID: "week[1]"}); a == nil {
		t.Error("AddAssignment() returned nil for a different user")
	}
	if a := s.AddAssignment(Assignment{UserID: "U1", ID: "week[1]"}); a != nil {
		t.Error("AddAssignment() should return nil on duplicate (userID, assignmentID)")
	}
	if len(s.Errors()) != 1 {
		t.Errorf("len(Errors()) = %d, want 1", len(s.Errors()))
	}
}

func TestStore_submissionOrderInvariant(t *testing.T) {
	s := NewStore()

	// random insertion order must still yield a date-ascending bucket
	rnd := rand.New(rand.NewSource(42))
	days := rnd.Perm(50)
	for i, day := range days {
		base := date(2024, 1, 1).AddDate(0, 0, day)
		s.AddSubmission(Submission{
			ID:           NewSubmissionID("a@test.cd", string(rune('a'+i)), base),
			OwnerKey:     "a@test.cd",
			AssignmentID: "week[1]",
			Date:         base,
		})
	}

	subs := s.SubmissionsFor("a@test.cd", "week[1]")
	if len(subs) != 50 {
		t.Fatalf("len(SubmissionsFor()) = %d, want 50", len(subs))
	}
	for i := 1; i < len(subs); i++ {
		if subs[i].Date.Before(subs[i-1].Date) {
			t.Fatalf("bucket out of order at %d: %v before %v", i, subs[i].Date, subs[i-1].Date)
		}
	}
}

func TestStore_MoveSubmission(t *testing.T) {
	s := NewStore()

	early := s.AddSubmission(Submission{ID: "s1", OwnerKey: "a@test.cd", Date: date(2024, 1, 10)})
	s.AddSubmission(Submission{ID: "s2", OwnerKey: "a@test.cd", AssignmentID: "week[2]", Date: date(2024, 1, 5)})
	s.AddSubmission(Submission{ID: "s3", OwnerKey: "a@test.cd", AssignmentID: "week[2]", Date: date(2024, 1, 20)})

	if !early.IsUnassigned() {
		t.Fatal("submission without assignment should land in the null bucket")
	}
	s.MoveSubmission(early, "week[2]")

	if len(s.SubmissionsFor("a@test.cd", UnassignedBucket)) != 0 {
		t.Error("null bucket should be empty after move")
	}
	subs := s.SubmissionsFor("a@test.cd", "week[2]")
	if len(subs) != 3 {
		t.Fatalf("len(SubmissionsFor()) = %d, want 3", len(subs))
	}
	if subs[1] != early {
		t.Errorf("moved submission not inserted in date order: %v", subs)
	}
}

func TestStore_ThrowError(t *testing.T) {
	s := NewStore()

	ctx := map[string]string{"ownerKey": "x@example.com"}
	e1, err := s.ThrowError(TagUnownedSubmission, "no user for owner key", nil, ctx)
	if err != nil {
		t.Fatalf("ThrowError() error = %v", err)
	}

	// identical payload dedupes to the same record
	e2, err := s.ThrowError(TagUnownedSubmission, "no user for owner key", nil, ctx)
	if err != nil {
		t.Fatalf("ThrowError() error = %v", err)
	}
	if e1 != e2 {
		t.Errorf("identical payloads produced distinct errors: %s vs %s", e1.ID, e2.ID)
	}
	if len(s.Errors()) != 1 {
		t.Errorf("len(Errors()) = %d, want 1", len(s.Errors()))
	}

	// deterministic across stores
	other := NewStore()
	e3, _ := other.ThrowError(TagUnownedSubmission, "no user for owner key", nil, map[string]string{"ownerKey": "x@example.com"})
	if e3.ID != e1.ID {
		t.Errorf("error id not deterministic: %s vs %s", e3.ID, e1.ID)
	}
}

func TestStore_ThrowError_positionalFallback(t *testing.T) {
	s := NewStore()

	e1, _ := s.ThrowError(TagInvalidRow, "first", nil, nil)
	e2, _ := s.ThrowError(TagInvalidRow, "second", nil, nil)
	if e1.ID != "e001" || e2.ID != "e002" {
		t.Errorf("positional ids = %s, %s, want e001, e002", e1.ID, e2.ID)
	}

	// removing e001 makes the next positional id collide with e002;
	// the probe suffix must disambiguate
	s.RemoveErrorByID("e001")
	e3, err := s.ThrowError(TagInvalidRow, "third", nil, nil)
	if err != nil {
		t.Fatalf("ThrowError() error = %v", err)
	}
	if e3.ID != "e002~1" {
		t.Errorf("probed id = %s, want e002~1", e3.ID)
	}
}

func TestStore_ThrowError_collisionExhaustion(t *testing.T) {
	s := NewStore()
	s.maxIDIterations = 1

	if _, err := s.ThrowError(TagInvalidRow, "first", nil, nil); err != nil {
		t.Fatalf("ThrowError() error = %v", err)
	}
	// shrink the visible log so the next positional id collides with the
	// occupied e001 slot on its one and only probe
	s.errorOrder = nil

	_, err := s.ThrowError(TagInvalidRow, "second", nil, nil)
	if err == nil {
		t.Fatal("ThrowError() expected fatal error after probe exhaustion")
	}
	if s.Fatal() == nil {
		t.Error("Fatal() should latch the collision error")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.AddUser(User{ID: "U1"})
	s.AddVacation(Vacation{ID: "V1", OwnerKey: "a@test.cd"})
	s.ThrowError(TagInvalidRow, "boom", nil, nil)

	s.Clear()

	if len(s.Users()) != 0 || len(s.Errors()) != 0 || len(s.VacationsFor("a@test.cd")) != 0 {
		t.Error("Clear() left records behind")
	}
}

func TestStore_VacationsFor_sorted(t *testing.T) {
	s := NewStore()
	s.AddVacation(Vacation{ID: "V2", OwnerKey: "a@test.cd", EffectiveStartDate: date(2024, 3, 3)})
	s.AddVacation(Vacation{ID: "V1", OwnerKey: "A@test.cd", EffectiveStartDate: date(2024, 2, 4)})
	s.AddVacation(Vacation{ID: "V3", OwnerKey: "b@test.cd", EffectiveStartDate: date(2024, 1, 7)})

	vacs := s.VacationsFor("a@test.cd", "b@test.cd")
	if len(vacs) != 3 {
		t.Fatalf("len(VacationsFor()) = %d, want 3", len(vacs))
	}
	for i := 1; i < len(vacs); i++ {
		if vacs[i].EffectiveStartDate.Before(vacs[i-1].EffectiveStartDate) {
			t.Fatalf("vacations not sorted by effective start: %v", vacs)
		}
	}
}

func TestNewSubmissionID_deterministic(t *testing.T) {
	d := date(2024, 2, 6)
	id1 := NewSubmissionID("A@Test.cd ", "p42", d.Add(3*time.Hour))
	id2 := NewSubmissionID("a@test.cd", "p42", d)
	if id1 != id2 {
		t.Errorf("NewSubmissionID() not stable across case/time-of-day: %s vs %s", id1, id2)
	}
	if id1 == NewSubmissionID("a@test.cd", "p43", d) {
		t.Error("NewSubmissionID() should differ for a different post id")
	}
}

func TestParseWeeklyID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		want   int
		wantOK bool
	}{
		{name: "week 3", id: "week[3]", want: 3, wantOK: true},
		{name: "double digit", id: "week[12]", want: 12, wantOK: true},
		{name: "zero is invalid", id: "week[0]"},
		{name: "intro", id: "intro"},
		{name: "missing bracket", id: "week3"},
		{name: "junk index", id: "week[x]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := ParseWeeklyID("week", tt.id)
			if ok != tt.wantOK || n != tt.want {
				t.Errorf("ParseWeeklyID(%q) = (%d, %v), want (%d, %v)", tt.id, n, ok, tt.want, tt.wantOK)
			}
		})
	}
}
