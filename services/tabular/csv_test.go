package tabsvc

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "tabsvc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestFileSource_LoadRows(t *testing.T) {
	dir := tempDir(t)
	data := "owner_key,start_date,end_date\nada@test.cd,2024-02-05,2024-02-09\n"
	if err := ioutil.WriteFile(filepath.Join(dir, "vacations.csv"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewFileSource(dir)

	rows, err := src.LoadRows("vacations")
	if err != nil {
		t.Fatalf("LoadRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("LoadRows() = %v, want 1 row after the header", rows)
	}
	if rows[0][0] != "ada@test.cd" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestFileSource_missingFileIsEmpty(t *testing.T) {
	src := NewFileSource(tempDir(t))
	rows, err := src.LoadRows("vacations")
	if err != nil || rows != nil {
		t.Errorf("LoadRows() = (%v, %v), want (nil, nil)", rows, err)
	}
}

func TestFileSink_EmitReport(t *testing.T) {
	dir := tempDir(t)
	sink := NewFileSink(filepath.Join(dir, "out"))

	err := sink.EmitReport("slips", []string{"user_id", "used"}, [][]string{{"U1", "6"}})
	if err != nil {
		t.Fatalf("EmitReport() error = %v", err)
	}
	got, err := ioutil.ReadFile(filepath.Join(dir, "out", "slips.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "user_id,used\nU1,6\n"
	if string(got) != want {
		t.Errorf("report = %q, want %q", got, want)
	}
}

func TestReviewLog_roundTrip(t *testing.T) {
	path := filepath.Join(tempDir(t), "reviews.csv")
	l := NewReviewLog(path)

	in := []record.Review{
		{ID: "R1", Date: time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC), Type: "skip_error", Params: []string{"abc123"}, Comment: "operator fix"},
		{ID: "R2", Date: time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC), Type: "add_vacation", Params: []string{"ada@test.cd", "2024-02-05", "2024-02-09"}},
	}
	if err := l.SaveReviews(in[0]); err != nil {
		t.Fatalf("SaveReviews() error = %v", err)
	}
	// second save must append, not truncate
	if err := l.SaveReviews(in[1]); err != nil {
		t.Fatalf("SaveReviews() error = %v", err)
	}

	got, err := l.LoadReviews()
	if err != nil {
		t.Fatalf("LoadReviews() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadReviews() = %d reviews, want 2", len(got))
	}
	if got[0].ID != "R1" || got[0].Type != "skip_error" || len(got[0].Params) != 1 || got[0].Params[0] != "abc123" {
		t.Errorf("first review = %+v", got[0])
	}
	if got[1].ID != "R2" || len(got[1].Params) != 3 {
		t.Errorf("second review = %+v", got[1])
	}
	if !got[1].Date.Equal(in[1].Date) {
		t.Errorf("date = %v, want %v", got[1].Date, in[1].Date)
	}
}

func TestReviewLog_missingFileIsEmpty(t *testing.T) {
	l := NewReviewLog(filepath.Join(tempDir(t), "reviews.csv"))
	got, err := l.LoadReviews()
	if err != nil || got != nil {
		t.Errorf("LoadReviews() = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestReviewLog_corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "wrong arity", data: "R1,2024-02-07,skip_error\n"},
		{name: "bad date", data: "R1,someday,skip_error,abc123,fix\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tempDir(t), "reviews.csv")
			if err := ioutil.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewReviewLog(path).LoadReviews()
			if !core.IsFatal(err) {
				t.Errorf("LoadReviews() error = %v, want a fatal corrupt-log error", err)
			}
		})
	}
}
