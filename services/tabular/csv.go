package tabsvc

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/record"
	"github.com/trezcool/darasa/core/review"
)

// paramSep joins review params into a single CSV field.
const paramSep = "|"

type fileSource struct {
	dir string
}

var _ core.RowSource = (*fileSource)(nil)

// NewFileSource reads input rows from <dir>/<sourceID>.csv. A missing file
// is an empty dataset, not an error; the first row of each file is a header
// and is skipped.
func NewFileSource(dir string) core.RowSource {
	return &fileSource{dir: dir}
}

func (src *fileSource) LoadRows(sourceID string) ([][]string, error) {
	path := filepath.Join(src.dir, sourceID+".csv")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // arity is validated downstream, row by row
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

type fileSink struct {
	dir string
}

var _ core.ReportSink = (*fileSink)(nil)

// NewFileSink writes each report to <dir>/<name>.csv, creating the
// directory as needed and truncating any previous report.
func NewFileSink(dir string) core.ReportSink {
	return &fileSink{dir: dir}
}

func (sink *fileSink) EmitReport(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(sink.dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", sink.dir)
	}
	path := filepath.Join(sink.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	w.Flush()
	return w.Error()
}

type reviewLog struct {
	path string
}

var _ review.Log = (*reviewLog)(nil)

// NewReviewLog persists reviews to one append-only CSV file. Columns:
// id, date, type, params (| separated), comment.
func NewReviewLog(path string) review.Log {
	return &reviewLog{path: path}
}

func (l *reviewLog) LoadReviews() ([]record.Review, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", l.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	rows, err := r.ReadAll()
	if err != nil {
		// the review log is the system of record for corrections; a row we
		// cannot parse must stop the run, not be silently dropped
		return nil, core.NewCorruptReviewLogError(fmt.Sprintf("%s: %v", l.path, err))
	}

	reviews := make([]record.Review, 0, len(rows))
	for i, row := range rows {
		date, err := record.ParseDate(row[1])
		if err != nil {
			return nil, core.NewCorruptReviewLogError(
				fmt.Sprintf("%s row %d: bad date %q", l.path, i+1, row[1]))
		}
		var params []string
		if row[3] != "" {
			params = strings.Split(row[3], paramSep)
		}
		reviews = append(reviews, record.Review{
			ID:      row[0],
			Date:    date,
			Type:    row[2],
			Params:  params,
			Comment: row[4],
		})
	}
	return reviews, nil
}

func (l *reviewLog) SaveReviews(reviews ...record.Review) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(l.path))
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", l.path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, rev := range reviews {
		row := []string{rev.ID, record.FormatDate(rev.Date), rev.Type, strings.Join(rev.Params, paramSep), rev.Comment}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "writing %s", l.path)
		}
	}
	w.Flush()
	return w.Error()
}
