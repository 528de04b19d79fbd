// Package table writes extraction results as CSV.
package table

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// Value is a reduced band value that may be missing.
type Value struct {
	Float float64
	Valid bool
}

func Some(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Float: f, Valid: true}
}

func (v Value) MarshalCSV() (string, error) {
	if !v.Valid {
		return "", nil
	}
	return strconv.FormatFloat(v.Float, 'f', -1, 64), nil
}

func (v *Value) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("value %q: %w", s, err)
	}
	*v = Some(f)
	return nil
}

// Row is one reduced point.
type Row struct {
	Index      int               `csv:"index"`
	Longitude  float64           `csv:"Longitude"`
	Latitude   float64           `csv:"Latitude"`
	VV         Value             `csv:"VV"`
	VH         Value             `csv:"VH"`
	NDVI       Value             `csv:"NDVI"`
	// Attributes are the other input columns of the point.
	Attributes map[string]string `csv:"-"`
}

var reduced = map[string]bool{"index": true, "Longitude": true, "Latitude": true, "VV": true, "VH": true, "NDVI": true}

// Failure records a batch that produced no rows.
type Failure struct {
	Start    int    `csv:"start"`
	End      int    `csv:"end"`
	Attempts int    `csv:"attempts"`
	Reason   string `csv:"reason"`
}

// Filter keeps rows with an NDVI that is present and not exactly zero.
func Filter(rows []Row) []Row {
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.NDVI.Valid && r.NDVI.Float != 0 {
			kept = append(kept, r)
		}
	}
	return kept
}

// WriteRows writes the reduced columns followed by every attribute column
// found on the rows, sorted by name. A row without the attribute gets an
// empty cell.
func WriteRows(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	out := &attributeWriter{CSVWriter: gocsv.DefaultCSVWriter(w), rows: rows, columns: AttributeColumns(rows)}
	return gocsv.MarshalCSV(&rows, out)
}

// AttributeColumns lists the attribute names of rows, sorted, leaving out
// names that clash with a reduced column.
func AttributeColumns(rows []Row) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r.Attributes {
			if !seen[k] && !reduced[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// attributeWriter appends the attribute cells to each record gocsv writes.
// The first record is the header.
type attributeWriter struct {
	gocsv.CSVWriter
	rows    []Row
	columns []string
	n       int
}

func (aw *attributeWriter) Write(record []string) error {
	out := make([]string, 0, len(record)+len(aw.columns))
	out = append(out, record...)
	if aw.n == 0 {
		out = append(out, aw.columns...)
	} else {
		attrs := aw.rows[aw.n-1].Attributes
		for _, c := range aw.columns {
			out = append(out, attrs[c])
		}
	}
	aw.n++
	return aw.CSVWriter.Write(out)
}

func ReadRows(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func WriteFailures(w io.Writer, failed []Failure) error {
	if failed == nil {
		failed = []Failure{}
	}
	return gocsv.Marshal(&failed, w)
}

// FullName is the file name of the complete result table.
func FullName(start, end string) string {
	return fmt.Sprintf("Processed_Sentinel_Data_%s_%s.csv", start, end)
}

// FilteredName is the file name of the filtered table for an input file:
// filtered_<input stem>.csv.
func FilteredName(input string) string {
	base := filepath.Base(input)
	return "filtered_" + strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

// FailuresName is the file name of the failed batch list.
func FailuresName(start, end string) string {
	return fmt.Sprintf("failed_batches_%s_%s.csv", start, end)
}

// WriteFile creates path and writes with fn.
func WriteFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
