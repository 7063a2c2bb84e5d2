// Package abc implements rejection sampling Approximate Bayesian
// Computation: simulated rows whose summary statistics are closest to
// the observed ones are kept as a sample of the posterior.
package abc

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/op/go-logging"

	"github.com/gerenuk/gerenuk/internal/logutil"
	"github.com/gerenuk/gerenuk/table"
)

// FieldError reports a problem with one column or cell of a table.
type FieldError struct {
	File   string
	Row    int
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d: field %q: %s", e.File, e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: field %q: %s", e.File, e.Field, e.Reason)
}

// Reference is the reference table of simulated rows. Fields starting
// with the stat prefix are summary statistics, all other fields are
// carried along. The field sets are fixed by the first file read.
type Reference struct {
	prefix   string
	delim    rune
	suppress bool
	log      *logging.Logger

	// LogFrequency is the number of rows between progress messages.
	LogFrequency int

	statFields  []string
	otherFields []string
	stats       [][]float64
	others      [][]string
}

// NewReference creates an empty reference table. If suppress is set,
// unknown columns of later files are ignored instead of rejected. A nil
// log discards messages.
func NewReference(prefix string, delim rune, suppress bool, log *logging.Logger) *Reference {
	return &Reference{
		prefix:   prefix,
		delim:    delim,
		suppress: suppress,
		log:      logutil.OrSilent(log, "abc"),
	}
}

// IsStat returns true if name is a summary statistic field.
func (t *Reference) IsStat(name string) bool {
	return strings.HasPrefix(name, t.prefix)
}

// StatFields returns the summary statistic fields in table order.
func (t *Reference) StatFields() []string { return t.statFields }

// OtherFields returns the other fields in table order.
func (t *Reference) OtherFields() []string { return t.otherFields }

// Len returns the number of rows.
func (t *Reference) Len() int { return len(t.stats) }

// Stats returns the statistic vector of row i.
func (t *Reference) Stats(i int) []float64 { return t.stats[i] }

// Others returns the other values of row i.
func (t *Reference) Others(i int) []string { return t.others[i] }

// ReadFile appends the rows of a file.
func (t *Reference) ReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Read(f, path)
}

// column is where a column of an input file goes.
type column struct {
	stat  bool
	index int
}

// Read appends the rows of a table read from r; name is used in
// errors.
func (t *Reference) Read(r io.Reader, name string) error {
	cr := table.NewReader(r, t.delim)
	header, err := cr.Read()
	if err == io.EOF {
		return &FieldError{File: name, Reason: "empty table"}
	}
	if err != nil {
		return err
	}
	cols, err := t.columns(header, name)
	if err != nil {
		return err
	}
	start := t.Len()
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &FieldError{File: name, Row: row, Reason: err.Error()}
		}
		stats := make([]float64, len(t.statFields))
		others := make([]string, len(t.otherFields))
		for i, c := range cols {
			switch {
			case c == nil:
			case c.stat:
				v, err := parseStat(record[i])
				if err != nil {
					return &FieldError{File: name, Row: row, Field: header[i], Reason: "not a number: " + record[i]}
				}
				stats[c.index] = v
			default:
				others[c.index] = record[i]
			}
		}
		t.stats = append(t.stats, stats)
		t.others = append(t.others, others)
		if f := t.LogFrequency; f > 0 && row%f == 0 {
			t.log.Infof("%s: %s rows read", name, humanize.Comma(int64(row)))
		}
	}
	t.log.Infof("%s: %s rows read, %s rows in reference table", name,
		humanize.Comma(int64(t.Len()-start)), humanize.Comma(int64(t.Len())))
	return nil
}

// parseStat parses a statistic cell. Empty spectrum cells are not
// reported by the engine and are written as NA; they count zero.
func parseStat(s string) (float64, error) {
	if s == table.NA {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// columns maps the header of a file to the table fields. The first file
// defines the fields.
func (t *Reference) columns(header []string, name string) ([]*column, error) {
	cols := make([]*column, len(header))
	if t.statFields == nil && t.otherFields == nil {
		for i, h := range header {
			if t.IsStat(h) {
				cols[i] = &column{stat: true, index: len(t.statFields)}
				t.statFields = append(t.statFields, h)
			} else {
				cols[i] = &column{index: len(t.otherFields)}
				t.otherFields = append(t.otherFields, h)
			}
		}
		if t.statFields == nil {
			t.statFields = []string{}
		}
		if t.otherFields == nil {
			t.otherFields = []string{}
		}
		return cols, nil
	}

	index := make(map[string]*column, len(t.statFields)+len(t.otherFields))
	for i, f := range t.statFields {
		index[f] = &column{stat: true, index: i}
	}
	for i, f := range t.otherFields {
		index[f] = &column{index: i}
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		c, ok := index[h]
		if !ok {
			if t.suppress {
				continue
			}
			return nil, &FieldError{File: name, Field: h, Reason: "unrecognized field"}
		}
		cols[i] = c
		seen[h] = true
	}
	for _, f := range append(append([]string{}, t.statFields...), t.otherFields...) {
		if !seen[f] {
			return nil, &FieldError{File: name, Field: f, Reason: "missing field"}
		}
	}
	return cols, nil
}
