package fsc

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gerenuk/gerenuk/table"
)

// ParseError reports a malformed engine output file.
type ParseError struct {
	File   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// lines splits the content of a file into lines and drops a trailing
// newline.
func lines(data []byte) []string {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func trimCR(s string) string {
	return strings.TrimRight(s, "\r")
}

// ParseSpectrum reads a single deme spectrum: a title line, a line of
// bin labels and a line of counts. Every non-empty count becomes the
// field <prefix>.<label> of row.
func ParseSpectrum(r io.Reader, name, prefix string, row *table.Row) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	ls := lines(data)
	if len(ls) != 3 {
		return &ParseError{File: name, Reason: fmt.Sprintf("expected 3 lines, found %d", len(ls))}
	}
	keys := strings.Split(trimCR(ls[1]), "\t")
	values := strings.Split(trimCR(ls[2]), "\t")
	if len(keys) != len(values) {
		return &ParseError{File: name, Line: 3,
			Reason: fmt.Sprintf("%d bin labels but %d values", len(keys), len(values))}
	}
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return &ParseError{File: name, Line: 3, Reason: fmt.Sprintf("bad value %q", v)}
		}
		row.Set(prefix+"."+strings.TrimSpace(keys[i]), v)
	}
	return nil
}

// ParseJointSpectrum reads a two deme spectrum: a title line, a line of
// column labels after an empty corner cell, and one line per row
// starting with the row label. Every non-empty cell becomes the field
// <prefix>.<rowlabel>.<collabel> of row.
func ParseJointSpectrum(r io.Reader, name, prefix string, row *table.Row) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	ls := lines(data)
	if len(ls) < 2 {
		return &ParseError{File: name, Reason: fmt.Sprintf("expected at least 2 lines, found %d", len(ls))}
	}
	colKeys := strings.Split(trimCR(ls[1]), "\t")[1:]
	for n, line := range ls[2:] {
		line = trimCR(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != len(colKeys)+1 {
			return &ParseError{File: name, Line: n + 3,
				Reason: fmt.Sprintf("%d columns, expected %d", len(cols), len(colKeys)+1)}
		}
		rowKey := strings.TrimSpace(cols[0])
		for i, v := range cols[1:] {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return &ParseError{File: name, Line: n + 3, Reason: fmt.Sprintf("bad value %q", v)}
			}
			row.Set(prefix+"."+rowKey+"."+strings.TrimSpace(colKeys[i]), v)
		}
	}
	return nil
}

// parseFile opens path and parses it with parse.
func parseFile(path, prefix string, row *table.Row,
	parse func(io.Reader, string, string, *table.Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &ParseError{File: path, Reason: "missing output file"}
	}
	defer f.Close()
	return parse(f, path, prefix, row)
}
