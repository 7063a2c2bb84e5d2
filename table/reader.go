package table

import (
	"encoding/csv"
	"io"
)

// NewReader returns a reader for delimited tables. Every record must
// have as many fields as the header.
func NewReader(r io.Reader, delim rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = 0
	return cr
}

// ReadHeader returns the first record of a table.
func ReadHeader(r io.Reader, delim rune) ([]string, error) {
	header, err := NewReader(r, delim).Read()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	return header, err
}
