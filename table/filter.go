package table

import (
	"io"
)

// FilterColumns copies the table in src to dst keeping only the
// columns of src whose names are in keep, in the order of src.
func FilterColumns(dst io.Writer, src io.Reader, keep []string, delim rune) error {
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[k] = true
	}
	cr := NewReader(src, delim)
	header, err := cr.Read()
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	if err != nil {
		return err
	}
	var cols []int
	for i, name := range header {
		if allowed[name] {
			cols = append(cols, i)
		}
	}
	cw := NewWriter(dst, delim).cw
	out := make([]string, len(cols))
	project := func(record []string) error {
		for j, i := range cols {
			out[j] = record[i]
		}
		return cw.Write(out)
	}
	if err := project(header); err != nil {
		return err
	}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := project(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
