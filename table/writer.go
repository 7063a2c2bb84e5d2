package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
)

// Writer writes rows as a delimited table. The header is taken from
// the first row. Later rows are written by field name; fields missing
// from a row are written as NA, fields not in the header are an error.
type Writer struct {
	mu     sync.Mutex
	cw     *csv.Writer
	header []string
	index  map[string]int
	rows   int
}

// NewWriter creates a writer using delim as the field separator.
func NewWriter(w io.Writer, delim rune) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	return &Writer{cw: cw}
}

// Write writes one row. It is safe for concurrent use.
func (w *Writer) Write(r *Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.header == nil {
		w.header = r.Names()
		w.index = make(map[string]int, len(w.header))
		for i, name := range w.header {
			w.index[name] = i
		}
		if err := w.cw.Write(w.header); err != nil {
			return err
		}
	}
	record := make([]string, len(w.header))
	for i := range record {
		record[i] = NA
	}
	for _, f := range r.Fields() {
		i, ok := w.index[f.Name]
		if !ok {
			return fmt.Errorf("row %d: field %q is not in the header", w.rows+1, f.Name)
		}
		record[i] = f.Value
	}
	if err := w.cw.Write(record); err != nil {
		return err
	}
	w.rows++
	// rows are flushed one by one so that the table grows as results
	// arrive
	w.cw.Flush()
	return w.cw.Error()
}

// Header returns the header, nil before the first row.
func (w *Writer) Header() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.header
}

// Rows returns the number of rows written.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Flush flushes buffered data.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cw.Flush()
	return w.cw.Error()
}

// IncompleteSuffix marks a result table which is still being written or
// whose run failed.
const IncompleteSuffix = ".incomplete"

// File is a result table written to path+IncompleteSuffix and moved to
// path by Commit.
type File struct {
	*Writer
	path string
	f    *os.File
	done bool
}

// Create creates the incomplete table file for path.
func Create(path string, delim rune) (*File, error) {
	f, err := os.Create(path + IncompleteSuffix)
	if err != nil {
		return nil, err
	}
	return &File{Writer: NewWriter(f, delim), path: path, f: f}, nil
}

// Path returns the final path of the table.
func (f *File) Path() string {
	return f.path
}

// Commit closes the table and renames it to its final path.
func (f *File) Commit() error {
	if f.done {
		return nil
	}
	f.done = true
	if err := f.Flush(); err != nil {
		f.f.Close()
		return err
	}
	if err := f.f.Close(); err != nil {
		return err
	}
	return os.Rename(f.path+IncompleteSuffix, f.path)
}

// Abort closes the table, leaving it flagged as incomplete.
func (f *File) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	err := f.Flush()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	return err
}
