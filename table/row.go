// Package table holds result rows and reads and writes delimited
// tables of them.
package table

import (
	"strconv"
)

// NA is written for fields missing from a row.
const NA = "NA"

// Field is a named value of a row.
type Field struct {
	Name  string
	Value string
}

// Row is an ordered mapping from field names to values. Setting an
// existing field keeps its position.
type Row struct {
	fields []Field
	index  map[string]int
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{index: make(map[string]int)}
}

// Set sets the value of a field.
func (r *Row) Set(name, value string) {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{name, value})
}

// SetFloat sets a field to the shortest representation of v.
func (r *Row) SetFloat(name string, v float64) {
	r.Set(name, strconv.FormatFloat(v, 'g', -1, 64))
}

// SetInt sets a field to an integer value.
func (r *Row) SetInt(name string, v int) {
	r.Set(name, strconv.Itoa(v))
}

// Get returns the value of a field.
func (r *Row) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Float returns the value of a field parsed as a number.
func (r *Row) Float(name string) (float64, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, &MissingFieldError{Name: name}
	}
	return strconv.ParseFloat(v, 64)
}

// Names returns the field names in insertion order.
func (r *Row) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns the fields in insertion order. The slice must not be
// modified.
func (r *Row) Fields() []Field {
	return r.fields
}

// Len returns the number of fields.
func (r *Row) Len() int {
	return len(r.fields)
}

// MissingFieldError is returned when a field is not in a row.
type MissingFieldError struct {
	Name string
}

func (e *MissingFieldError) Error() string {
	return "no field " + strconv.Quote(e.Name)
}
