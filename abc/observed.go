package abc

import (
	"io"
	"os"
	"strings"

	"github.com/gerenuk/gerenuk/table"
)

// ReadObservations reads the observed statistic vectors of a target
// table, one per row. Only fields starting with prefix are read.
func ReadObservations(r io.Reader, name, prefix string, delim rune) ([]Observation, error) {
	cr := table.NewReader(r, delim)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FieldError{File: name, Reason: "empty table"}
	}
	if err != nil {
		return nil, err
	}
	var cols []int
	var fields []string
	for i, h := range header {
		if strings.HasPrefix(h, prefix) {
			cols = append(cols, i)
			fields = append(fields, h)
		}
	}
	var obs []Observation
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FieldError{File: name, Row: row, Reason: err.Error()}
		}
		values := make([]float64, len(cols))
		for j, i := range cols {
			v, err := parseStat(record[i])
			if err != nil {
				return nil, &FieldError{File: name, Row: row, Field: header[i], Reason: "not a number: " + record[i]}
			}
			values[j] = v
		}
		obs = append(obs, Observation{Fields: fields, Values: values})
	}
	return obs, nil
}

// ReadObservationsFile reads the observed statistic vectors of a file.
func ReadObservationsFile(path, prefix string, delim rune) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadObservations(f, path, prefix, delim)
}
