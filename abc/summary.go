package abc

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/gerenuk/gerenuk/table"
)

// Parameter fields summarized as model frequencies rather than as
// numbers.
const (
	ModelField   = "param.divTimeModel"
	NumDivsField = "param.numDivTimes"
	paramPrefix  = "param."
	lowQuantile  = 0.025
	highQuantile = 0.975
)

// ParamSummary summarizes the posterior sample of one numeric
// parameter.
type ParamSummary struct {
	Name      string
	N         int
	Mean      float64
	Median    float64
	Low, High float64
}

// ModelFreq is the posterior frequency of one value of a categorical
// parameter.
type ModelFreq struct {
	Field     string
	Value     string
	Count     int
	Frequency float64
}

// Summarize summarizes the parameter columns of the retained rows.
// Columns with a value that is not a number are skipped, except for the
// divergence model columns which are counted.
func Summarize(ref *Reference, matches []Match) ([]ParamSummary, []ModelFreq) {
	var params []ParamSummary
	var models []ModelFreq
	for i, f := range ref.otherFields {
		if !strings.HasPrefix(f, paramPrefix) {
			continue
		}
		values := make([]string, len(matches))
		for j, m := range matches {
			values[j] = ref.others[m.Index][i]
		}
		if f == ModelField || f == NumDivsField {
			models = append(models, Frequencies(f, values)...)
			if f == ModelField {
				continue
			}
		}
		if s, ok := summarize(f, values); ok {
			params = append(params, s)
		}
	}
	return params, models
}

func summarize(name string, values []string) (ParamSummary, bool) {
	x := make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ParamSummary{}, false
		}
		x[i] = f
	}
	s := ParamSummary{Name: name, N: len(x)}
	if len(x) == 0 {
		return s, true
	}
	sort.Float64s(x)
	s.Mean = stat.Mean(x, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.Low = stat.Quantile(lowQuantile, stat.Empirical, x, nil)
	s.High = stat.Quantile(highQuantile, stat.Empirical, x, nil)
	return s, true
}

// Frequencies counts the values of a field, most frequent first. Ties
// are ordered by value.
func Frequencies(field string, values []string) []ModelFreq {
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	freqs := make([]ModelFreq, 0, len(counts))
	for v, c := range counts {
		freqs = append(freqs, ModelFreq{
			Field:     field,
			Value:     v,
			Count:     c,
			Frequency: float64(c) / float64(len(values)),
		})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Value < freqs[j].Value
	})
	return freqs
}

// WriteSummaries writes the parameter summaries as a table.
func WriteSummaries(w io.Writer, params []ParamSummary, delim rune) error {
	tw := table.NewWriter(w, delim)
	for _, p := range params {
		row := table.NewRow()
		row.Set("parameter", p.Name)
		row.SetInt("n", p.N)
		row.SetFloat("mean", p.Mean)
		row.SetFloat("median", p.Median)
		row.SetFloat("q2.5", p.Low)
		row.SetFloat("q97.5", p.High)
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	if len(params) == 0 {
		return writeHeader(w, []string{"parameter", "n", "mean", "median", "q2.5", "q97.5"}, delim)
	}
	return tw.Flush()
}

// WriteFrequencies writes the model frequencies as a table.
func WriteFrequencies(w io.Writer, freqs []ModelFreq, delim rune) error {
	tw := table.NewWriter(w, delim)
	for _, f := range freqs {
		row := table.NewRow()
		row.Set("field", f.Field)
		row.Set("value", f.Value)
		row.SetInt("count", f.Count)
		row.SetFloat("frequency", f.Frequency)
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	if len(freqs) == 0 {
		return writeHeader(w, []string{"field", "value", "count", "frequency"}, delim)
	}
	return tw.Flush()
}

// ReadColumn reads the values of one column of a table.
func ReadColumn(r io.Reader, name, field string, delim rune) ([]string, error) {
	cr := table.NewReader(r, delim)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FieldError{File: name, Field: field, Reason: "empty table"}
	}
	if err != nil {
		return nil, err
	}
	col := -1
	for i, h := range header {
		if h == field {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &FieldError{File: name, Field: field, Reason: "missing field"}
	}
	var values []string
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			return values, nil
		}
		if err != nil {
			return nil, &FieldError{File: name, Row: row, Field: field, Reason: err.Error()}
		}
		if col >= len(record) {
			return nil, &FieldError{File: name, Row: row, Field: field, Reason: "short row"}
		}
		values = append(values, record[col])
	}
}
