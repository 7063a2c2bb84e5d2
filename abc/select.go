package abc

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Distance returns the Euclidean distance between two statistic
// vectors of equal length.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Match is a retained reference row.
type Match struct {
	Distance float64
	Index    int
}

// Policy decides how many of the sorted matches are retained.
type Policy interface {
	Validate() error
	Retain(sorted []Match) []Match
	String() string
}

// Count retains the k closest rows.
type Count int

// Validate checks that k is not negative.
func (k Count) Validate() error {
	if k < 0 {
		return fmt.Errorf("number of rows to retain must not be negative: %d", int(k))
	}
	return nil
}

// Retain returns the first min(k, n) matches.
func (k Count) Retain(sorted []Match) []Match {
	if int(k) < len(sorted) {
		return sorted[:k]
	}
	return sorted
}

func (k Count) String() string {
	return fmt.Sprintf("%d closest rows", int(k))
}

// Proportion retains round(p*n) of n rows.
type Proportion float64

// Validate checks that p is in (0, 1).
func (p Proportion) Validate() error {
	if !(p > 0 && p < 1) {
		return fmt.Errorf("proportion of rows to retain must be in (0; 1): %g", float64(p))
	}
	return nil
}

// Retain returns the first round(p*n) matches.
func (p Proportion) Retain(sorted []Match) []Match {
	return Count(math.Round(float64(p) * float64(len(sorted)))).Retain(sorted)
}

func (p Proportion) String() string {
	return fmt.Sprintf("%g of rows", float64(p))
}

// Threshold retains all rows within a distance.
type Threshold float64

// Validate checks that the distance is not negative.
func (d Threshold) Validate() error {
	if d < 0 || math.IsNaN(float64(d)) {
		return fmt.Errorf("distance must not be negative: %g", float64(d))
	}
	return nil
}

// Retain returns the matches with distance <= d.
func (d Threshold) Retain(sorted []Match) []Match {
	n := sort.Search(len(sorted), func(i int) bool { return sorted[i].Distance > float64(d) })
	return sorted[:n]
}

func (d Threshold) String() string {
	return fmt.Sprintf("rows within distance %g", float64(d))
}

// ShapeError reports observed statistics which do not match the
// statistic fields of the reference table.
type ShapeError struct {
	Expected []string
	Observed []string
}

func (e *ShapeError) Error() string {
	if len(e.Expected) != len(e.Observed) {
		return fmt.Sprintf("observed %d summary statistics, reference table has %d", len(e.Observed), len(e.Expected))
	}
	var diff []string
	exp := make(map[string]bool, len(e.Expected))
	for _, f := range e.Expected {
		exp[f] = true
	}
	for _, f := range e.Observed {
		if !exp[f] {
			diff = append(diff, f)
		}
	}
	return "observed summary statistics not in reference table: " + strings.Join(diff, ", ")
}

// Observation is one observed statistic vector.
type Observation struct {
	Fields []string
	Values []float64
}

// align returns the observed values in the field order of the
// reference table.
func (t *Reference) align(obs Observation) ([]float64, error) {
	shapeErr := &ShapeError{Expected: t.statFields, Observed: obs.Fields}
	if len(obs.Fields) != len(t.statFields) || len(obs.Values) != len(obs.Fields) {
		return nil, shapeErr
	}
	index := make(map[string]int, len(obs.Fields))
	for i, f := range obs.Fields {
		index[f] = i
	}
	v := make([]float64, len(t.statFields))
	for i, f := range t.statFields {
		j, ok := index[f]
		if !ok {
			return nil, shapeErr
		}
		v[i] = obs.Values[j]
	}
	return v, nil
}

// Select computes the distance of every reference row to obs and
// returns the rows retained by policy, closest first. Ties keep the
// order of the reference table.
func (t *Reference) Select(obs Observation, policy Policy) ([]Match, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	v, err := t.align(obs)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, t.Len())
	for i, s := range t.stats {
		matches[i] = Match{Distance: Distance(v, s), Index: i}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return policy.Retain(matches), nil
}
