package abc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/gerenuk/gerenuk/internal/logutil"
	"github.com/gerenuk/gerenuk/table"
)

// DistanceField is the name of the optional distance column.
const DistanceField = "abc.distance"

// Rejector writes posterior samples of a reference table.
type Rejector struct {
	Reference *Reference
	Policy    Policy
	// OutputStats adds the statistic columns to the posterior tables.
	OutputStats bool
	// OutputDistance adds a leading distance column.
	OutputDistance bool
	// Summary writes the parameter summary and model frequency tables
	// next to each posterior table.
	Summary bool
	log     *logging.Logger
}

// NewRejector creates a rejector. A nil log discards messages.
func NewRejector(ref *Reference, policy Policy, log *logging.Logger) *Rejector {
	return &Rejector{
		Reference: ref,
		Policy:    policy,
		log:       logutil.OrSilent(log, "abc"),
	}
}

// WritePosterior writes the retained rows as a delimited table.
func (r *Rejector) WritePosterior(w io.Writer, matches []Match) error {
	ref := r.Reference
	tw := table.NewWriter(w, ref.delim)
	for _, m := range matches {
		row := table.NewRow()
		if r.OutputDistance {
			row.SetFloat(DistanceField, m.Distance)
		}
		for i, f := range ref.otherFields {
			row.Set(f, ref.others[m.Index][i])
		}
		if r.OutputStats {
			for i, f := range ref.statFields {
				row.SetFloat(f, ref.stats[m.Index][i])
			}
		}
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	if len(matches) == 0 {
		// header only
		return writeHeader(w, r.header(), ref.delim)
	}
	return tw.Flush()
}

func (r *Rejector) header() []string {
	var h []string
	if r.OutputDistance {
		h = append(h, DistanceField)
	}
	h = append(h, r.Reference.otherFields...)
	if r.OutputStats {
		h = append(h, r.Reference.statFields...)
	}
	return h
}

func writeHeader(w io.Writer, header []string, delim rune) error {
	_, err := fmt.Fprintln(w, strings.Join(header, string(delim)))
	return err
}

// PosteriorPath returns the posterior table path of observed row n
// (1-based) of target.
func PosteriorPath(dir, target string, n int) string {
	base := filepath.Base(target)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".posterior."+strconv.Itoa(n)+".tsv")
}

// Run selects and writes the posterior of every observed row of the
// target file into dir. It returns the paths of the posterior tables.
func (r *Rejector) Run(target, dir string) ([]string, error) {
	obs, err := ReadObservationsFile(target, r.Reference.prefix, r.Reference.delim)
	if err != nil {
		return nil, err
	}
	var paths []string
	for i, o := range obs {
		matches, err := r.Reference.Select(o, r.Policy)
		if err != nil {
			return paths, errors.Wrapf(err, "%s: row %d", target, i+1)
		}
		path := PosteriorPath(dir, target, i+1)
		r.log.Infof("%s: row %d: retained %d of %d rows (%v) in %s", target, i+1,
			len(matches), r.Reference.Len(), r.Policy, path)
		if err := writeFile(path, func(w io.Writer) error { return r.WritePosterior(w, matches) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		if r.Summary {
			if err := r.writeSummaries(path, matches); err != nil {
				return paths, err
			}
		}
	}
	return paths, nil
}

func (r *Rejector) writeSummaries(path string, matches []Match) error {
	params, models := Summarize(r.Reference, matches)
	base := strings.TrimSuffix(path, ".tsv")
	err := writeFile(base+".summary.tsv", func(w io.Writer) error {
		return WriteSummaries(w, params, r.Reference.delim)
	})
	if err != nil {
		return err
	}
	return writeFile(base+".models.tsv", func(w io.Writer) error {
		return WriteFrequencies(w, models, r.Reference.delim)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
