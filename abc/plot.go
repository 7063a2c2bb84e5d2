package abc

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotDivergences saves a bar chart of the posterior frequencies of the
// number of divergence events to path. The image format is taken from
// the file extension.
func PlotDivergences(values []string, title, path string) error {
	if len(values) == 0 {
		return fmt.Errorf("%s: no posterior samples to plot", path)
	}
	counts := map[int]int{}
	most := 0
	for _, v := range values {
		k, err := strconv.Atoi(v)
		if err != nil || k < 1 {
			return fmt.Errorf("number of divergence events %q: expected a positive integer", v)
		}
		counts[k]++
		if k > most {
			most = k
		}
	}
	bars := make(plotter.Values, most)
	labels := make([]string, most)
	for i := range bars {
		bars[i] = float64(counts[i+1]) / float64(len(values))
		labels[i] = strconv.Itoa(i + 1)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "number of divergence events"
	p.Y.Label.Text = "posterior probability"
	p.Y.Min = 0
	p.Y.Max = 1

	bc, err := plotter.NewBarChart(bars, vg.Points(20))
	if err != nil {
		return err
	}
	p.Add(bc)
	p.NominalX(labels...)

	return p.Save(5*vg.Inch, 3*vg.Inch, path)
}
