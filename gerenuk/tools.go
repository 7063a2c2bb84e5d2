package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/gerenuk/gerenuk/checkpoint"
	"github.com/gerenuk/gerenuk/config"
	"github.com/gerenuk/gerenuk/dist"
	"github.com/gerenuk/gerenuk/model"
	"github.com/gerenuk/gerenuk/partition"
	"github.com/gerenuk/gerenuk/table"
)

// helper command options
var (
	filterCmd = app.Command("filter-columns", "keep only the columns of a master table")

	masterFileName  = filterCmd.Arg("master", "table whose header lists the columns to keep").Required().ExistingFile()
	filterFileNames = filterCmd.Arg("target", "tables to filter").Required().ExistingFiles()
	filterDelimiter = filterCmd.Flag("field-delimiter", "table field delimiter").Default("\t").String()

	sizeCmd = app.Command("stats-size", "report the number of summary statistics of a model")

	sizeModelFileName = sizeCmd.Arg("model", "model file").Required().ExistingFile()

	priorCmd = app.Command("prior", "summarize the priors of a model")

	priorModelFileName = priorCmd.Arg("model", "model file").Required().ExistingFile()
	priorSamples       = priorCmd.Flag("samples", "number of concentration draws for the expected number of divergence events").Default("100000").Int()
	priorSeed          = priorCmd.Flag("random-seed", "random generator seed").Short('z').Default("1").Uint64()

	runsCmd = app.Command("runs", "list the runs of a registry database")

	runsDBFileName = runsCmd.Arg("db", "registry database").Required().ExistingFile()
)

func runFilter() error {
	delim, err := delimiter(*filterDelimiter)
	if err != nil {
		return err
	}
	m, err := os.Open(*masterFileName)
	if err != nil {
		return err
	}
	keep, err := table.ReadHeader(m, delim)
	m.Close()
	if err != nil {
		return fmt.Errorf("%s: %v", *masterFileName, err)
	}
	for _, fn := range *filterFileNames {
		if err := filterFile(fn, fn+".filtered", keep, delim); err != nil {
			return fmt.Errorf("%s: %v", fn, err)
		}
		log.Infof("Wrote %s.filtered", fn)
	}
	return nil
}

func filterFile(src, dst string, keep []string, delim rune) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := table.FilterColumns(out, in, keep, delim); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// spectrumSize returns the largest number of cells of the configured
// spectra of a locus.
func spectrumSize(f *config.File, l *model.LocusDefinition) (single, joint int) {
	n0, n1 := l.SampleSizes[0], l.SampleSizes[1]
	if f.SinglePopulationSFS {
		single = n0 + 1 + n1 + 1
	}
	if f.JointPopulationSFS {
		joint = (n0 + 1) * (n1 + 1)
	}
	return
}

func runStatsSize() error {
	f, err := config.ReadFile(*sizeModelFileName)
	if err != nil {
		return err
	}
	m, err := f.Model()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "taxon\tlocus\tsingle\tjoint\ttotal")
	total := 0
	for _, lp := range m.LineagePairs() {
		for _, l := range lp.Loci {
			single, joint := spectrumSize(f, l)
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", lp.Label, l.Label, single, joint, single+joint)
			total += single + joint
		}
	}
	fmt.Fprintf(w, "total\t\t\t\t%d\n", total)
	return w.Flush()
}

func runPrior() error {
	f, err := config.ReadFile(*priorModelFileName)
	if err != nil {
		return err
	}
	m, err := f.Model()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "prior\tshape\tscale\tmean\t2.5%\t97.5%")
	priors := []struct {
		name string
		g    dist.Gamma
	}{
		{"concentration", m.Concentration},
		{"theta", m.Theta},
		{"ancestral theta", m.AncestralTheta},
		{"tau", m.Tau},
	}
	for _, p := range priors {
		if !p.g.Valid() || (p.name == "concentration" && m.NumTauClasses > 0) {
			continue
		}
		lo, hi := p.g.Interval(0.95)
		fmt.Fprintf(w, "%s\t%g\t%g\t%.6g\t%.6g\t%.6g\n", p.name, p.g.Shape, p.g.Scale, p.g.Mean(), lo, hi)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	n := m.NumLineagePairs()
	if m.NumTauClasses > 0 {
		fmt.Printf("divergence events: fixed at %d of %d lineage pairs\n", m.NumTauClasses, n)
		return nil
	}
	if *priorSamples < 1 {
		return fmt.Errorf("number of samples must be positive: %d", *priorSamples)
	}
	rng := rand.New(rand.NewSource(*priorSeed))
	k := make([]float64, *priorSamples)
	for i := range k {
		k[i] = partition.ExpectedGroups(n, m.Concentration.Rand(rng))
	}
	mean, std := stat.MeanStdDev(k, nil)
	fmt.Printf("expected divergence events: %.4f (standard error %.2g, %s draws) of %d lineage pairs\n",
		mean, std/math.Sqrt(float64(len(k))), humanize.Comma(int64(len(k))), n)
	return nil
}

func runRuns() error {
	reg, err := checkpoint.Open(*runsDBFileName, 0, nil)
	if err != nil {
		return err
	}
	defer reg.Close()
	runs, err := reg.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "name\tstatus\treplicates\tworkers\tseed\tstarted\telapsed\toutput")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%d\t%d\t%s\t%.1fs\t%s\n", run.Name, run.Status,
			humanize.Comma(int64(run.Collected)), humanize.Comma(int64(run.Replicates)),
			run.Workers, run.Seed, humanize.Time(run.Started), run.Elapsed, run.Output)
		if run.Error != "" {
			fmt.Fprintf(w, "\terror: %s\n", run.Error)
		}
	}
	return w.Flush()
}
