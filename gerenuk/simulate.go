package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/gerenuk/gerenuk/checkpoint"
	"github.com/gerenuk/gerenuk/config"
	"github.com/gerenuk/gerenuk/fsc"
	"github.com/gerenuk/gerenuk/pool"
	"github.com/gerenuk/gerenuk/simulate"
	"github.com/gerenuk/gerenuk/table"
)

// simulate command options
var (
	simulateCmd = app.Command("simulate", "simulate a reference table from the prior")

	modelFileName = simulateCmd.Arg("model", "model file").Required().ExistingFile()

	nreps        = simulateCmd.Flag("num-reps", "number of replicates").Short('n').Default("1000").Int()
	nWorkers     = simulateCmd.Flag("num-processes", "number of workers, number of CPUs by default").Short('w').Int()
	seed         = simulateCmd.Flag("random-seed", "random generator seed, default time based").Short('z').Default("-1").Int64()
	runName      = simulateCmd.Flag("name", "run name (overrides the model file)").String()
	outPrefix    = simulateCmd.Flag("output-prefix", "output prefix (overrides the model file)").Short('o').String()
	workDir      = simulateCmd.Flag("working-directory", "engine working directory, temporary by default").String()
	fsc2Path     = simulateCmd.Flag("fsc2-path", "fastsimcoal2 executable (overrides the model file)").String()
	spectrum     = simulateCmd.Flag("spectrum", "folded or unfolded spectra (overrides the model file)").Enum(config.Folded, config.Unfolded)
	statPrefix   = simulateCmd.Flag("stat-prefix", "summary statistic field prefix (overrides the model file)").String()
	simDelimiter = simulateCmd.Flag("field-delimiter", "result table field delimiter").Default("\t").String()
	logFrequency = simulateCmd.Flag("log-frequency", "report progress every N replicates").Default("100").Int()
	dbFileName   = simulateCmd.Flag("db", "record the run in a registry database").String()
	jsonF        = simulateCmd.Flag("json", "write json summary to a file").String()
)

// applyOverrides replaces the run settings of the model file by the
// ones set on the command line.
func applyOverrides(f *config.File) {
	if *runName != "" {
		f.Name = *runName
	}
	if *outPrefix != "" {
		f.OutputPrefix = *outPrefix
	}
	if *workDir != "" {
		f.WorkingDirectory = *workDir
	}
	if *fsc2Path != "" {
		f.FSC2Path = *fsc2Path
	}
	if *spectrum != "" {
		f.SiteFrequencySpectrum = *spectrum
	}
	if *statPrefix != "" {
		f.StatLabelPrefix = *statPrefix
	}
	if f.OutputPrefix == "" {
		f.OutputPrefix = f.Name
	}
}

// progressSink writes rows to the result table and records progress in
// the run registry.
type progressSink struct {
	out *table.File
	reg *checkpoint.Registry
	run *checkpoint.Run
}

func (s *progressSink) Write(row *table.Row) error {
	if err := s.out.Write(row); err != nil {
		return err
	}
	s.run.Collected++
	if s.reg != nil {
		// failing to record progress does not fail the run
		s.reg.Progress(s.run)
	}
	return nil
}

func runSimulate() error {
	startTime := time.Now()

	f, err := config.ReadFile(*modelFileName)
	if err != nil {
		return err
	}
	applyOverrides(f)
	m, err := f.Model()
	if err != nil {
		return errors.Wrapf(err, "%s", *modelFileName)
	}
	for _, w := range m.Warnings() {
		log.Warning(w)
	}
	log.Infof("Model %s: %d lineage pairs, %d loci", f.Name, m.NumLineagePairs(), m.NumLoci())

	delim, err := delimiter(*simDelimiter)
	if err != nil {
		return err
	}

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	dir := f.WorkingDirectory
	if dir == "" {
		dir, err = os.MkdirTemp("", "gerenuk-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
	}
	log.Debugf("Working directory: %s", dir)

	opts := fsc.Options{
		Path:    f.FSC2Path,
		WorkDir: dir,
		Single:  f.SinglePopulationSFS,
		Joint:   f.JointPopulationSFS,
	}
	if f.SiteFrequencySpectrum == config.Unfolded {
		opts.Spectrum = fsc.Unfolded
	}
	fscLog := logging.MustGetLogger("fsc")
	engines := func(name string) simulate.Engine {
		return fsc.NewHandler(name, opts, fscLog)
	}

	settings := simulate.Settings{
		Title:          f.Name,
		Workers:        *nWorkers,
		Seed:           uint64(*seed),
		StatPrefix:     f.StatLabelPrefix,
		IncludeModelID: f.IncludeModelID,
		Labels:         f.SupplementalLabels(),
		LogFrequency:   *logFrequency,
	}
	sim := simulate.New(m, settings, engines, logging.MustGetLogger("simulate"))

	path := f.OutputPrefix + ".sims.tsv"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := table.Create(path, delim)
	if err != nil {
		return err
	}

	workers := pool.Workers(*nWorkers)
	if workers > *nreps {
		workers = *nreps
	}
	run := &checkpoint.Run{
		Name:       f.Name,
		Seed:       uint64(*seed),
		Replicates: *nreps,
		Workers:    workers,
		Status:     checkpoint.Running,
		Output:     path,
		Started:    startTime,
	}
	var reg *checkpoint.Registry
	if *dbFileName != "" {
		reg, err = checkpoint.Open(*dbFileName, 10, logging.MustGetLogger("checkpoint"))
		if err != nil {
			out.Abort()
			return err
		}
		defer reg.Close()
		if old, err := reg.Load(run.Name); err == nil && old != nil {
			log.Warningf("Replacing registry entry of earlier run %s (%s)", old.Name, old.Status)
		}
		if err := reg.Save(run); err != nil {
			out.Abort()
			return err
		}
	}

	summary := &SimulationSummary{
		CallSummary: CallSummary{
			Version:     version,
			CommandLine: os.Args,
			Seed:        uint64(*seed),
			Workers:     workers,
		},
		Name:         f.Name,
		Replicates:   *nreps,
		Output:       path,
		LineagePairs: m.NumLineagePairs(),
		Loci:         m.NumLoci(),
	}
	defer func() {
		summary.TotalTime = time.Since(startTime).Seconds()
		if *jsonF != "" {
			writeJSON(*jsonF, summary)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := &progressSink{out: out, reg: reg, run: run}
	n, err := sim.Execute(ctx, *nreps, sink)
	summary.Collected = n
	if err != nil {
		out.Abort()
		run.Status = checkpoint.Failed
		run.Error = err.Error()
		run.Output = path + table.IncompleteSuffix
		summary.Output = run.Output
		summary.Error = run.Error
		if reg != nil {
			reg.Save(run)
		}
		log.Errorf("Result table left incomplete: %s", run.Output)
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}
	summary.Fields = len(out.Header())
	run.Status = checkpoint.Complete
	if reg != nil {
		if err := reg.Save(run); err != nil {
			return err
		}
	}

	log.Noticef("Wrote %s replicates with %d fields to %s", humanize.Comma(int64(n)), summary.Fields, path)
	log.Noticef("Running time: %v", time.Since(startTime))
	return nil
}

// writeJSON writes v to a file, errors are only logged.
func writeJSON(path string, v interface{}) {
	j, err := json.Marshal(v)
	if err != nil {
		log.Error(err)
		return
	}
	log.Debug(string(j))
	f, err := os.Create(path)
	if err != nil {
		log.Error("Error creating json output file:", err)
		return
	}
	f.Write(j)
	f.Close()
}
