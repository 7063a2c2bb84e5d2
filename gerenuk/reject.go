package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/op/go-logging"

	"github.com/gerenuk/gerenuk/abc"
)

// reject command options
var (
	rejectCmd = app.Command("reject", "retain the simulations closest to the observed data")

	targetFileName     = rejectCmd.Arg("target", "observed summary statistics").Required().ExistingFile()
	referenceFileNames = rejectCmd.Arg("reference", "simulated reference tables").Required().ExistingFiles()

	maxNum        = rejectCmd.Flag("max-num", "retain this number of closest rows").Short('n').Default("-1").Int()
	maxProportion = rejectCmd.Flag("max-proportion", "retain this proportion of closest rows").Short('p').Default("-1").Float64()
	maxDistance   = rejectCmd.Flag("max-distance", "retain rows within this distance").Short('d').Default("-1").Float64()
	rejDelimiter  = rejectCmd.Flag("field-delimiter", "table field delimiter").Default("\t").String()
	rejPrefix     = rejectCmd.Flag("stats-field-prefix", "summary statistic field prefix").Default("stat").String()
	outputStats   = rejectCmd.Flag("output-summary-stats", "add the summary statistics to the posterior tables").Bool()
	outputDist    = rejectCmd.Flag("output-distance", "add the distance to the posterior tables").Bool()
	withSummary   = rejectCmd.Flag("summary", "write parameter summaries and model frequencies").Bool()
	noFieldCheck  = rejectCmd.Flag("no-field-check", "ignore unrecognized columns of later reference tables").Bool()
	outDir        = rejectCmd.Flag("output-directory", "posterior output directory").Short('o').Default(".").String()
	rejLogFreq    = rejectCmd.Flag("log-frequency", "report progress every N rows read").Default("100000").Int()

	plotCmd = app.Command("plot", "plot the posterior number of divergence events")

	posteriorFileName = plotCmd.Arg("posterior", "posterior table").Required().ExistingFile()
	plotOut           = plotCmd.Flag("output", "image file, png, svg or pdf by extension").Short('o').String()
	plotField         = plotCmd.Flag("field", "field with the number of divergence events").Default(abc.NumDivsField).String()
	plotTitle         = plotCmd.Flag("title", "plot title").String()
	plotDelimiter     = plotCmd.Flag("field-delimiter", "table field delimiter").Default("\t").String()
)

// policy returns the retention policy of the one set option.
func policy() (abc.Policy, error) {
	var set []abc.Policy
	if *maxNum >= 0 {
		set = append(set, abc.Count(*maxNum))
	}
	if *maxProportion >= 0 {
		set = append(set, abc.Proportion(*maxProportion))
	}
	if *maxDistance >= 0 {
		set = append(set, abc.Threshold(*maxDistance))
	}
	if len(set) != 1 {
		return nil, fmt.Errorf("exactly one of --max-num, --max-proportion and --max-distance is required")
	}
	return set[0], set[0].Validate()
}

func runReject() error {
	p, err := policy()
	if err != nil {
		return err
	}
	delim, err := delimiter(*rejDelimiter)
	if err != nil {
		return err
	}
	abcLog := logging.MustGetLogger("abc")
	ref := abc.NewReference(*rejPrefix, delim, *noFieldCheck, abcLog)
	ref.LogFrequency = *rejLogFreq
	for _, fn := range *referenceFileNames {
		if err := ref.ReadFile(fn); err != nil {
			return err
		}
	}
	log.Infof("Reference table: %s rows, %d summary statistics, %d other fields",
		humanize.Comma(int64(ref.Len())), len(ref.StatFields()), len(ref.OtherFields()))
	if len(ref.StatFields()) == 0 {
		return fmt.Errorf("no fields with prefix %q in the reference table", *rejPrefix)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	r := abc.NewRejector(ref, p, abcLog)
	r.OutputStats = *outputStats
	r.OutputDistance = *outputDist
	r.Summary = *withSummary
	paths, err := r.Run(*targetFileName, *outDir)
	if err != nil {
		return err
	}
	log.Noticef("Wrote %d posterior tables", len(paths))
	return nil
}

func runPlot() error {
	delim, err := delimiter(*plotDelimiter)
	if err != nil {
		return err
	}
	f, err := os.Open(*posteriorFileName)
	if err != nil {
		return err
	}
	defer f.Close()
	values, err := abc.ReadColumn(f, *posteriorFileName, *plotField, delim)
	if err != nil {
		return err
	}
	out := *plotOut
	if out == "" {
		out = strings.TrimSuffix(*posteriorFileName, filepath.Ext(*posteriorFileName)) + ".divergences.png"
	}
	title := *plotTitle
	if title == "" {
		title = filepath.Base(*posteriorFileName)
	}
	if err := abc.PlotDivergences(values, title, out); err != nil {
		return err
	}
	log.Noticef("Plotted %s posterior samples to %s", humanize.Comma(int64(len(values))), out)
	return nil
}
