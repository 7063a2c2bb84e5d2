// Gerenuk estimates divergence times of many lineage pairs at once by
// rejection sampling Approximate Bayesian Computation.
//
// First simulate a reference table from the prior of a model file:
//
//	gerenuk simulate -n 100000 model.yaml
//
// , this will run fastsimcoal2 for every locus of every replicate and
// write model.sims.tsv. Then compare the observed summary statistics with
// the reference table:
//
//	gerenuk reject -n 1000 observed.tsv model.sims.tsv
//
// The above keeps the 1000 closest simulations of every observed row.
//
// To see all the commands and options run:
//
//	gerenuk --help
package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("gerenuk")
var formatter = logging.MustStringFormatter(`[%{time:2006-01-02 15:04:05}] %{message}`)

// command-line options
var (
	// application
	app = kingpin.New("gerenuk", "divergence time estimation with approximate Bayesian computation").Version(version)

	// logging
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("info").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	outLogF      = app.Flag("log", "also write log to a file").String()
	fileLogLevel = app.Flag("file-loglevel", "loglevel of the log file").Default("debug").Enum("critical", "error", "warning", "notice", "info", "debug")
	quiet = app.Flag("quiet", "only log errors to the terminal").Short('q').Bool()
)

// delimiter returns the rune of a one character field delimiter.
func delimiter(s string) (rune, error) {
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("field delimiter must be one character: %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// leveled returns a formatted backend writing messages up to level.
func leveled(w *os.File, level string) (logging.LeveledBackend, error) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return nil, err
	}
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), formatter))
	backend.SetLevel(lvl, "")
	return backend, nil
}

// setupLogging configures the terminal and the file backends. The
// returned function closes the log file.
func setupLogging() (func(), error) {
	level := *logLevel
	if *quiet {
		level = "error"
	}
	stderr, err := leveled(os.Stderr, level)
	if err != nil {
		return nil, err
	}
	if *outLogF == "" {
		logging.SetBackend(stderr)
		return func() {}, nil
	}
	f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %v", err)
	}
	file, err := leveled(f, *fileLogLevel)
	if err != nil {
		f.Close()
		return nil, err
	}
	logging.SetBackend(stderr, file)
	return func() { f.Close() }, nil
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	closeLog, err := setupLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// print revision
	log.Debug(version)

	// print commandline
	log.Debug("Command line:", os.Args)

	switch command {
	case simulateCmd.FullCommand():
		err = runSimulate()
	case rejectCmd.FullCommand():
		err = runReject()
	case plotCmd.FullCommand():
		err = runPlot()
	case filterCmd.FullCommand():
		err = runFilter()
	case sizeCmd.FullCommand():
		err = runStatsSize()
	case priorCmd.FullCommand():
		err = runPrior()
	case runsCmd.FullCommand():
		err = runRuns()
	}
	if err != nil {
		log.Error(err)
		log.Debugf("%+v", err)
		closeLog()
		os.Exit(1)
	}
	closeLog()
}
