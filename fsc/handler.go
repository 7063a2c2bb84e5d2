// Package fsc runs the fastsimcoal2 coalescent simulator for single
// loci and collects the site frequency spectra it writes.
package fsc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/op/go-logging"

	"github.com/gerenuk/gerenuk/internal/logutil"
	"github.com/gerenuk/gerenuk/table"
)

// SpectrumType selects folded (minor allele) or unfolded (derived
// allele) spectra.
type SpectrumType int

const (
	// Folded spectra count minor alleles.
	Folded SpectrumType = iota
	// Unfolded spectra count derived alleles.
	Unfolded
)

// flag returns the command-line flag selecting the spectrum type.
func (t SpectrumType) flag() string {
	if t == Unfolded {
		return "-d"
	}
	return "-m"
}

// tag returns the letter used in the output file names.
func (t SpectrumType) tag() string {
	if t == Unfolded {
		return "D"
	}
	return "M"
}

func (t SpectrumType) String() string {
	if t == Unfolded {
		return "unfolded"
	}
	return "folded"
}

// Options configure a Handler.
type Options struct {
	// Path is the engine executable.
	Path string
	// WorkDir is the directory where configuration and results are
	// written. It is created if needed.
	WorkDir string
	// Spectrum is the spectrum type.
	Spectrum SpectrumType
	// Single enables the per deme spectra.
	Single bool
	// Joint enables the joint spectrum.
	Joint bool
}

// EngineError is returned when the engine exits with an error.
type EngineError struct {
	Command  []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EngineError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 2000 {
		msg = "..." + msg[len(msg)-2000:]
	}
	return fmt.Sprintf("fastsimcoal2 execution failure (%v, exit code %d): %s", e.Err, e.ExitCode, msg)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// waitDelay bounds the wait for output pipes after the engine was
// killed.
const waitDelay = 5 * time.Second

// Handler runs the engine under a fixed name. The name determines the
// configuration and result file names, so concurrent handlers need
// distinct names or working directories.
type Handler struct {
	name   string
	opts   Options
	log    *logging.Logger
	staged bool
	runs   int
}

// NewHandler creates a handler. A nil log discards messages.
func NewHandler(name string, opts Options, log *logging.Logger) *Handler {
	// a relative executable path would otherwise be resolved against
	// the working directory
	if strings.ContainsRune(opts.Path, filepath.Separator) {
		if abs, err := filepath.Abs(opts.Path); err == nil {
			opts.Path = abs
		}
	}
	return &Handler{
		name: name,
		opts: opts,
		log:  logutil.OrSilent(log, "fsc"),
	}
}

// Name returns the handler name.
func (h *Handler) Name() string {
	return h.name
}

// Runs returns the number of successful engine runs.
func (h *Handler) Runs() int {
	return h.runs
}

// ConfigPath returns the path of the configuration file.
func (h *Handler) ConfigPath() string {
	return filepath.Join(h.opts.WorkDir, h.name+".par")
}

// ResultsDir returns the directory where the engine writes results.
func (h *Handler) ResultsDir() string {
	return filepath.Join(h.opts.WorkDir, h.name)
}

// SpectrumPath returns the spectrum file of a deme.
func (h *Handler) SpectrumPath(deme int) string {
	return filepath.Join(h.ResultsDir(), fmt.Sprintf("%s_%sAFpop%d.obs", h.name, h.opts.Spectrum.tag(), deme))
}

// JointSpectrumPath returns the joint spectrum file.
func (h *Handler) JointSpectrumPath() string {
	return filepath.Join(h.ResultsDir(), fmt.Sprintf("%s_joint%sAFpop1_0.obs", h.name, h.opts.Spectrum.tag()))
}

// args returns the command-line arguments of one run.
func (h *Handler) args(seed int) []string {
	return []string{
		"-n", "1",
		"-r", strconv.Itoa(seed),
		h.opts.Spectrum.flag(),
		"-s0", "-x", "-I",
		"-i", h.name + ".par",
	}
}

func (h *Handler) stage() error {
	if h.staged {
		return nil
	}
	if err := os.MkdirAll(h.opts.WorkDir, 0755); err != nil {
		return err
	}
	h.staged = true
	return nil
}

func (h *Handler) writeConfig(cfg *Config) error {
	f, err := os.Create(h.ConfigPath())
	if err != nil {
		return err
	}
	if _, err := cfg.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Run simulates one locus with the given seed and adds the spectra to
// row as fields starting with prefix. The engine process is killed if
// ctx is cancelled.
func (h *Handler) Run(ctx context.Context, prefix string, cfg *Config, seed int, row *table.Row) error {
	if err := h.stage(); err != nil {
		return err
	}
	if err := h.writeConfig(cfg); err != nil {
		return err
	}
	// stale results of a previous run must not be read
	if err := os.RemoveAll(h.ResultsDir()); err != nil {
		return err
	}

	args := h.args(seed)
	cmd := exec.CommandContext(ctx, h.opts.Path, args...)
	cmd.Dir = h.opts.WorkDir
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	h.log.Debugf("%s: %s %s", h.name, h.opts.Path, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return &EngineError{
			Command:  append([]string{h.opts.Path}, args...),
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	h.runs++
	return h.harvest(prefix, row)
}

// harvest parses the result files of the last run.
func (h *Handler) harvest(prefix string, row *table.Row) error {
	if h.opts.Single {
		for deme := 0; deme < 2; deme++ {
			p := fmt.Sprintf("%s.deme%d.sfs", prefix, deme)
			if err := parseFile(h.SpectrumPath(deme), p, row, ParseSpectrum); err != nil {
				return err
			}
		}
	}
	if h.opts.Joint {
		if err := parseFile(h.JointSpectrumPath(), prefix+".joint.sfs", row, ParseJointSpectrum); err != nil {
			return err
		}
	}
	return nil
}
