// Package simulate runs simulation replicates in parallel and collects
// one result row per replicate.
package simulate

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/gerenuk/gerenuk/fsc"
	"github.com/gerenuk/gerenuk/internal/logutil"
	"github.com/gerenuk/gerenuk/model"
	"github.com/gerenuk/gerenuk/pool"
	"github.com/gerenuk/gerenuk/prior"
	"github.com/gerenuk/gerenuk/table"
)

// maxSeed is the largest seed accepted by the engine.
const maxSeed = 1000000

// Engine simulates one locus and adds its summary statistics to a row.
type Engine interface {
	Run(ctx context.Context, prefix string, cfg *fsc.Config, seed int, row *table.Row) error
}

// EngineFactory creates the engine of a worker. Each worker gets its
// own engine under its own name.
type EngineFactory func(name string) Engine

// Sink receives the collected rows.
type Sink interface {
	Write(row *table.Row) error
}

// Settings configure a Simulator.
type Settings struct {
	// Title names the run; workers are named <Title>-<i>.
	Title string
	// Workers is the number of workers, the number of CPUs if not
	// positive.
	Workers int
	// Seed seeds the master random stream.
	Seed uint64
	// StatPrefix starts the names of the summary statistic fields.
	StatPrefix string
	// IncludeModelID adds a leading model.id field.
	IncludeModelID bool
	// Labels are added to every row after the model id.
	Labels []table.Field
	// LogFrequency is the number of rows between progress messages, no
	// progress messages if not positive.
	LogFrequency int
}

// Worker is what one worker owns: its name, its random stream and its
// engine. The model is shared read-only.
type Worker struct {
	Name     string
	Model    *model.Model
	Prior    *prior.Sampler
	Rand     *rand.Rand
	Engine   Engine
	Settings *Settings
}

// ReplicateFunc runs one replicate on a worker.
type ReplicateFunc func(ctx context.Context, w *Worker, rep int) (*table.Row, error)

// WorkerError is the error of a failed replicate.
type WorkerError struct {
	Worker    string
	Replicate int
	Stack     string
	Err       error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %s, replicate %d: %v", e.Worker, e.Replicate, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Simulator runs replicates of a model.
type Simulator struct {
	model     *model.Model
	settings  Settings
	engines   EngineFactory
	replicate ReplicateFunc
	log       *logging.Logger
}

// New creates a simulator. A nil log discards messages.
func New(m *model.Model, s Settings, engines EngineFactory, log *logging.Logger) *Simulator {
	if s.StatPrefix == "" {
		s.StatPrefix = "stat"
	}
	if s.Title == "" {
		s.Title = "gerenuk"
	}
	return &Simulator{
		model:     m,
		settings:  s,
		engines:   engines,
		replicate: Replicate,
		log:       logutil.OrSilent(log, "simulate"),
	}
}

// SetReplicateFunc replaces the replicate pipeline.
func (s *Simulator) SetReplicateFunc(fn ReplicateFunc) {
	s.replicate = fn
}

// workers creates the workers, seeding each one from the master stream.
func (s *Simulator) workers(n int) []*Worker {
	master := rand.New(rand.NewSource(s.settings.Seed))
	sampler := prior.New(s.model)
	ws := make([]*Worker, n)
	for i := range ws {
		name := fmt.Sprintf("%s-%d", s.settings.Title, i+1)
		ws[i] = &Worker{
			Name:     name,
			Model:    s.model,
			Prior:    sampler,
			Rand:     rand.New(rand.NewSource(master.Uint64())),
			Engine:   s.engines(name),
			Settings: &s.settings,
		}
	}
	return ws
}

// Execute runs nreps replicates and writes the rows to sink in arrival
// order. It returns the number of rows written. On the first failed
// replicate all workers are stopped and the error is returned; the
// rows written so far must then be treated as invalid.
func (s *Simulator) Execute(ctx context.Context, nreps int, sink Sink) (int, error) {
	n := pool.Workers(s.settings.Workers)
	if n > nreps {
		n = nreps
	}
	if n < 1 {
		return 0, nil
	}
	ws := s.workers(n)
	s.log.Infof("Running %s replicates on %d workers", humanize.Comma(int64(nreps)), n)

	p := pool.Start(ctx, n, pool.NewQueue(nreps), func(ctx context.Context, w, rep int) (*table.Row, error) {
		return s.replicate(ctx, ws[w], rep)
	})

	count := 0
	for count < nreps {
		res, ok := <-p.Results()
		if !ok {
			break
		}
		if res.Err != nil {
			werr := workerError(ws[res.Worker].Name, res.Task, res.Err)
			s.log.Errorf("Worker %s failed on replicate %d: %v", werr.Worker, werr.Replicate, werr.Err)
			s.log.Debug(werr.Stack)
			p.Terminate()
			p.Wait()
			return count, werr
		}
		if err := sink.Write(res.Value); err != nil {
			p.Terminate()
			p.Wait()
			return count, errors.Wrap(err, "writing result row")
		}
		count++
		if f := s.settings.LogFrequency; f > 0 && count%f == 0 {
			s.log.Infof("Completed %s of %s replicates", humanize.Comma(int64(count)), humanize.Comma(int64(nreps)))
		}
	}
	if err := p.Wait(); err != nil {
		return count, err
	}
	if count < nreps {
		return count, fmt.Errorf("workers stopped after %d of %d replicates", count, nreps)
	}
	return count, nil
}

// workerError tags err with the worker identity and a stack trace.
func workerError(name string, rep int, err error) *WorkerError {
	werr := &WorkerError{Worker: name, Replicate: rep, Err: err}
	var perr *pool.PanicError
	if errors.As(err, &perr) {
		werr.Stack = string(perr.Stack)
	} else {
		werr.Stack = fmt.Sprintf("%+v", err)
	}
	return werr
}

// Replicate draws parameters from the prior, simulates every locus and
// returns the row of the replicate.
func Replicate(ctx context.Context, w *Worker, rep int) (*table.Row, error) {
	row := table.NewRow()
	if w.Settings.IncludeModelID {
		row.Set("model.id", "")
	}
	for _, l := range w.Settings.Labels {
		row.Set(l.Name, l.Value)
	}
	params, jobs := w.Prior.Sample(w.Rand)
	params.AddFields(w.Model, row)
	for _, job := range jobs {
		prefix := fmt.Sprintf("%s.%s.%s", w.Settings.StatPrefix, job.Pair.Label, job.Locus.Label)
		seed := 1 + w.Rand.Intn(maxSeed)
		if err := w.Engine.Run(ctx, prefix, &job.Config, seed, row); err != nil {
			return nil, errors.Wrapf(err, "simulating %s", prefix)
		}
	}
	if w.Settings.IncludeModelID {
		row.Set("model.id", params.ModelCode())
	}
	return row, nil
}
