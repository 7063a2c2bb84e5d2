package simulate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gerenuk/gerenuk/dist"
	"github.com/gerenuk/gerenuk/fsc"
	"github.com/gerenuk/gerenuk/model"
	"github.com/gerenuk/gerenuk/table"
)

func testModel(t *testing.T) *model.Model {
	var loci []model.LocusDefinition
	for _, taxon := range []string{"lake1", "lake2", "lake3"} {
		loci = append(loci, model.LocusDefinition{
			Taxon: taxon, Label: "mt",
			PloidyFactor: 0.25, MutationRateFactor: 1,
			SampleSizes: [2]int{3, 4}, TiTvRatio: 3, Sites: 100,
		})
	}
	m, err := model.New(model.Params{
		Concentration:     dist.Gamma{Shape: 1, Scale: 1},
		Theta:             dist.Gamma{Shape: 2, Scale: 0.001},
		Tau:               dist.Gamma{Shape: 1, Scale: 0.01},
		ThetaConstraints:  "012",
		TimeInSubsPerSite: true,
	}, loci)
	require.NoError(t, err)
	return m
}

// fakeEngine adds two statistics derived from the configuration.
type fakeEngine struct {
	name  string
	mu    sync.Mutex
	seeds []int
	fail  func(prefix string) error
}

func (e *fakeEngine) Run(ctx context.Context, prefix string, cfg *fsc.Config, seed int, row *table.Row) error {
	e.mu.Lock()
	e.seeds = append(e.seeds, seed)
	e.mu.Unlock()
	if e.fail != nil {
		if err := e.fail(prefix); err != nil {
			return err
		}
	}
	row.SetFloat(prefix+".joint.sfs.d1_0.d0_0", cfg.DivTime)
	row.SetInt(prefix+".joint.sfs.d1_0.d0_1", seed)
	return nil
}

type collector struct {
	rows []*table.Row
}

func (c *collector) Write(r *table.Row) error {
	c.rows = append(c.rows, r)
	return nil
}

func TestExecute(t *testing.T) {
	m := testModel(t)
	var mu sync.Mutex
	engines := map[string]*fakeEngine{}
	sim := New(m, Settings{
		Title:          "gerenuk-test",
		Workers:        4,
		Seed:           1,
		IncludeModelID: true,
		Labels:         []table.Field{{Name: "batch", Value: "b1"}},
		LogFrequency:   10,
	}, func(name string) Engine {
		mu.Lock()
		defer mu.Unlock()
		e := &fakeEngine{name: name}
		engines[name] = e
		return e
	}, nil)

	c := &collector{}
	n, err := sim.Execute(context.Background(), 50, c)
	require.NoError(t, err)
	require.Equal(t, 50, n)
	require.Len(t, c.rows, 50)
	require.Len(t, engines, 4)
	for i := 1; i <= 4; i++ {
		require.Contains(t, engines, fmt.Sprintf("gerenuk-test-%d", i))
	}

	names := c.rows[0].Names()
	require.Equal(t, []string{"model.id", "batch", "param.divTimeModel", "param.numDivTimes",
		"param.divTime.lake1", "param.theta.lake1.deme0", "param.theta.lake1.deme1", "param.theta.lake1.demeA"},
		names[:8])
	require.Equal(t, "stat.lake1.mt.joint.sfs.d1_0.d0_0", names[16])
	for _, r := range c.rows {
		require.Equal(t, names, r.Names())
		id, _ := r.Get("model.id")
		code, _ := r.Get("param.divTimeModel")
		require.Equal(t, code, id)
		require.True(t, strings.HasPrefix(code, "Model1"))
	}
	for _, e := range engines {
		for _, s := range e.seeds {
			require.True(t, s >= 1 && s <= maxSeed)
		}
	}
}

func TestExecuteReproducible(t *testing.T) {
	m := testModel(t)
	run := func() []string {
		sim := New(m, Settings{Workers: 1, Seed: 99}, func(name string) Engine { return &fakeEngine{} }, nil)
		c := &collector{}
		_, err := sim.Execute(context.Background(), 20, c)
		require.NoError(t, err)
		var codes []string
		for _, r := range c.rows {
			v, _ := r.Get("param.divTime.lake2")
			codes = append(codes, v)
		}
		return codes
	}
	require.Equal(t, run(), run())
}

func TestExecuteFailure(t *testing.T) {
	m := testModel(t)
	boom := errors.New("engine exploded")
	sim := New(m, Settings{Workers: 4, Seed: 3}, func(name string) Engine {
		return &fakeEngine{}
	}, nil)
	sim.SetReplicateFunc(func(ctx context.Context, w *Worker, rep int) (*table.Row, error) {
		if rep == 13 {
			return nil, boom
		}
		return Replicate(ctx, w, rep)
	})
	c := &collector{}
	_, err := sim.Execute(context.Background(), 50, c)
	require.Error(t, err)
	var werr *WorkerError
	require.True(t, errors.As(err, &werr))
	require.Equal(t, 13, werr.Replicate)
	require.True(t, strings.HasPrefix(werr.Worker, "gerenuk-"))
	require.ErrorIs(t, err, boom)
}

func TestExecuteEngineFailure(t *testing.T) {
	m := testModel(t)
	sim := New(m, Settings{Workers: 2}, func(name string) Engine {
		return &fakeEngine{fail: func(prefix string) error {
			if strings.Contains(prefix, "lake3") {
				return &fsc.EngineError{ExitCode: 1, Stderr: "bad"}
			}
			return nil
		}}
	}, nil)
	n, err := sim.Execute(context.Background(), 10, &collector{})
	require.Equal(t, 0, n)
	var eerr *fsc.EngineError
	require.True(t, errors.As(err, &eerr))
	require.Contains(t, err.Error(), "stat.lake3.mt")
	var werr *WorkerError
	require.True(t, errors.As(err, &werr))
	require.NotEmpty(t, werr.Stack)
}

func TestExecutePanic(t *testing.T) {
	m := testModel(t)
	sim := New(m, Settings{Workers: 2}, func(name string) Engine { return &fakeEngine{} }, nil)
	sim.SetReplicateFunc(func(ctx context.Context, w *Worker, rep int) (*table.Row, error) {
		panic("probabilities do not sum to 1")
	})
	_, err := sim.Execute(context.Background(), 5, &collector{})
	var werr *WorkerError
	require.True(t, errors.As(err, &werr))
	require.Contains(t, werr.Stack, "simulate_test.go")
}

type failingSink struct{}

func (failingSink) Write(*table.Row) error { return errors.New("disk full") }

func TestExecuteSinkFailure(t *testing.T) {
	sim := New(testModel(t), Settings{Workers: 2}, func(name string) Engine { return &fakeEngine{} }, nil)
	_, err := sim.Execute(context.Background(), 5, failingSink{})
	require.ErrorContains(t, err, "disk full")
}

func TestExecuteNothing(t *testing.T) {
	sim := New(testModel(t), Settings{}, func(name string) Engine { return &fakeEngine{} }, nil)
	n, err := sim.Execute(context.Background(), 0, &collector{})
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
