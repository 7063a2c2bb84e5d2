package prior

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"pgregory.net/rapid"

	"github.com/gerenuk/gerenuk/dist"
	"github.com/gerenuk/gerenuk/model"
	"github.com/gerenuk/gerenuk/table"
)

func testModel(t require.TestingT, constraints string, ancestral dist.Gamma, fixed int, pairs int) *model.Model {
	var loci []model.LocusDefinition
	for i := 0; i < pairs; i++ {
		for _, label := range []string{"mt", "nuc"} {
			loci = append(loci, model.LocusDefinition{
				Taxon: fmt.Sprintf("pair%d", i), Label: label,
				PloidyFactor: 0.25, MutationRateFactor: 2,
				SampleSizes: [2]int{4, 6}, TiTvRatio: 9, Sites: 500,
				FreqA: 0.25, FreqC: 0.25, FreqG: 0.25,
			})
		}
	}
	m, err := model.New(model.Params{
		Concentration:     dist.Gamma{Shape: 1.5, Scale: 2},
		Theta:             dist.Gamma{Shape: 4, Scale: 0.001},
		AncestralTheta:    ancestral,
		Tau:               dist.Gamma{Shape: 1, Scale: 0.01},
		ThetaConstraints:  model.Constraints(constraints),
		TimeInSubsPerSite: true,
		NumTauClasses:     fixed,
	}, loci)
	require.NoError(t, err)
	return m
}

func TestThetaConstraints(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := rapid.StringOfN(rapid.RuneFrom([]rune("012")), 3, 3, -1).Draw(t, "constraints")
		distinct := rapid.Bool().Draw(t, "ancestralPrior")
		anc := dist.Gamma{}
		if distinct {
			anc = dist.Gamma{Shape: 2, Scale: 5}
		}
		m := testModel(t, c, anc, 0, 3)
		p := New(m).Draw(rand.New(rand.NewSource(rapid.Uint64().Draw(t, "seed"))))
		for _, th := range p.Thetas {
			eq := func(a, b int) bool { return c[a] == c[b] }
			require.Equal(t, eq(0, 1), th[Deme0] == th[Deme1], "deme0/deme1 %s %v", c, th)
			if eq(0, 2) || eq(1, 2) {
				require.True(t, th[Ancestral] == th[Deme0] || th[Ancestral] == th[Deme1])
			} else {
				require.NotEqual(t, th[Ancestral], th[Deme0])
				require.NotEqual(t, th[Ancestral], th[Deme1])
			}
			if eq(0, 2) {
				require.Equal(t, th[Deme0], th[Ancestral])
			} else if eq(1, 2) {
				require.Equal(t, th[Deme1], th[Ancestral])
			}
		}
	})
}

func TestAncestralPrior(t *testing.T) {
	// the ancestral prior has a mean 10000 times larger than the theta
	// prior, so its draws are easy to tell apart
	m := testModel(t, "012", dist.Gamma{Shape: 4, Scale: 10}, 0, 2)
	rng := rand.New(rand.NewSource(5))
	s := New(m)
	for i := 0; i < 100; i++ {
		for _, th := range s.Draw(rng).Thetas {
			require.Greater(t, th[Ancestral], 1.0)
			require.Less(t, th[Deme0], 1.0)
		}
	}
	m = testModel(t, "012", dist.Gamma{}, 0, 2)
	s = New(m)
	for i := 0; i < 100; i++ {
		for _, th := range s.Draw(rng).Thetas {
			require.Less(t, th[Ancestral], 1.0)
		}
	}
}

func TestDrawPartition(t *testing.T) {
	m := testModel(t, "000", dist.Gamma{}, 0, 5)
	rng := rand.New(rand.NewSource(9))
	s := New(m)
	for i := 0; i < 200; i++ {
		p := s.Draw(rng)
		require.False(t, math.IsNaN(p.Concentration))
		require.Equal(t, len(p.Partition), p.NumDivTimes())
		require.Len(t, p.Classes, 5)
		// classes are numbered by first appearance
		require.Equal(t, 0, p.Classes[0])
		max := 0
		for _, c := range p.Classes {
			require.LessOrEqual(t, c, max+1)
			if c > max {
				max = c
			}
		}
		require.Equal(t, p.NumDivTimes()-1, max)
		code := p.ModelCode()
		require.Len(t, code, len("Model")+5)
		require.Equal(t, "Model1", code[:6])
	}
}

func TestDrawFixedClasses(t *testing.T) {
	m := testModel(t, "000", dist.Gamma{}, 3, 5)
	rng := rand.New(rand.NewSource(2))
	s := New(m)
	for i := 0; i < 100; i++ {
		p := s.Draw(rng)
		require.True(t, math.IsNaN(p.Concentration))
		require.Equal(t, 3, p.NumDivTimes())
	}
}

func TestModelCode(t *testing.T) {
	p := &Parameters{Classes: []int{0, 1, 0, 2}, DivTimes: []float64{1, 2, 3}}
	require.Equal(t, "Model1213", p.ModelCode())
	require.Equal(t, 2.0, p.DivTime(1))
	require.Equal(t, 1.0, p.DivTime(2))
}

func TestSampleJobs(t *testing.T) {
	m := testModel(t, "012", dist.Gamma{}, 0, 3)
	params, jobs := New(m).Sample(rand.New(rand.NewSource(4)))
	require.Len(t, jobs, 6)
	for i, j := range jobs {
		pair := i / 2
		require.Equal(t, m.LineagePairs()[pair], j.Pair)
		th := params.Thetas[pair]
		require.InDelta(t, th[Deme0]/4*0.25*Rescale, j.Config.PopulationSizes[0], 1e-6)
		require.InDelta(t, th[Deme1]/4*0.25*Rescale, j.Config.PopulationSizes[1], 1e-6)
		require.Equal(t, params.DivTime(pair)*Rescale, j.Config.DivTime)
		require.Equal(t, [2]int{4, 6}, j.Config.SampleSizes)
		require.Equal(t, 500, j.Config.Sites)
		require.Equal(t, 0.0, j.Config.RecombinationRate)
		require.Equal(t, 2/Rescale, j.Config.MutationRate)
		require.Equal(t, 3.0, j.Config.TiBias)
	}
}

func TestBuildConfigPreservesTheta(t *testing.T) {
	l := &model.LocusDefinition{PloidyFactor: 1, MutationRateFactor: 1, Sites: 1}
	cfg := BuildConfig(l, [3]float64{0.004, 0.002, 0.001}, 0.05)
	require.InDelta(t, 0.004, 4*cfg.PopulationSizes[0]*cfg.MutationRate, 1e-15)
	require.InDelta(t, 0.002, 4*cfg.PopulationSizes[1]*cfg.MutationRate, 1e-15)
	require.InDelta(t, 0.05, cfg.DivTime*cfg.MutationRate, 1e-15)
}

func TestAddFields(t *testing.T) {
	m := testModel(t, "012", dist.Gamma{}, 0, 2)
	p := &Parameters{
		Classes:  []int{0, 0},
		DivTimes: []float64{0.5},
		Thetas:   [][3]float64{{1, 2, 3}, {4, 5, 6}},
	}
	row := table.NewRow()
	p.AddFields(m, row)
	require.Equal(t, []string{
		"param.divTimeModel", "param.numDivTimes",
		"param.divTime.pair0", "param.theta.pair0.deme0", "param.theta.pair0.deme1", "param.theta.pair0.demeA",
		"param.divTime.pair1", "param.theta.pair1.deme0", "param.theta.pair1.deme1", "param.theta.pair1.demeA",
	}, row.Names())
	v, _ := row.Get("param.divTimeModel")
	require.Equal(t, "Model11", v)
	v, _ = row.Get("param.theta.pair1.demeA")
	require.Equal(t, "6", v)
}
