// Package prior draws the parameters of one simulation replicate from
// the hierarchical prior of a model and turns them into engine
// configurations.
package prior

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"

	"github.com/gerenuk/gerenuk/fsc"
	"github.com/gerenuk/gerenuk/model"
	"github.com/gerenuk/gerenuk/partition"
	"github.com/gerenuk/gerenuk/table"
)

// Deme indices into Thetas.
const (
	Deme0 = iota
	Deme1
	Ancestral
)

// Parameters are the values drawn for one replicate.
type Parameters struct {
	// Concentration is the drawn concentration, NaN if the number of
	// classes is fixed.
	Concentration float64
	// Partition groups lineage pairs into divergence-time classes,
	// sorted by the smallest lineage pair index of each group.
	Partition partition.Partition
	// Classes is the class of each lineage pair.
	Classes []int
	// DivTimes is the divergence time of each class.
	DivTimes []float64
	// Thetas are the thetas of deme 0, deme 1 and the ancestral deme of
	// each lineage pair.
	Thetas [][3]float64
}

// NumDivTimes returns the number of distinct divergence times.
func (p *Parameters) NumDivTimes() int {
	return len(p.DivTimes)
}

// DivTime returns the divergence time of a lineage pair.
func (p *Parameters) DivTime(pair int) float64 {
	return p.DivTimes[p.Classes[pair]]
}

// ModelCode returns "Model" followed by the 1-based class number of
// every lineage pair.
func (p *Parameters) ModelCode() string {
	var b strings.Builder
	b.WriteString("Model")
	for _, c := range p.Classes {
		b.WriteString(strconv.Itoa(c + 1))
	}
	return b.String()
}

// AddFields adds the parameter fields to row.
func (p *Parameters) AddFields(m *model.Model, row *table.Row) {
	row.Set("param.divTimeModel", p.ModelCode())
	row.SetInt("param.numDivTimes", p.NumDivTimes())
	for i, lp := range m.LineagePairs() {
		row.SetFloat("param.divTime."+lp.Label, p.DivTime(i))
		row.SetFloat("param.theta."+lp.Label+".deme0", p.Thetas[i][Deme0])
		row.SetFloat("param.theta."+lp.Label+".deme1", p.Thetas[i][Deme1])
		row.SetFloat("param.theta."+lp.Label+".demeA", p.Thetas[i][Ancestral])
	}
}

// Job is the engine configuration of one locus.
type Job struct {
	Pair   *model.LineagePair
	Locus  *model.LocusDefinition
	Config fsc.Config
}

// Sampler draws parameters of a model.
type Sampler struct {
	model *model.Model
}

// New creates a sampler for m.
func New(m *model.Model) *Sampler {
	return &Sampler{model: m}
}

// Sample draws the parameters of one replicate and returns them with
// the engine configuration of every locus in model order.
func (s *Sampler) Sample(rng *rand.Rand) (*Parameters, []Job) {
	params := s.Draw(rng)
	return params, s.Jobs(params)
}

// Draw draws the parameters of one replicate.
func (s *Sampler) Draw(rng *rand.Rand) *Parameters {
	m := s.model
	n := m.NumLineagePairs()
	p := &Parameters{Concentration: math.NaN()}

	var part partition.Partition
	if m.NumTauClasses > 0 {
		part = partition.SampleFixed(n, m.NumTauClasses, rng)
	} else {
		p.Concentration = m.Concentration.Rand(rng)
		part = partition.Sample(n, p.Concentration, rng)
	}
	p.Partition = part.Sorted()
	p.Classes = p.Partition.Classes(n)

	p.DivTimes = make([]float64, len(p.Partition))
	for i := range p.DivTimes {
		p.DivTimes[i] = m.Tau.Rand(rng)
	}

	c := m.ThetaConstraints
	p.Thetas = make([][3]float64, n)
	for i := range p.Thetas {
		t := &p.Thetas[i]
		t[Deme0] = m.Theta.Rand(rng)
		if c.Deme1SharesDeme0() {
			t[Deme1] = t[Deme0]
		} else {
			t[Deme1] = m.Theta.Rand(rng)
		}
		switch {
		case c.AncestralSharesDeme0():
			t[Ancestral] = t[Deme0]
		case c.AncestralSharesDeme1():
			t[Ancestral] = t[Deme1]
		case m.AncestralTheta.IsZero():
			t[Ancestral] = m.Theta.Rand(rng)
		default:
			t[Ancestral] = m.AncestralTheta.Rand(rng)
		}
	}
	return p
}

// Jobs builds the engine configuration of every locus.
func (s *Sampler) Jobs(p *Parameters) []Job {
	jobs := make([]Job, 0, s.model.NumLoci())
	for i, lp := range s.model.LineagePairs() {
		for _, l := range lp.Loci {
			jobs = append(jobs, Job{
				Pair:   lp,
				Locus:  l,
				Config: BuildConfig(l, p.Thetas[i], p.DivTime(i)),
			})
		}
	}
	return jobs
}
