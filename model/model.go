// Package model holds the immutable description of a simulation model:
// the hyperparameters of the priors and the lineage pairs with their
// loci.
package model

import (
	"fmt"
	"strings"

	"github.com/gerenuk/gerenuk/dist"
)

// LocusDefinition describes one locus of one lineage pair.
type LocusDefinition struct {
	// Taxon is the label of the lineage pair.
	Taxon string
	// Label is the locus label, unique within the lineage pair.
	Label string
	// PloidyFactor scales the effective population size.
	PloidyFactor float64
	// MutationRateFactor scales the mutation rate.
	MutationRateFactor float64
	// SampleSizes are the numbers of genes sampled from deme 0 and deme 1.
	SampleSizes [2]int
	// TiTvRatio is the transition/transversion rate ratio.
	TiTvRatio float64
	// Sites is the number of sites.
	Sites int
	// FreqA, FreqC and FreqG are equilibrium nucleotide frequencies.
	FreqA, FreqC, FreqG float64
	// Alignment is an optional path to the source alignment.
	Alignment string
}

// FreqT returns the frequency of T implied by the other three.
func (l *LocusDefinition) FreqT() float64 {
	return 1 - l.FreqA - l.FreqC - l.FreqG
}

// LineagePair is a named group of loci sharing a taxon label.
type LineagePair struct {
	Label string
	Loci  []*LocusDefinition
}

// Constraints is a three character string over {0, 1, 2} giving the
// theta classes of deme 0, deme 1 and the ancestral deme. Demes with the
// same character share one theta value.
type Constraints string

// DefaultConstraints makes all three demes share one theta.
const DefaultConstraints Constraints = "000"

// Validate checks the form of the constraint string.
func (c Constraints) Validate() error {
	if len(c) != 3 {
		return fmt.Errorf("theta constraints %q: expected 3 characters", string(c))
	}
	for _, r := range c {
		if r < '0' || r > '2' {
			return fmt.Errorf("theta constraints %q: only 0, 1 and 2 are allowed", string(c))
		}
	}
	return nil
}

// Deme1SharesDeme0 returns true if deme 1 takes the theta of deme 0.
func (c Constraints) Deme1SharesDeme0() bool { return c[1] == c[0] }

// AncestralSharesDeme0 returns true if the ancestral deme takes the
// theta of deme 0.
func (c Constraints) AncestralSharesDeme0() bool { return c[2] == c[0] }

// AncestralSharesDeme1 returns true if the ancestral deme takes the
// theta of deme 1.
func (c Constraints) AncestralSharesDeme1() bool { return c[2] == c[1] }

// Params are the prior hyperparameters.
type Params struct {
	Concentration  dist.Gamma
	Theta          dist.Gamma
	AncestralTheta dist.Gamma
	Tau            dist.Gamma
	Migration      dist.Gamma
	// ThetaConstraints gives which demes share theta.
	ThetaConstraints Constraints
	// TimeInSubsPerSite must be true, other time units are not
	// supported.
	TimeInSubsPerSite bool
	// BottleneckShapes are the beta hyperparameters of the bottleneck
	// proportion. Bottlenecks are not simulated.
	BottleneckShapes [2]float64
	// BottleneckShared is recorded but unused.
	BottleneckShared bool
	// NumTauClasses fixes the number of divergence-time classes if
	// positive. Zero lets it vary with the concentration.
	NumTauClasses int
}

// Model is a simulation model. It is not modified after New returns
// and is shared by all workers.
type Model struct {
	Params
	pairs    []*LineagePair
	warnings []string
}

// New validates the parameters and groups loci into lineage pairs in
// order of first appearance of each taxon.
func New(p Params, loci []LocusDefinition) (*Model, error) {
	verr := &ValidationError{}
	m := &Model{Params: p}

	if err := p.ThetaConstraints.Validate(); err != nil {
		verr.Invalidf("%v", err)
	}
	for _, g := range []struct {
		name string
		g    dist.Gamma
	}{
		{"concentration", p.Concentration},
		{"theta", p.Theta},
		{"tau", p.Tau},
	} {
		if g.name == "concentration" && p.NumTauClasses > 0 {
			continue
		}
		if !g.g.Valid() {
			verr.Invalidf("%s prior %v: shape and scale must be positive", g.name, g.g)
		}
	}
	if !p.AncestralTheta.IsZero() && !p.AncestralTheta.Valid() {
		verr.Invalidf("ancestral theta prior %v: shape and scale must be both zero or both positive", p.AncestralTheta)
	}
	if !p.Migration.IsZero() {
		verr.Invalidf("migration prior %v: migration is not supported", p.Migration)
	}
	if !p.TimeInSubsPerSite {
		verr.Invalidf("timeInSubsPerSite: only time in expected substitutions per site is supported")
	}
	if p.BottleneckShapes[0] > 0 || p.BottleneckShapes[1] > 0 {
		m.warnings = append(m.warnings, fmt.Sprintf("bottleneck proportion prior (%g, %g) is ignored: bottlenecks are not simulated",
			p.BottleneckShapes[0], p.BottleneckShapes[1]))
	}

	index := map[string]*LineagePair{}
	for i := range loci {
		l := loci[i]
		where := fmt.Sprintf("loci[%d] (%s/%s)", i, l.Taxon, l.Label)
		validateLocus(&l, where, verr)
		lp, ok := index[l.Taxon]
		if !ok {
			lp = &LineagePair{Label: l.Taxon}
			index[l.Taxon] = lp
			m.pairs = append(m.pairs, lp)
		}
		for _, o := range lp.Loci {
			if o.Label == l.Label {
				verr.Invalidf("%s: duplicate locus label %q in lineage pair %q", where, l.Label, l.Taxon)
			}
		}
		lp.Loci = append(lp.Loci, &l)
	}
	if len(m.pairs) == 0 {
		verr.Invalidf("loci: at least one locus is required")
	}
	if p.NumTauClasses < 0 || p.NumTauClasses > len(m.pairs) {
		verr.Invalidf("numTauClasses %d: must be between 0 and the number of lineage pairs (%d)",
			p.NumTauClasses, len(m.pairs))
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func validateLocus(l *LocusDefinition, where string, verr *ValidationError) {
	if strings.TrimSpace(l.Taxon) == "" {
		verr.Invalidf("%s: empty taxon label", where)
	}
	if strings.TrimSpace(l.Label) == "" {
		verr.Invalidf("%s: empty locus label", where)
	}
	if strings.ContainsAny(l.Taxon+l.Label, "\t\r\n") {
		verr.Invalidf("%s: labels must not contain tabs or newlines", where)
	}
	if l.PloidyFactor <= 0 {
		verr.Invalidf("%s: ploidy factor must be positive", where)
	}
	if l.MutationRateFactor <= 0 {
		verr.Invalidf("%s: mutation rate factor must be positive", where)
	}
	if l.SampleSizes[0] < 1 || l.SampleSizes[1] < 1 {
		verr.Invalidf("%s: sample sizes must be at least 1", where)
	}
	if l.TiTvRatio < 0 {
		verr.Invalidf("%s: ti/tv ratio must not be negative", where)
	}
	if l.Sites < 1 {
		verr.Invalidf("%s: number of sites must be at least 1", where)
	}
	for _, f := range []float64{l.FreqA, l.FreqC, l.FreqG} {
		if f < 0 || f > 1 {
			verr.Invalidf("%s: nucleotide frequencies must be in [0; 1]", where)
			return
		}
	}
	if l.FreqT() < -1e-9 {
		verr.Invalidf("%s: nucleotide frequencies sum to more than 1", where)
	}
}

// LineagePairs returns the lineage pairs in model order. The slice must
// not be modified.
func (m *Model) LineagePairs() []*LineagePair {
	return m.pairs
}

// NumLineagePairs returns the number of lineage pairs.
func (m *Model) NumLineagePairs() int {
	return len(m.pairs)
}

// NumLoci returns the total number of loci.
func (m *Model) NumLoci() (n int) {
	for _, lp := range m.pairs {
		n += len(lp.Loci)
	}
	return
}

// Warnings returns the problems found in the parameters which were
// accepted but have no effect.
func (m *Model) Warnings() []string {
	return m.warnings
}
