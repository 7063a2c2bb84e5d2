package prior

import (
	"github.com/gerenuk/gerenuk/fsc"
	"github.com/gerenuk/gerenuk/model"
)

// Rescale multiplies population sizes and divergence times and divides
// mutation rates. The engine truncates population sizes to integers,
// and theta = 4Nu is unchanged by the rescaling.
const Rescale = 1e8

// BuildConfig returns the engine configuration of a locus for the given
// thetas and divergence time. Recombination is not modelled.
func BuildConfig(l *model.LocusDefinition, thetas [3]float64, divTime float64) fsc.Config {
	return fsc.Config{
		PopulationSizes: [2]float64{
			thetas[Deme0] / 4 * l.PloidyFactor * Rescale,
			thetas[Deme1] / 4 * l.PloidyFactor * Rescale,
		},
		SampleSizes:       l.SampleSizes,
		DivTime:           divTime * Rescale,
		Sites:             l.Sites,
		RecombinationRate: 0,
		MutationRate:      l.MutationRateFactor / Rescale,
		TiBias:            l.TiTvRatio / 3,
	}
}
