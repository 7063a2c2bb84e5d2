// Package dist implements the gamma priors used by the model.
package dist

import (
	"fmt"
	"math"

	"github.com/gonum/mathext"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gamma is a gamma distribution given by shape and scale.
type Gamma struct {
	Shape float64
	Scale float64
}

// IsZero returns true if both hyperparameters are zero. For the
// ancestral theta prior this means that no distinct prior is
// configured.
func (g Gamma) IsZero() bool {
	return g.Shape == 0 && g.Scale == 0
}

// Valid returns true if both hyperparameters are positive and finite.
func (g Gamma) Valid() bool {
	return g.Shape > 0 && g.Scale > 0 && !math.IsInf(g.Shape, 0) && !math.IsInf(g.Scale, 0)
}

func (g Gamma) String() string {
	return fmt.Sprintf("Gamma(shape=%g, scale=%g)", g.Shape, g.Scale)
}

// Rand draws a value using src as the random stream.
func (g Gamma) Rand(src rand.Source) float64 {
	d := distuv.Gamma{Alpha: g.Shape, Beta: 1 / g.Scale, Src: src}
	return d.Rand()
}

// Mean returns the mean of the distribution.
func (g Gamma) Mean() float64 {
	return g.Shape * g.Scale
}

// Variance returns the variance of the distribution.
func (g Gamma) Variance() float64 {
	return g.Shape * g.Scale * g.Scale
}

// CDF returns Prob{x<z}, computed as the incomplete gamma ratio
// I(z/scale, shape).
func (g Gamma) CDF(z float64) float64 {
	if z <= 0 {
		return 0
	}
	return mathext.GammaInc(g.Shape, z/g.Scale)
}

// Quantile returns z so that Prob{x<z}=prob. The root of the CDF is
// found by bisection.
func (g Gamma) Quantile(prob float64) float64 {
	if prob <= 0 {
		return 0
	}
	if prob >= 1 {
		return math.Inf(1)
	}
	lo, hi := 0.0, g.Mean()
	if hi <= 0 {
		hi = 1
	}
	for g.CDF(hi) < prob {
		lo = hi
		hi *= 2
	}
	for i := 0; i < 200 && hi-lo > 1e-15*hi; i++ {
		mid := (lo + hi) / 2
		if g.CDF(mid) < prob {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Interval returns the central interval holding mass of the
// distribution.
func (g Gamma) Interval(mass float64) (lo, hi float64) {
	tail := (1 - mass) / 2
	return g.Quantile(tail), g.Quantile(1 - tail)
}
