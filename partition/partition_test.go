package partition

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"pgregory.net/rapid"
)

// covers checks that every element 0..n-1 is in exactly one group and
// no group is empty.
func covers(t require.TestingT, p Partition, n int) {
	seen := make([]int, n)
	for _, g := range p {
		require.NotEmpty(t, g)
		for _, id := range g {
			require.True(t, id >= 0 && id < n, "element %d out of range", id)
			seen[id]++
		}
	}
	for id, c := range seen {
		require.Equal(t, 1, c, "element %d seen %d times", id, c)
	}
}

func TestSampleCovers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		alpha := rapid.Float64Range(1e-4, 1e4).Draw(t, "alpha")
		seed := rapid.Uint64().Draw(t, "seed")
		p := Sample(n, alpha, rand.New(rand.NewSource(seed)))
		covers(t, p, n)
		require.Equal(t, n, p.Len())
	})
}

func TestSampleFixedCovers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		k := rapid.IntRange(1, n).Draw(t, "k")
		seed := rapid.Uint64().Draw(t, "seed")
		p := SampleFixed(n, k, rand.New(rand.NewSource(seed)))
		covers(t, p, n)
		require.Len(t, p, k)
	})
}

func TestSampleDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	require.Empty(t, Sample(0, 1, rng))
	require.Empty(t, SampleFixed(0, 1, rng))
	for i := 0; i < 100; i++ {
		require.Equal(t, Partition{{0}}, Sample(1, float64(i)+0.5, rng))
		require.Equal(t, Partition{{0}}, SampleFixed(1, 1, rng))
	}
}

func TestSampleConcentrationExtremes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	trials := 1000
	one, five := 0, 0
	for i := 0; i < trials; i++ {
		if len(Sample(5, 1e-6, rng)) == 1 {
			one++
		}
		if len(Sample(5, 1e9, rng)) == 5 {
			five++
		}
	}
	require.Greater(t, one, trials*99/100)
	require.Greater(t, five, trials*99/100)
}

func TestSampleFirstElementRandom(t *testing.T) {
	// with all elements in one group the seating order is visible in
	// the group, whose first element must vary
	rng := rand.New(rand.NewSource(3))
	first := map[int]bool{}
	for i := 0; i < 200; i++ {
		p := Sample(4, 0, rng)
		require.Len(t, p, 1)
		first[p[0][0]] = true
	}
	require.Len(t, first, 4)
}

func TestSampleFixedDistribution(t *testing.T) {
	// n=3, k=2: the three partitions {01|2} {02|1} {0|12} are equally
	// likely under the conditioned process
	rng := rand.New(rand.NewSource(11))
	counts := map[int]int{}
	trials := 6000
	for i := 0; i < trials; i++ {
		p := SampleFixed(3, 2, rng).Sorted()
		for _, g := range p {
			if len(g) == 1 {
				counts[g[0]]++
			}
		}
	}
	for id := 0; id < 3; id++ {
		require.InDelta(t, trials/3, counts[id], float64(trials)*0.05)
	}
}

func TestSorted(t *testing.T) {
	p := Partition{{4, 2}, {3}, {1, 0}}
	s := p.Sorted()
	require.Equal(t, Partition{{1, 0}, {4, 2}, {3}}, s)
	require.Equal(t, Partition{{4, 2}, {3}, {1, 0}}, p)
	require.Equal(t, []int{0, 0, 1, 2, 1}, s.Classes(5))
}

func TestSortedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n")
		seed := rapid.Uint64().Draw(t, "seed")
		s := Sample(n, 2, rand.New(rand.NewSource(seed))).Sorted()
		mins := make([]int, len(s))
		for i, g := range s {
			mins[i] = minOf(g)
		}
		require.True(t, sort.IntsAreSorted(mins))
		require.Equal(t, 0, s.Classes(n)[0])
	})
}

func TestChoosePanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	require.Panics(t, func() { choose([]float64{0.5, 0.4}, rng) })
	require.NotPanics(t, func() { choose([]float64{0.5, 0.5 + 1e-7}, rng) })
	require.Panics(t, func() { Sample(3, -1, rng) })
	require.Panics(t, func() { SampleFixed(3, 4, rng) })
}

func TestExpectedGroups(t *testing.T) {
	require.Equal(t, 0.0, ExpectedGroups(0, 1))
	require.Equal(t, 1.0, ExpectedGroups(1, 5))
	require.InDelta(t, 1, ExpectedGroups(10, 1e-9), 1e-6)
	require.InDelta(t, 10, ExpectedGroups(10, 1e9), 1e-6)
	// n=2, alpha=1: 1 + 1/2
	require.InDelta(t, 1.5, ExpectedGroups(2, 1), 1e-12)
}
