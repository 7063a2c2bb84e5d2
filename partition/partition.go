// Package partition draws random partitions of lineage pairs into
// divergence-time classes using the Chinese restaurant process.
package partition

import (
	"fmt"
	"math"
	"sort"
)

// tolerance is the allowed deviation of the probability sum from 1.
const tolerance = 1e-5

// Source is the random stream used by the samplers. *rand.Rand from
// golang.org/x/exp/rand satisfies it.
type Source interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Partition is a grouping of element indices 0..n-1 into non-empty,
// non-overlapping groups.
type Partition [][]int

// Sample draws a partition of n elements with concentration alpha.
// Elements are seated in random order. With i elements already seated,
// the next one opens a new group with probability alpha/(alpha+i) and
// joins group g with probability |g|/(alpha+i).
func Sample(n int, alpha float64, src Source) Partition {
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		panic(fmt.Sprintf("partition: invalid concentration %v", alpha))
	}
	p := Partition{}
	if n <= 0 {
		return p
	}
	ids := order(n, src)
	p = append(p, []int{ids[0]})
	probs := make([]float64, 0, n+1)
	for i := 1; i < n; i++ {
		den := alpha + float64(i)
		probs = append(probs[:0], alpha/den)
		for _, g := range p {
			probs = append(probs, float64(len(g))/den)
		}
		p = p.seat(ids[i], choose(probs, src))
	}
	return p
}

// SampleFixed draws a partition of n elements into exactly k groups
// from the Chinese restaurant process conditioned on the number of
// groups. The conditional law does not depend on the concentration.
func SampleFixed(n, k int, src Source) Partition {
	if n <= 0 {
		return Partition{}
	}
	if k < 1 || k > n {
		panic(fmt.Sprintf("partition: cannot split %d elements into %d groups", n, k))
	}
	lf := completions(n, k)
	ids := order(n, src)
	p := Partition{}
	probs := make([]float64, 0, k+1)
	for i, id := range ids {
		j := len(p)
		probs = append(probs[:0], math.Exp(lf[i+1][j+1]-lf[i][j]))
		join := math.Exp(lf[i+1][j] - lf[i][j])
		for _, g := range p {
			probs = append(probs, float64(len(g))*join)
		}
		p = p.seat(id, choose(probs, src))
	}
	return p
}

// completions returns log f(i, j), the log of the weighted number of
// ways to seat elements i..n-1 given j open groups so that exactly k
// groups result. The table has a spare column so that j+1 is always
// addressable.
func completions(n, k int) [][]float64 {
	lf := make([][]float64, n+1)
	for i := range lf {
		lf[i] = make([]float64, k+2)
		for j := range lf[i] {
			lf[i][j] = math.Inf(-1)
		}
	}
	lf[n][k] = 0
	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= k && j <= i; j++ {
			stay := math.Inf(-1)
			if i > 0 {
				stay = math.Log(float64(i)) + lf[i+1][j]
			}
			lf[i][j] = logAdd(stay, lf[i+1][j+1])
		}
	}
	return lf
}

func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// order returns the elements 0..n-1 in random order.
func order(n int, src Source) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	src.Shuffle(n, func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

// seat puts id into a new group (k == 0) or into group k-1.
func (p Partition) seat(id, k int) Partition {
	if k == 0 {
		return append(p, []int{id})
	}
	p[k-1] = append(p[k-1], id)
	return p
}

// choose draws an outcome index from probs by cumulative weight. It
// panics if probs do not sum to one, which means the caller computed
// them wrong.
func choose(probs []float64, src Source) int {
	sum := 0.0
	for _, v := range probs {
		sum += v
	}
	if math.Abs(sum-1) > tolerance {
		panic(fmt.Sprintf("partition: probabilities sum to %v, not 1 (%v)", sum, probs))
	}
	r := src.Float64()
	last := 0
	for i, v := range probs {
		if v <= 0 {
			continue
		}
		last = i
		r -= v
		if r < 0 {
			return i
		}
	}
	return last
}

// Sorted returns a copy of the partition with groups ordered by their
// smallest element. The position of a group in the sorted partition is
// its class number.
func (p Partition) Sorted() Partition {
	s := make(Partition, len(p))
	for i, g := range p {
		s[i] = append([]int(nil), g...)
	}
	sort.SliceStable(s, func(i, j int) bool { return minOf(s[i]) < minOf(s[j]) })
	return s
}

// Classes returns the index of the group containing each element
// 0..n-1. Elements missing from the partition get -1.
func (p Partition) Classes(n int) []int {
	c := make([]int, n)
	for i := range c {
		c[i] = -1
	}
	for k, g := range p {
		for _, id := range g {
			if id >= 0 && id < n {
				c[id] = k
			}
		}
	}
	return c
}

// Len returns the number of elements in the partition.
func (p Partition) Len() (n int) {
	for _, g := range p {
		n += len(g)
	}
	return
}

func minOf(g []int) int {
	m := math.MaxInt
	for _, v := range g {
		if v < m {
			m = v
		}
	}
	return m
}

// ExpectedGroups returns the expected number of groups of a partition
// of n elements drawn with concentration alpha.
func ExpectedGroups(n int, alpha float64) (e float64) {
	if n > 0 {
		e = 1
	}
	for i := 1; i < n; i++ {
		e += alpha / (alpha + float64(i))
	}
	return
}
