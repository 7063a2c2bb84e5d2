package fsc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Config is the configuration of one engine run for one locus.
type Config struct {
	// PopulationSizes are the effective sizes of deme 0 and deme 1 in
	// number of genes.
	PopulationSizes [2]float64
	// SampleSizes are the numbers of genes sampled from each deme.
	SampleSizes [2]int
	// DivTime is the divergence time in generations.
	DivTime float64
	// Sites is the number of sites of the DNA block.
	Sites int
	// RecombinationRate is the per generation recombination rate.
	RecombinationRate float64
	// MutationRate is the per generation mutation rate.
	MutationRate float64
	// TiBias is the transition bias of the mutation model.
	TiBias float64
}

const configTemplate = `//Number of population samples (demes)
2
//Population effective sizes (number of genes)
%s
%s
//Sample sizes
%d
%d
//Growth rates: negative growth implies population expansion
0
0
//Number of migration matrices : 0 implies no migration between demes
0
//historical event: time, source, sink, migrants, new size, new growth rate, migr. matrix 4 historical event
1  historical event
%s 0 1 1 2 0 0
//Number of independent loci [chromosome]; '0' => same structure for all loci
1 0
//Per chromosome: Number of contiguous linkage Block: a block is a set of contiguous loci
1
//per Block:data type, number of loci, per generation recombination rate, per generation mutation rate and optional parameters
DNA %d %s %s %s
`

// formatFixed formats sizes and times without an exponent.
func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTo writes the configuration in the engine's .par format.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, configTemplate,
		formatFixed(c.PopulationSizes[0]),
		formatFixed(c.PopulationSizes[1]),
		c.SampleSizes[0],
		c.SampleSizes[1],
		formatFixed(c.DivTime),
		c.Sites,
		formatRate(c.RecombinationRate),
		formatRate(c.MutationRate),
		formatRate(c.TiBias),
	)
	return int64(n), err
}

func (c *Config) String() string {
	var b strings.Builder
	c.WriteTo(&b)
	return b.String()
}

// ReadConfig reads back the values of a configuration written by
// WriteTo.
func ReadConfig(r io.Reader) (*Config, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) != 13 {
		return nil, fmt.Errorf("expected 13 value lines, found %d", len(lines))
	}
	if lines[0] != "2" {
		return nil, fmt.Errorf("expected 2 demes, found %q", lines[0])
	}

	c := &Config{}
	p := &parser{}
	c.PopulationSizes[0] = p.float(lines[1])
	c.PopulationSizes[1] = p.float(lines[2])
	c.SampleSizes[0] = p.int(lines[3])
	c.SampleSizes[1] = p.int(lines[4])

	event := strings.Fields(lines[9])
	if len(event) != 7 {
		return nil, fmt.Errorf("historical event %q: expected 7 fields", lines[9])
	}
	c.DivTime = p.float(event[0])

	block := strings.Fields(lines[12])
	if len(block) != 5 || block[0] != "DNA" {
		return nil, fmt.Errorf("block %q: expected DNA and 4 values", lines[12])
	}
	c.Sites = p.int(block[1])
	c.RecombinationRate = p.float(block[2])
	c.MutationRate = p.float(block[3])
	c.TiBias = p.float(block[4])
	if p.err != nil {
		return nil, p.err
	}
	return c, nil
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) int(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}
