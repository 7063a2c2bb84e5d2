package main

// CallSummary stores information about the gerenuk call.
type CallSummary struct {
	// Version stores gerenuk version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed uint64 `json:"seed"`
	// Workers is the number of simulation workers used.
	Workers int `json:"workers"`
	// Time is the computations time in seconds.
	TotalTime float64 `json:"time"`
}

// SimulationSummary is storing simulation run summary information.
type SimulationSummary struct {
	CallSummary
	// Name is the run name.
	Name string `json:"name"`
	// Replicates is the number of requested replicates.
	Replicates int `json:"replicates"`
	// Collected is the number of rows written.
	Collected int `json:"collected"`
	// Output is the result table, with the incomplete suffix if the
	// run failed.
	Output string `json:"output"`
	// LineagePairs is the number of lineage pairs of the model.
	LineagePairs int `json:"lineagePairs"`
	// Loci is the total number of loci.
	Loci int `json:"loci"`
	// Fields is the number of columns of the result table.
	Fields int `json:"fields,omitempty"`
	// Error is the error of a failed run.
	Error string `json:"error,omitempty"`
}
