// Package config reads gerenuk model files. A model file is a YAML
// document holding the run settings, the prior hyperparameters and the
// loci:
//
//	name: cichlids
//	output_prefix: out/cichlids
//	fsc2_path: fsc26
//	site_frequency_spectrum: folded
//	params:
//	  concentrationShape: 1.5
//	  concentrationScale: 2.0
//	  thetaShape: 4.0
//	  thetaScale: 0.001
//	  tauShape: 1.0
//	  tauScale: 0.01
//	  thetaParameters: "012"
//	loci:
//	  - taxon: lake1
//	    locus: mt
//	    ploidy_factor: 0.25
//	    mutation_rate_factor: 1.0
//	    num_genes_deme0: 10
//	    num_genes_deme1: 8
//	    ti_tv_rate_ratio: 8.5
//	    num_sites: 1000
//	    freq_a: 0.25
//	    freq_c: 0.25
//	    freq_g: 0.25
//
// Unknown keys are rejected. All problems of a file are reported
// together in one *model.ValidationError.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/gerenuk/gerenuk/dist"
	"github.com/gerenuk/gerenuk/model"
	"github.com/gerenuk/gerenuk/table"
)

// Spectrum type names.
const (
	Folded   = "folded"
	Unfolded = "unfolded"
)

// File is the content of a model file.
type File struct {
	Name                  string        `yaml:"name"`
	OutputPrefix          string        `yaml:"output_prefix"`
	WorkingDirectory      string        `yaml:"working_directory"`
	FSC2Path              string        `yaml:"fsc2_path"`
	SiteFrequencySpectrum string        `yaml:"site_frequency_spectrum"`
	SinglePopulationSFS   bool          `yaml:"single_population_sfs"`
	JointPopulationSFS    bool          `yaml:"joint_population_sfs"`
	StatLabelPrefix       string        `yaml:"stat_label_prefix"`
	IncludeModelID        bool          `yaml:"include_model_id"`
	Labels                yaml.MapSlice `yaml:"labels"`
	Params                Params        `yaml:"params"`
	Loci                  []Locus       `yaml:"loci"`
}

// Params holds the prior hyperparameters, named as in msBayes.
type Params struct {
	ConcentrationShape     float64 `yaml:"concentrationShape"`
	ConcentrationScale     float64 `yaml:"concentrationScale"`
	ThetaShape             float64 `yaml:"thetaShape"`
	ThetaScale             float64 `yaml:"thetaScale"`
	AncestralThetaShape    float64 `yaml:"ancestralThetaShape"`
	AncestralThetaScale    float64 `yaml:"ancestralThetaScale"`
	ThetaParameters        string  `yaml:"thetaParameters"`
	TauShape               float64 `yaml:"tauShape"`
	TauScale               float64 `yaml:"tauScale"`
	MigrationShape         float64 `yaml:"migrationShape"`
	MigrationScale         float64 `yaml:"migrationScale"`
	TimeInSubsPerSite      int     `yaml:"timeInSubsPerSite"`
	BottleProportionShapeA float64 `yaml:"bottleProportionShapeA"`
	BottleProportionShapeB float64 `yaml:"bottleProportionShapeB"`
	BottleProportionShared int     `yaml:"bottleProportionShared"`
	NumTauClasses          int     `yaml:"numTauClasses"`
}

// Locus is one entry of the loci list.
type Locus struct {
	Taxon              string   `yaml:"taxon"`
	Locus              string   `yaml:"locus"`
	PloidyFactor       *float64 `yaml:"ploidy_factor"`
	MutationRateFactor *float64 `yaml:"mutation_rate_factor"`
	NumGenesDeme0      int      `yaml:"num_genes_deme0"`
	NumGenesDeme1      int      `yaml:"num_genes_deme1"`
	TiTvRateRatio      float64  `yaml:"ti_tv_rate_ratio"`
	NumSites           int      `yaml:"num_sites"`
	FreqA              float64  `yaml:"freq_a"`
	FreqC              float64  `yaml:"freq_c"`
	FreqG              float64  `yaml:"freq_g"`
	Alignment          string   `yaml:"alignment"`
}

// keys maps every accepted key of a section to whether it is required.
type keys map[string]bool

var topKeys = keys{
	"name":                    false,
	"output_prefix":           false,
	"working_directory":       false,
	"fsc2_path":               false,
	"site_frequency_spectrum": false,
	"single_population_sfs":   false,
	"joint_population_sfs":    false,
	"stat_label_prefix":       false,
	"include_model_id":        false,
	"labels":                  false,
	"params":                  true,
	"loci":                    true,
}

var paramKeys = keys{
	"concentrationShape":     false,
	"concentrationScale":     false,
	"thetaShape":             true,
	"thetaScale":             true,
	"ancestralThetaShape":    false,
	"ancestralThetaScale":    false,
	"thetaParameters":        false,
	"tauShape":               true,
	"tauScale":               true,
	"migrationShape":         false,
	"migrationScale":         false,
	"timeInSubsPerSite":      false,
	"bottleProportionShapeA": false,
	"bottleProportionShapeB": false,
	"bottleProportionShared": false,
	"numTauClasses":          false,
}

var locusKeys = keys{
	"taxon":                true,
	"locus":                true,
	"ploidy_factor":        false,
	"mutation_rate_factor": false,
	"num_genes_deme0":      true,
	"num_genes_deme1":      true,
	"ti_tv_rate_ratio":     true,
	"num_sites":            true,
	"freq_a":               true,
	"freq_c":               true,
	"freq_g":               true,
	"alignment":            false,
}

// defaults returns a File with the values used for keys missing from
// the document.
func defaults() File {
	return File{
		Name:                  "gerenuk",
		FSC2Path:              "fsc25",
		SiteFrequencySpectrum: Folded,
		JointPopulationSFS:    true,
		StatLabelPrefix:       "stat",
		Params: Params{
			ThetaParameters:   string(model.DefaultConstraints),
			TimeInSubsPerSite: 1,
		},
	}
}

// ReadFile reads a model file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return f, nil
}

// Read reads a model file from r.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a model file. The key sets of all sections are checked
// before the typed decoding.
func Parse(data []byte) (*File, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	verr := &model.ValidationError{}
	check(doc, verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	f := defaults()
	if err := yaml.Unmarshal(data, &f); err != nil {
		if terr, ok := err.(*yaml.TypeError); ok {
			verr.Invalid = append(verr.Invalid, terr.Errors...)
			return nil, verr
		}
		return nil, err
	}
	f.validate(verr)
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return &f, nil
}

// check compares the keys of the generic document with the known key
// sets.
func check(doc interface{}, verr *model.ValidationError) {
	top, ok := doc.(map[interface{}]interface{})
	if !ok {
		verr.Invalidf("document: expected a mapping")
		return
	}
	checkSection(top, "", topKeys, verr)

	if params, ok := top["params"]; ok {
		if m, ok := params.(map[interface{}]interface{}); ok {
			checkSection(m, "params.", paramKeys, verr)
		} else {
			verr.Invalidf("params: expected a mapping")
		}
	}
	if labels, ok := top["labels"]; ok && labels != nil {
		if _, ok := labels.(map[interface{}]interface{}); !ok {
			verr.Invalidf("labels: expected a mapping")
		}
	}
	if loci, ok := top["loci"]; ok {
		list, ok := loci.([]interface{})
		if !ok {
			verr.Invalidf("loci: expected a list")
			return
		}
		for i, item := range list {
			if m, ok := item.(map[interface{}]interface{}); ok {
				checkSection(m, fmt.Sprintf("loci[%d].", i), locusKeys, verr)
			} else {
				verr.Invalidf("loci[%d]: expected a mapping", i)
			}
		}
	}
}

func checkSection(m map[interface{}]interface{}, prefix string, known keys, verr *model.ValidationError) {
	var unknown []string
	for k := range m {
		name := fmt.Sprint(k)
		if _, ok := known[name]; !ok {
			unknown = append(unknown, prefix+name)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		verr.Unknownf("%s", k)
	}

	var missing []string
	for k, required := range known {
		if _, ok := m[k]; required && !ok {
			missing = append(missing, prefix+k)
		}
	}
	sort.Strings(missing)
	for _, k := range missing {
		verr.Missingf("%s", k)
	}
}

// validate checks the run settings. The model itself is validated by
// model.New.
func (f *File) validate(verr *model.ValidationError) {
	switch f.SiteFrequencySpectrum {
	case Folded, Unfolded:
	default:
		verr.Invalidf("site_frequency_spectrum %q: expected %q or %q", f.SiteFrequencySpectrum, Folded, Unfolded)
	}
	if !f.SinglePopulationSFS && !f.JointPopulationSFS {
		verr.Invalidf("single_population_sfs and joint_population_sfs: at least one spectrum is required")
	}
	if f.StatLabelPrefix == "" {
		verr.Invalidf("stat_label_prefix: must not be empty")
	}
	if f.Params.BottleProportionShared != 0 && f.Params.BottleProportionShared != 1 {
		verr.Invalidf("params.bottleProportionShared %d: expected 0 or 1", f.Params.BottleProportionShared)
	}
}

// Model builds the simulation model described by the file.
func (f *File) Model() (*model.Model, error) {
	p := f.Params
	params := model.Params{
		Concentration:     dist.Gamma{Shape: p.ConcentrationShape, Scale: p.ConcentrationScale},
		Theta:             dist.Gamma{Shape: p.ThetaShape, Scale: p.ThetaScale},
		AncestralTheta:    dist.Gamma{Shape: p.AncestralThetaShape, Scale: p.AncestralThetaScale},
		Tau:               dist.Gamma{Shape: p.TauShape, Scale: p.TauScale},
		Migration:         dist.Gamma{Shape: p.MigrationShape, Scale: p.MigrationScale},
		ThetaConstraints:  model.Constraints(p.ThetaParameters),
		TimeInSubsPerSite: p.TimeInSubsPerSite != 0,
		BottleneckShapes:  [2]float64{p.BottleProportionShapeA, p.BottleProportionShapeB},
		BottleneckShared:  p.BottleProportionShared == 1,
		NumTauClasses:     p.NumTauClasses,
	}
	loci := make([]model.LocusDefinition, len(f.Loci))
	for i, l := range f.Loci {
		loci[i] = model.LocusDefinition{
			Taxon:              l.Taxon,
			Label:              l.Locus,
			PloidyFactor:       orOne(l.PloidyFactor),
			MutationRateFactor: orOne(l.MutationRateFactor),
			SampleSizes:        [2]int{l.NumGenesDeme0, l.NumGenesDeme1},
			TiTvRatio:          l.TiTvRateRatio,
			Sites:              l.NumSites,
			FreqA:              l.FreqA,
			FreqC:              l.FreqC,
			FreqG:              l.FreqG,
			Alignment:          l.Alignment,
		}
	}
	return model.New(params, loci)
}

// orOne returns the scaling factor, or one if it is not set.
func orOne(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}

// SupplementalLabels returns the labels in file order.
func (f *File) SupplementalLabels() []table.Field {
	fields := make([]table.Field, 0, len(f.Labels))
	for _, item := range f.Labels {
		v := ""
		if item.Value != nil {
			v = fmt.Sprint(item.Value)
		}
		fields = append(fields, table.Field{Name: fmt.Sprint(item.Key), Value: v})
	}
	return fields
}
