package pythoninfer

import (
	"io"
	"io/ioutil"

	"github.com/kiteco/typeinfer/kite-golib/errors"
	yaml "gopkg.in/yaml.v2"
)

// Mode selects which functions are simulated
type Mode int

const (
	// Deep simulates every function and method, using unknowns for the
	// parameters of those that are never called
	Deep Mode = iota
	// Shallow simulates only what is reached from the module's top level
	Shallow
)

func (m Mode) String() string {
	if m == Shallow {
		return "shallow"
	}
	return "deep"
}

// UnmarshalYAML implements yaml.Unmarshaler
func (m *Mode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "deep":
		*m = Deep
	case "shallow":
		*m = Shallow
	default:
		return errors.Errorf("unknown mode %q", s)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// Options configures an inference run
type Options struct {
	Mode Mode `yaml:"mode"`
	// SolveUnknowns replaces unknowns by the types that satisfy their constraints;
	// otherwise unknowns are reported as they are
	SolveUnknowns bool `yaml:"solve_unknowns"`
	// MaxCombinations caps the argument combinations explored per call site
	MaxCombinations int `yaml:"max_combinations"`
	// MaxLoopIterations caps how often a loop header or a recursive call is
	// re-evaluated before its values are widened
	MaxLoopIterations int `yaml:"max_loop_iterations"`
	// MaxCallDepth caps the nesting of simulated calls
	MaxCallDepth int `yaml:"max_call_depth"`
	// Verbose logs the duration of each phase
	Verbose bool `yaml:"verbose"`
}

// DefaultOptions are the options used by the command line tool
var DefaultOptions = Options{
	Mode:              Deep,
	SolveUnknowns:     true,
	MaxCombinations:   64,
	MaxLoopIterations: 10,
	MaxCallDepth:      24,
}

// LoadOptions reads options from YAML, starting from DefaultOptions
func LoadOptions(r io.Reader) (Options, error) {
	opts := DefaultOptions
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return opts, err
	}
	if err := yaml.UnmarshalStrict(buf, &opts); err != nil {
		return opts, errors.Wrapf(err, "parsing options")
	}
	return opts, opts.validate()
}

func (o Options) validate() error {
	switch {
	case o.MaxCombinations < 1:
		return errors.Errorf("max_combinations must be positive, got %d", o.MaxCombinations)
	case o.MaxLoopIterations < 1:
		return errors.Errorf("max_loop_iterations must be positive, got %d", o.MaxLoopIterations)
	case o.MaxCallDepth < 1:
		return errors.Errorf("max_call_depth must be positive, got %d", o.MaxCallDepth)
	}
	return nil
}
