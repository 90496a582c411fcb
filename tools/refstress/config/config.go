package config

import (
	"bytes"
	"os"

	"github.com/xichen2020/sharedref/refcnt"
	"github.com/xichen2020/sharedref/tools/refstress/stress"
	"github.com/xichen2020/sharedref/x/instrument"

	"github.com/pkg/errors"
	validator "gopkg.in/validator.v2"
	"gopkg.in/yaml.v3"
)

var (
	errNoScenarios = errors.New("no scenarios configured")
)

// Configuration holds all refstress config options.
type Configuration struct {
	Logging instrument.LoggingConfiguration `yaml:"logging"`
	Metrics instrument.MetricsConfiguration `yaml:"metrics"`
	Refcnt  refcnt.Configuration            `yaml:"refcnt"`
	Stress  StressConfiguration             `yaml:"stress"`
}

// StressConfiguration configures the stress scenarios. Zero counts keep the
// defaults.
type StressConfiguration struct {
	Scenarios  []stress.Scenario `yaml:"scenarios"`
	NumWorkers int               `yaml:"numWorkers" validate:"min=0"`
	NumIters   int               `yaml:"numIters" validate:"min=0"`
	NumRounds  int               `yaml:"numRounds" validate:"min=0"`
}

// NewOptions creates a new set of stress options from the configuration.
func (c *StressConfiguration) NewOptions(
	refcntOpts *refcnt.Options,
	instrumentOpts *instrument.Options,
) (*stress.Options, error) {
	if len(c.Scenarios) == 0 {
		return nil, errNoScenarios
	}
	opts := stress.NewOptions().
		SetRefcntOptions(refcntOpts).
		SetInstrumentOptions(instrumentOpts)
	if c.NumWorkers > 0 {
		opts = opts.SetNumWorkers(c.NumWorkers)
	}
	if c.NumIters > 0 {
		opts = opts.SetNumIters(c.NumIters)
	}
	if c.NumRounds > 0 {
		opts = opts.SetNumRounds(c.NumRounds)
	}
	return opts, nil
}

// LoadFile loads the configuration from a yaml file. Unknown fields are
// rejected.
func LoadFile(cfg *Configuration, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	return Load(cfg, data)
}

// Load loads the configuration from yaml data and validates it.
func Load(cfg *Configuration, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrap(err, "decoding config")
	}
	if err := validator.Validate(cfg); err != nil {
		return errors.Wrap(err, "validating config")
	}
	return nil
}
