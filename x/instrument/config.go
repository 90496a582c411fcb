package instrument

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultReportingInterval = time.Second
)

// LoggingConfiguration configures the logger.
type LoggingConfiguration struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Encoding is either json or console. Defaults to json.
	Encoding string `yaml:"encoding"`

	// Fields are attached to every log entry.
	Fields map[string]interface{} `yaml:"fields"`
}

// BuildLogger builds a logger from the configuration.
func (c LoggingConfiguration) BuildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", c.Level)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	if c.Encoding != "" {
		cfg.Encoding = c.Encoding
	}
	cfg.InitialFields = c.Fields
	cfg.Sampling = nil
	return cfg.Build()
}

// MetricsConfiguration configures the root metrics scope.
type MetricsConfiguration struct {
	// Prefix is prepended to every metric name.
	Prefix string `yaml:"prefix"`

	// Tags are attached to every metric.
	Tags map[string]string `yaml:"tags"`

	// ReportingInterval is how often metrics are flushed to the reporter.
	ReportingInterval *time.Duration `yaml:"reportingInterval"`
}

// NewRootScope creates a new root scope reporting to the given reporter. A nil
// reporter yields a scope whose values are only kept in memory.
func (c MetricsConfiguration) NewRootScope(r tally.StatsReporter) (tally.Scope, io.Closer) {
	interval := defaultReportingInterval
	if c.ReportingInterval != nil {
		interval = *c.ReportingInterval
	}
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:   c.Prefix,
		Tags:     c.Tags,
		Reporter: r,
	}, interval)
}
