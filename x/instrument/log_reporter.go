package instrument

import (
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
)

type logReporterCapabilities struct{}

func (logReporterCapabilities) Reporting() bool { return true }
func (logReporterCapabilities) Tagging() bool   { return true }

type logReporter struct {
	logger *zap.Logger
}

// NewLogReporter returns a stats reporter that writes every reported metric to
// the logger at info level. It suits short-lived tools where standing up a
// metrics backend is not worth it.
func NewLogReporter(logger *zap.Logger) tally.StatsReporter {
	return &logReporter{logger: logger}
}

func (r *logReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.logger.Info("counter", zap.String("name", name), zap.Any("tags", tags), zap.Int64("value", value))
}

func (r *logReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.logger.Info("gauge", zap.String("name", name), zap.Any("tags", tags), zap.Float64("value", value))
}

func (r *logReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.logger.Info("timer", zap.String("name", name), zap.Any("tags", tags), zap.Duration("value", interval))
}

func (r *logReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	bucketLowerBound, bucketUpperBound float64,
	samples int64,
) {
	r.logger.Info("histogram",
		zap.String("name", name),
		zap.Any("tags", tags),
		zap.Float64("lower", bucketLowerBound),
		zap.Float64("upper", bucketUpperBound),
		zap.Int64("samples", samples),
	)
}

func (r *logReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration,
	samples int64,
) {
	r.logger.Info("histogram",
		zap.String("name", name),
		zap.Any("tags", tags),
		zap.Duration("lower", bucketLowerBound),
		zap.Duration("upper", bucketUpperBound),
		zap.Int64("samples", samples),
	)
}

func (r *logReporter) Capabilities() tally.Capabilities { return logReporterCapabilities{} }

func (r *logReporter) Flush() { _ = r.logger.Sync() }
