package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOptionsSubScope(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	opts := NewOptions().SetMetricsScope(scope)
	sub := opts.SubScope("refcnt")
	sub.MetricsScope().Counter("objects-created").Inc(2)

	counters := scope.Snapshot().Counters()
	c, ok := counters["refcnt.objects-created+"]
	require.True(t, ok)
	require.Equal(t, int64(2), c.Value())

	// The parent options are left untouched.
	require.Equal(t, scope, opts.MetricsScope())
}

func TestLoggingConfigurationBuildLogger(t *testing.T) {
	logger, err := LoggingConfiguration{Level: "debug", Encoding: "console"}.BuildLogger()
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = LoggingConfiguration{}.BuildLogger()
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = LoggingConfiguration{Level: "loud"}.BuildLogger()
	require.Error(t, err)
}

func TestMetricsConfigurationReportsToLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	interval := time.Hour
	cfg := MetricsConfiguration{Prefix: "refstress", ReportingInterval: &interval}
	scope, closer := cfg.NewRootScope(NewLogReporter(zap.New(core)))

	scope.Counter("promotions").Inc(3)
	require.NoError(t, closer.Close())

	var found bool
	for _, entry := range logs.FilterMessage("counter").All() {
		fields := entry.ContextMap()
		if fields["name"] != "refstress.promotions" {
			continue
		}
		found = true
		require.Equal(t, int64(3), fields["value"])
	}
	require.True(t, found)
}
