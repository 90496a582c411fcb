package stress

import (
	"context"
	"testing"

	"github.com/xichen2020/sharedref/refcnt"
	"github.com/xichen2020/sharedref/x/instrument"
	"github.com/xichen2020/sharedref/x/pool"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestOptions() (*Options, tally.TestScope) {
	scope := tally.NewTestScope("", nil)
	iOpts := instrument.NewOptions().SetMetricsScope(scope)
	blocks := refcnt.NewControlBlockPool(pool.NewObjectPoolOptions().
		SetSize(8).
		SetInstrumentOptions(iOpts))
	opts := NewOptions().
		SetInstrumentOptions(iOpts).
		SetRefcntOptions(refcnt.NewOptions().SetControlBlockPool(blocks)).
		SetNumWorkers(4).
		SetNumIters(200).
		SetNumRounds(50)
	return opts, scope
}

func TestRunAddRefRelease(t *testing.T) {
	opts, _ := newTestOptions()
	res, err := NewRunner(opts).Run(context.Background(), AddRefRelease)
	require.NoError(t, err)
	require.Equal(t, AddRefRelease, res.Scenario)
	require.True(t, res.Ok())
	require.Equal(t, int64(1), res.Objects)
	require.Equal(t, int64(1), res.Destroyed)
}

func TestRunPromotion(t *testing.T) {
	opts, _ := newTestOptions()
	res, err := NewRunner(opts).Run(context.Background(), Promotion)
	require.NoError(t, err)
	require.True(t, res.Ok())
	require.Equal(t, int64(50), res.Objects)
	require.Equal(t, int64(50), res.Destroyed)
	require.Equal(t, int64(0), res.PromotedDead)
	require.Equal(t, 0, opts.RefcntOptions().ControlBlockPool().Outstanding())
}

func TestRunPromotionCanceled(t *testing.T) {
	opts, _ := newTestOptions()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewRunner(opts).Run(ctx, Promotion)
	require.Equal(t, context.Canceled, err)
	require.Equal(t, int64(0), res.Objects)
}

func TestRunUnknownScenario(t *testing.T) {
	_, err := NewRunner(nil).Run(context.Background(), Scenario("leak"))
	require.Equal(t, errUnknownScenario, errors.Cause(err))
}

func TestResultOk(t *testing.T) {
	require.True(t, Result{Objects: 2, Destroyed: 2}.Ok())
	require.False(t, Result{Objects: 2, Destroyed: 1}.Ok())
	require.False(t, Result{Objects: 1, Destroyed: 1, PromotedDead: 1}.Ok())
	require.False(t, Result{Objects: 1, Destroyed: 1, PrematureDestroys: 1}.Ok())
}
