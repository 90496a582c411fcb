// Package stress races strong and weak handles of managed objects against
// each other and checks the lifetime guarantees hold under contention.
package stress

import (
	"context"
	"time"

	"github.com/xichen2020/sharedref/refcnt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scenario is a stress scenario.
type Scenario string

// A list of supported scenarios.
const (
	// AddRefRelease has workers perform paired AddRef/Release calls on one
	// shared object.
	AddRefRelease Scenario = "addref-release"

	// Promotion races the release of the last strong reference against
	// workers promoting weak handles.
	Promotion Scenario = "promotion"
)

var (
	errUnknownScenario = errors.New("unknown scenario")
)

// Result summarizes a scenario run.
type Result struct {
	Scenario          Scenario
	Objects           int64
	Destroyed         int64
	Promotions        int64
	PromotionMisses   int64
	PromotedDead      int64
	RefsMismatch      int64
	PrematureDestroys int64
	MultipleDestroys  int64
	Duration          time.Duration
}

// Ok returns true if no lifetime guarantee was broken.
func (r Result) Ok() bool {
	return r.Destroyed == r.Objects &&
		r.PromotedDead == 0 &&
		r.RefsMismatch == 0 &&
		r.PrematureDestroys == 0 &&
		r.MultipleDestroys == 0
}

type stressObject struct {
	*refcnt.Object

	destroyed atomic.Int32
}

func newStressObject(opts *refcnt.Options) (*stressObject, error) {
	obj := &stressObject{}
	o, err := refcnt.NewObject(func() { obj.destroyed.Inc() }, opts)
	if err != nil {
		return nil, err
	}
	obj.Object = o
	return obj, nil
}

// Runner runs stress scenarios.
type Runner struct {
	opts   *Options
	logger *zap.Logger
}

// NewRunner creates a new runner.
func NewRunner(opts *Options) *Runner {
	if opts == nil {
		opts = NewOptions()
	}
	return &Runner{
		opts:   opts,
		logger: opts.InstrumentOptions().Logger(),
	}
}

// Run runs the given scenario.
func (r *Runner) Run(ctx context.Context, s Scenario) (Result, error) {
	var (
		res   Result
		err   error
		start = time.Now()
	)
	switch s {
	case AddRefRelease:
		res, err = r.runAddRefRelease(ctx)
	case Promotion:
		res, err = r.runPromotion(ctx)
	default:
		return Result{}, errors.Wrapf(errUnknownScenario, "scenario %q", s)
	}
	res.Scenario = s
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	r.logger.Info("scenario finished",
		zap.String("scenario", string(s)),
		zap.Bool("ok", res.Ok()),
		zap.Int64("objects", res.Objects),
		zap.Int64("destroyed", res.Destroyed),
		zap.Int64("promotions", res.Promotions),
		zap.Int64("promotionMisses", res.PromotionMisses),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (r *Runner) runAddRefRelease(ctx context.Context) (Result, error) {
	obj, err := newStressObject(r.opts.RefcntOptions())
	if err != nil {
		return Result{}, err
	}
	s := refcnt.NewShared(obj)
	before := obj.Refs()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.opts.NumWorkers(); i++ {
		g.Go(func() error {
			for j := 0; j < r.opts.NumIters(); j++ {
				if j%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				obj.AddRef()
				obj.Release()
			}
			return nil
		})
	}
	err = g.Wait()

	res := Result{Objects: 1}
	if after := obj.Refs(); after != before {
		r.logger.Error("reference count drifted", zap.Int32("before", before), zap.Int32("after", after))
		res.RefsMismatch++
	}
	if obj.destroyed.Load() != 0 {
		res.PrematureDestroys++
	}
	s.Release()
	res.Destroyed = int64(obj.destroyed.Load())
	if res.Destroyed > 1 {
		res.MultipleDestroys++
	}
	return res, err
}

func (r *Runner) runPromotion(ctx context.Context) (Result, error) {
	var (
		res             Result
		promotions      atomic.Int64
		promotionMisses atomic.Int64
		promotedDead    atomic.Int64
	)
	for round := 0; round < r.opts.NumRounds(); round++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		obj, err := newStressObject(r.opts.RefcntOptions())
		if err != nil {
			return res, err
		}
		res.Objects++
		s := refcnt.NewShared(obj)
		w := refcnt.MakeWeak(obj)

		var g errgroup.Group
		for i := 0; i < r.opts.NumWorkers(); i++ {
			lw := w.Clone()
			g.Go(func() error {
				defer lw.Release()
				for j := 0; j < r.opts.NumIters(); j++ {
					locked, ok := lw.TryLock()
					if !ok {
						promotionMisses.Inc()
						return nil
					}
					promotions.Inc()
					if o := locked.Get(); o.destroyed.Load() != 0 || o.State() != refcnt.Live {
						promotedDead.Inc()
					}
					locked.Release()
				}
				return nil
			})
		}
		g.Go(func() error {
			s.Release()
			return nil
		})
		if err := g.Wait(); err != nil {
			return res, err
		}

		if _, ok := w.TryLock(); ok {
			return res, errors.Errorf("weak handle promoted after destruction in round %d", round)
		}
		w.Release()
		switch n := obj.destroyed.Load(); {
		case n == 1:
			res.Destroyed++
		case n > 1:
			res.MultipleDestroys++
		}
	}
	res.Promotions = promotions.Load()
	res.PromotionMisses = promotionMisses.Load()
	res.PromotedDead = promotedDead.Load()
	return res, nil
}
