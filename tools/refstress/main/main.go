// This tool races strong and weak handles of managed objects against each
// other and reports whether the lifetime guarantees held.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xichen2020/sharedref/tools/refstress/config"
	"github.com/xichen2020/sharedref/tools/refstress/stress"
	"github.com/xichen2020/sharedref/x/instrument"

	"go.uber.org/zap"
)

var (
	configFile = flag.String("f", "refstress.yaml", "configuration file")
)

func main() {
	// Parse command line args.
	flag.Parse()

	if len(*configFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var cfg config.Configuration
	if err := config.LoadFile(&cfg, *configFile); err != nil {
		fmt.Printf("error loading config file %s: %v\n", *configFile, err)
		os.Exit(1)
	}

	// Create logger and metrics scope.
	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		fmt.Printf("error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	scope, closer := cfg.Metrics.NewRootScope(instrument.NewLogReporter(logger.Named("metrics")))
	iOpts := instrument.NewOptions().
		SetLogger(logger).
		SetMetricsScope(scope)

	refcntOpts := cfg.Refcnt.NewOptions(iOpts)
	stressOpts, err := cfg.Stress.NewOptions(refcntOpts, iOpts.SubScope("stress"))
	if err != nil {
		logger.Fatal("error creating stress options", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		runner = stress.NewRunner(stressOpts)
		failed bool
	)
	for _, scenario := range cfg.Stress.Scenarios {
		logger.Info("running scenario", zap.String("scenario", string(scenario)))
		res, err := runner.Run(ctx, scenario)
		if err != nil {
			logger.Error("scenario failed", zap.String("scenario", string(scenario)), zap.Error(err))
			failed = true
			break
		}
		if !res.Ok() {
			logger.Error("lifetime guarantee broken",
				zap.String("scenario", string(scenario)),
				zap.Any("result", res),
			)
			failed = true
		}
	}

	if err := closer.Close(); err != nil {
		logger.Warn("error closing metrics scope", zap.Error(err))
	}
	if failed {
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("all scenarios passed")
}
