package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/yurykabanov/logrotate/internal/configfx"
	"github.com/yurykabanov/logrotate/internal/domainfx"
	"github.com/yurykabanov/logrotate/internal/loggerfx"
	"github.com/yurykabanov/logrotate/internal/statusfx"
)

func main() {
	logger := loggerfx.Logger()

	flagSet, err := configfx.PFlags()
	if err != nil {
		logger.WithError(err).Fatal("Unable to parse command line")
	}

	if configfx.UsageRequested(flagSet) {
		configfx.PrintUsage(os.Stdout, flagSet)
		return
	}

	var runner *domainfx.Runner

	app := fx.New(
		fx.StartTimeout(15*time.Second),
		fx.StopTimeout(15*time.Second),

		fx.Logger(logger),

		fx.Supply(flagSet),

		loggerfx.Module,
		configfx.Module,
		statusfx.Module,
		domainfx.Module,

		fx.Populate(&runner),
	)

	if err := app.Err(); err != nil {
		logger.WithError(err).Fatal("Unable to initialize application")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, app.StartTimeout())
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		logger.WithError(err).Fatal("Unable to start application")
	}

	runErr := runner.Run(ctx)
	if runErr != nil {
		logger.WithError(runErr).Error("Rotation failed")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Unable to stop application")
	}

	if runErr != nil {
		os.Exit(1)
	}
}
