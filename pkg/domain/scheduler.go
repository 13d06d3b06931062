package domain

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type cron interface {
	AddFunc(spec string, cmd func()) error
	Start()
	Stop()
}

// Pass is one full rotation run: parse the configuration and rotate.
type Pass func(ctx context.Context) error

// Scheduler runs passes on a cron schedule, one at a time. A tick that comes
// while a pass is pending or running is dropped.
type Scheduler struct {
	logger logrus.FieldLogger

	cron   cron
	passes chan time.Time
	busy   atomic.Bool
}

func NewScheduler(logger logrus.FieldLogger, cron cron) *Scheduler {
	return &Scheduler{
		logger: logger,
		cron:   cron,
		passes: make(chan time.Time, 1),
	}
}

func (s *Scheduler) Run(ctx context.Context, spec string, pass Pass) error {
	err := s.cron.AddFunc(spec, s.dispatch)
	if err != nil {
		return errors.Wrapf(err, "invalid cron spec '%s'", spec)
	}

	s.logger.WithField("spec", spec).Debug("Starting cron")
	s.cron.Start()
	defer s.cron.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Scheduler stopped")
			return nil
		case t := <-s.passes:
			logger := s.logger.WithField("dispatched_at", t)
			logger.Info("Starting scheduled rotation pass")

			err = pass(ctx)
			if err != nil {
				logger.WithError(err).Error("Rotation pass failed")
			}

			s.busy.Store(false)
		}
	}
}

func (s *Scheduler) dispatch() {
	t := time.Now()
	logger := s.logger.WithField("dispatched_at", t)

	if !s.busy.CompareAndSwap(false, true) {
		logger.Warn("Previous rotation pass is still running, skipping")
		return
	}

	s.passes <- t
	logger.Debug("Dispatched rotation pass")
}
