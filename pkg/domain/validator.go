package domain

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/pkg/appcontext"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/storage"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

type StatusRepository interface {
	Get(ctx context.Context, path string) (time.Time, error)
	Set(ctx context.Context, path string, t time.Time) error
}

type fileStater interface {
	FileExists(path string) bool
	Stat(path string) (storage.FileInfo, error)
}

// Validator decides whether a log file is due for rotation. It never changes
// anything.
type Validator struct {
	logger logrus.FieldLogger

	fs     fileStater
	status StatusRepository

	force bool
	now   func() time.Time
}

func NewValidator(
	logger logrus.FieldLogger,
	fs fileStater,
	status StatusRepository,
	force bool,
	now func() time.Time,
) *Validator {
	if now == nil {
		now = time.Now
	}

	return &Validator{
		logger: logger,
		fs:     fs,
		status: status,
		force:  force,
		now:    now,
	}
}

func (v *Validator) IsDue(ctx context.Context, path string, p *policy.Policy) bool {
	logger := appcontext.LoggerFromContext(v.logger, appcontext.WithLogPath(ctx, path))

	if v.force {
		logger.Info("Force option set, rotating")
		return true
	}

	if !v.fs.FileExists(path) {
		if !p.MissingOK {
			logger.Error("Log file could not be found")
		} else {
			logger.Info("Log file is missing, skipping")
		}
		return false
	}

	info, err := v.fs.Stat(path)
	if err != nil {
		logger.WithError(err).Error("Unable to stat log file")
		return false
	}

	logger = logger.WithField("size", humanize.IBytes(uint64(info.Size)))

	if info.Size == 0 && !p.IfEmpty {
		logger.Info("Log file is empty, skipping")
		return false
	}

	if p.MinSize != 0 && info.Size < p.MinSize {
		logger.Info("Log file is smaller than minsize, skipping")
		return false
	}

	if p.Size != 0 {
		due := info.Size >= p.Size
		if due {
			logger.Info("Rotating based on file size")
		}
		return due
	}

	if !p.HasPeriod() {
		logger.Warn("No time or size based rotation directive is set, skipping")
		return false
	}

	last, err := v.status.Get(ctx, path)
	if err != nil {
		logger.WithError(err).Error("Unable to read last rotation time, assuming it was never rotated")
		last = time.Time{}
	}

	now := v.now()

	due := isPeriodDue(p, last.In(now.Location()), now)
	if due {
		logger.WithField("last_rotation", last).Info("Rotating based on time")
	}

	return due
}

func isPeriodDue(p *policy.Policy, last, now time.Time) bool {
	elapsed := now.Sub(last)
	due := false

	if p.Daily && elapsed > day {
		due = true
	}

	if p.Weekly {
		if elapsed > week {
			due = true
		} else if now.Weekday() < last.Weekday() {
			due = true
		}
	}

	if p.Monthly && (last.Year() != now.Year() || last.Month() != now.Month()) {
		due = true
	}

	if p.Yearly && last.Year() != now.Year() {
		due = true
	}

	return due
}
