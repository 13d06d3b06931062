package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/pkg/appcontext"
	"github.com/yurykabanov/logrotate/pkg/mail"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/storage"
)

var (
	ErrDestinationExists = errors.New("rotated copy already exists")
)

type HookRunner interface {
	Run(ctx context.Context, script []string, logPath string) error
}

type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// RotationService performs the rotation of a single log file: it ages the
// previously rotated copies, moves or copies the active file aside and
// compresses, mails and records the result.
type RotationService struct {
	logger logrus.FieldLogger

	fs     storage.FileSystem
	status StatusRepository
	hooks  HookRunner
	mailer Mailer

	simulate bool
	now      func() time.Time
}

func NewRotationService(
	logger logrus.FieldLogger,
	fs storage.FileSystem,
	status StatusRepository,
	hooks HookRunner,
	mailer Mailer,
	simulate bool,
	now func() time.Time,
) *RotationService {
	if now == nil {
		now = time.Now
	}

	return &RotationService{
		logger:   logger,
		fs:       fs,
		status:   status,
		hooks:    hooks,
		mailer:   mailer,
		simulate: simulate,
		now:      now,
	}
}

func (s *RotationService) Rotate(ctx context.Context, path string, section *policy.Section) error {
	ctx = appcontext.WithLogPath(ctx, path)
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	p := &section.Policy
	now := s.now()

	if script, ok := section.TakeSharedPreRotate(); ok {
		s.runScript(ctx, "prerotate", script, path)
	} else if !p.SharedScripts && len(p.PreRotate) > 0 {
		s.runScript(ctx, "prerotate", p.PreRotate, path)
	}

	dir, err := s.rotationDir(logger, p, path)
	if err != nil {
		return err
	}

	err = s.age(ctx, p, path, dir, now)
	if err != nil {
		return errors.Wrap(err, "unable to age rotated copies")
	}

	target := filepath.Join(dir, rotatedName(p, filepath.Base(path), now))

	if !s.fs.FileExists(path) {
		logger.Warn("Log file disappeared before it could be rotated, skipping")
		return nil
	}

	err = s.checkDestination(p, target)
	if err != nil {
		return err
	}

	err = s.transform(logger, p, path, target, now)
	if err != nil {
		return err
	}

	if p.Compress && !p.DelayCompress {
		target, err = s.compress(logger, p, target)
		if err != nil {
			return err
		}
	}

	if p.Mail.Enabled() && !p.Mail.MailLast {
		s.mail(ctx, p, path, target)
	}

	section.MarkRotated()

	if s.simulate {
		logger.Debug("Simulation, status is not updated")
	} else {
		err = s.status.Set(ctx, path, now)
		if err != nil {
			return errors.Wrap(err, "unable to save rotation status")
		}
	}

	if !p.SharedScripts && len(p.PostRotate) > 0 {
		s.runScript(ctx, "postrotate", p.PostRotate, path)
	}

	logger.WithField("target", target).Info("Log file rotated")

	return nil
}

// rotationDir returns the directory rotated copies live in, creating olddir
// when it does not exist yet.
func (s *RotationService) rotationDir(logger logrus.FieldLogger, p *policy.Policy, path string) (string, error) {
	dir := filepath.Dir(path)
	if p.OldDir == "" {
		return dir, nil
	}

	oldDir := p.OldDir
	if !filepath.IsAbs(oldDir) {
		oldDir = filepath.Join(dir, oldDir)
	}

	if s.fs.DirExists(oldDir) {
		return oldDir, nil
	}

	err := s.do(logger.WithField("olddir", oldDir), "Creating olddir", func() error {
		return s.fs.MkdirAll(oldDir)
	})
	if err != nil {
		return "", errors.Wrapf(err, "unable to create olddir %s", oldDir)
	}

	return oldDir, nil
}

// checkDestination refuses to rotate onto an existing copy, e.g. a second
// dateext rotation on the same day. Aging is only simulated in debug mode so
// the check would fire on every numbered copy there.
func (s *RotationService) checkDestination(p *policy.Policy, target string) error {
	if s.simulate {
		return nil
	}

	if s.fs.FileExists(target) {
		return errors.Wrapf(ErrDestinationExists, "destination %s, skipping rotation", target)
	}

	if p.Compress && !p.DelayCompress {
		compressed := target + "." + p.CompressExt
		if !strings.HasSuffix(target, "."+p.CompressExt) && s.fs.FileExists(compressed) {
			return errors.Wrapf(ErrDestinationExists, "destination %s, skipping rotation", compressed)
		}
	}

	return nil
}

func (s *RotationService) transform(logger logrus.FieldLogger, p *policy.Policy, path, target string, now time.Time) error {
	logger = logger.WithField("target", target)

	if p.Copy || p.CopyTruncate {
		err := s.do(logger, "Copying log file", func() error {
			return s.fs.Copy(path, target)
		})
		if err != nil {
			return errors.Wrap(err, "unable to copy log file")
		}

		err = s.do(logger, "Updating modification time of the copy", func() error {
			return s.fs.Touch(target, now)
		})
		if err != nil {
			return errors.Wrap(err, "unable to touch rotated copy")
		}

		if p.CopyTruncate {
			err = s.do(logger, "Truncating log file", func() error {
				return s.fs.Truncate(path)
			})
			if err != nil {
				return errors.Wrap(err, "unable to truncate log file")
			}
		}

		return nil
	}

	err := s.do(logger, "Renaming log file", func() error {
		return s.fs.Move(path, target)
	})
	if err != nil {
		return errors.Wrap(err, "unable to rename log file")
	}

	if p.Create {
		err = s.do(logger, "Creating new log file", func() error {
			return s.fs.Create(path)
		})
		if err != nil {
			return errors.Wrap(err, "unable to create new log file")
		}
	}

	return nil
}

// compress replaces path by its compressed version and returns the new name.
// Files already carrying the compression extension are left alone.
func (s *RotationService) compress(logger logrus.FieldLogger, p *policy.Policy, path string) (string, error) {
	ext := "." + p.CompressExt
	if strings.HasSuffix(path, ext) {
		return path, nil
	}

	target := path + ext

	err := s.do(logger.WithField("target", target), "Compressing", func() error {
		return s.fs.Compress(path, target)
	})
	if err != nil {
		return path, errors.Wrapf(err, "unable to compress %s", path)
	}

	err = s.remove(logger, p, path)
	if err != nil {
		return target, err
	}

	return target, nil
}

func (s *RotationService) remove(logger logrus.FieldLogger, p *policy.Policy, path string) error {
	logger = logger.WithField("file", path)

	if p.Shred {
		return errors.Wrapf(s.do(logger, "Shredding", func() error {
			return s.fs.Shred(path, p.ShredCycles)
		}), "unable to shred %s", path)
	}

	return errors.Wrapf(s.do(logger, "Deleting", func() error {
		return s.fs.Remove(path)
	}), "unable to delete %s", path)
}

func (s *RotationService) mail(ctx context.Context, p *policy.Policy, logPath, attachment string) {
	logger := appcontext.LoggerFromContext(s.logger, ctx).WithFields(logrus.Fields{
		"address":    p.Mail.Address,
		"attachment": attachment,
	})

	if s.mailer == nil {
		logger.Warn("No mailer configured, skipping mail")
		return
	}

	if s.simulate {
		logger.Info("Simulation, skipping mail")
		return
	}

	err := s.mailer.Send(ctx, mail.Message{
		Settings:   p.Mail,
		Subject:    fmt.Sprintf("Rotated log file %s", logPath),
		LogPath:    logPath,
		Attachment: attachment,
	})
	if err != nil {
		logger.WithError(err).Error("Unable to send mail")
	}
}

func (s *RotationService) runScript(ctx context.Context, name string, script []string, arg string) {
	runScript(ctx, s.logger, s.hooks, name, script, arg)
}

// do runs fn unless the service is simulating, in which case the action is
// only logged.
func (s *RotationService) do(logger logrus.FieldLogger, action string, fn func() error) error {
	if s.simulate {
		logger.Info(action + " (simulation)")
		return nil
	}

	logger.Debug(action)

	return fn()
}

// rotatedName is the name the active file gets when it is rotated.
func rotatedName(p *policy.Policy, base string, now time.Time) string {
	if p.DateExt {
		return base + formatDate(p.DateFormat, now)
	}

	return base + "." + strconv.Itoa(p.Start)
}

// formatDate expands %Y, %m, %d and %s in a dateformat pattern.
func formatDate(format string, t time.Time) string {
	r := strings.NewReplacer(
		"%Y", fmt.Sprintf("%04d", t.Year()),
		"%m", fmt.Sprintf("%02d", int(t.Month())),
		"%d", fmt.Sprintf("%02d", t.Day()),
		"%s", strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', -1, 64),
	)

	return r.Replace(format)
}

func runScript(ctx context.Context, logger logrus.FieldLogger, hooks HookRunner, name string, script []string, arg string) {
	logger = appcontext.LoggerFromContext(logger, ctx).WithField("script", name)

	if hooks == nil {
		logger.Warn("No hook runner configured, skipping script")
		return
	}

	logger.Debug("Running script")

	err := hooks.Run(ctx, script, arg)
	if err != nil {
		logger.WithError(err).Error("Script failed")
	}
}
