package domain

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/pkg/appcontext"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/storage"
	"github.com/yurykabanov/logrotate/pkg/util"
)

// Rotated copies are aged before the active file is rotated so the new copy
// takes the most recent slot:
//
//	before:  app.log  app.log.0  app.log.1  app.log.2
//	rotate 3
//	after:   app.log  app.log.0  app.log.1  app.log.2
//	                  (new)      (was .0)   (was .1)     (.2 evicted)
//
// With dateext copies are never renamed, the oldest names are evicted instead.
func (s *RotationService) age(ctx context.Context, p *policy.Policy, logPath, dir string, now time.Time) error {
	logger := appcontext.LoggerFromContext(s.logger, ctx).WithField("dir", dir)

	base := filepath.Base(logPath)

	prefix := base + "."
	if p.DateExt {
		prefix = base + dateFormatLead(p.DateFormat)
	}

	if !s.fs.DirExists(dir) {
		return nil
	}

	entries, err := s.fs.List(dir)
	if err != nil {
		return errors.Wrapf(err, "unable to list %s", dir)
	}

	infos := make(map[string]storage.FileInfo)
	var names []string

	for _, e := range entries {
		if e.IsDir || e.Name == base || !strings.HasPrefix(e.Name, prefix) {
			continue
		}

		infos[e.Name] = e
		names = append(names, e.Name)
	}

	if len(names) == 0 {
		return nil
	}

	util.SortStrings(names, util.CaseInsensitiveDesc)

	kept := names[:0]

	for _, name := range names {
		if p.MaxAge > 0 && infos[name].ModTime.Before(now.AddDate(0, 0, -p.MaxAge)) {
			logger.WithField("file", name).Info("Rotated copy is older than maxage")

			err = s.evict(ctx, p, logPath, filepath.Join(dir, name))
			if err != nil {
				return err
			}

			continue
		}

		kept = append(kept, name)
	}

	if p.DateExt {
		// names are sorted newest first, the new copy takes one slot
		first := p.Rotate - 1
		if first < 0 {
			first = 0
		}

		for i := first; i < len(kept); i++ {
			err = s.evict(ctx, p, logPath, filepath.Join(dir, kept[i]))
			if err != nil {
				return err
			}
		}

		return nil
	}

	return s.renumber(ctx, logger, p, logPath, dir, base, kept)
}

type rotatedCopy struct {
	name     string
	segments []string
	pos      int
	index    int
}

func (s *RotationService) renumber(
	ctx context.Context,
	logger logrus.FieldLogger,
	p *policy.Policy,
	logPath, dir, base string,
	names []string,
) error {
	copies := numberedCopies(logger, base, names)
	last := p.Start + p.Rotate - 1

	for _, c := range copies {
		path := filepath.Join(dir, c.name)

		if c.index >= last {
			err := s.evict(ctx, p, logPath, path)
			if err != nil {
				return err
			}

			continue
		}

		segments := append([]string(nil), c.segments...)
		segments[c.pos] = strconv.Itoa(c.index + 1)
		target := filepath.Join(dir, strings.Join(segments, "."))

		compressed := s.isCompressed(path)

		if s.fs.FileExists(target) {
			err := s.remove(logger, p, target)
			if err != nil {
				return err
			}
		}

		err := s.do(logger.WithFields(logrus.Fields{"file": path, "target": target}), "Renaming rotated copy", func() error {
			return s.fs.Move(path, target)
		})
		if err != nil {
			return errors.Wrapf(err, "unable to rename %s", path)
		}

		if p.Compress && !compressed {
			_, err = s.compress(logger, p, target)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// numberedCopies extracts the rotation index of every name and orders them
// highest index first so a rename never overwrites a copy that still has to
// move.
func numberedCopies(logger logrus.FieldLogger, base string, names []string) []rotatedCopy {
	baseSegments := len(strings.Split(base, "."))

	var result []rotatedCopy

	for _, name := range names {
		segments := strings.Split(name, ".")
		pos := -1

		for i := len(segments) - 1; i >= baseSegments; i-- {
			if isDigits(segments[i]) {
				pos = i
				break
			}
		}

		if pos < 0 {
			logger.WithField("file", name).Debug("No rotation index, leaving alone")
			continue
		}

		index, err := strconv.Atoi(segments[pos])
		if err != nil {
			logger.WithField("file", name).Debug("Rotation index out of range, leaving alone")
			continue
		}

		result = append(result, rotatedCopy{name: name, segments: segments, pos: pos, index: index})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].index != result[j].index {
			return result[i].index > result[j].index
		}

		return util.CaseInsensitiveDesc(result[i].name, result[j].name)
	})

	return result
}

func (s *RotationService) isCompressed(path string) bool {
	header, err := s.fs.Header(path, len(storage.GzipMagic))
	if err != nil {
		return false
	}

	return storage.IsGzip(header)
}

// evict mails (maillast) and deletes a rotated copy.
func (s *RotationService) evict(ctx context.Context, p *policy.Policy, logPath, path string) error {
	logger := appcontext.LoggerFromContext(s.logger, ctx)

	if p.Mail.Enabled() && p.Mail.MailLast {
		s.mail(ctx, p, logPath, path)
	}

	logger.WithField("file", path).Info("Removing old rotated copy")

	return s.remove(logger, p, path)
}

// dateFormatLead is the literal text a dateformat starts with, "-" for the
// default "-%Y%m%d".
func dateFormatLead(format string) string {
	if i := strings.Index(format, "%"); i >= 0 {
		return format[:i]
	}

	return format
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
