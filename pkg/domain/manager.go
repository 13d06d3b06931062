package domain

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/pkg/appcontext"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/storage"
)

type rotationValidator interface {
	IsDue(ctx context.Context, path string, p *policy.Policy) bool
}

type rotationService interface {
	Rotate(ctx context.Context, path string, section *policy.Section) error
}

type patternFileSystem interface {
	FileExists(path string) bool
	DirExists(path string) bool
	List(dir string) ([]storage.FileInfo, error)
	Glob(pattern string) ([]string, error)
}

// RotationManager drives one pass over a parsed configuration: global
// firstaction, every (pattern, section) entry in declaration order, global
// lastaction.
type RotationManager struct {
	logger logrus.FieldLogger

	fs        patternFileSystem
	validator rotationValidator
	service   rotationService
	hooks     HookRunner
}

func NewRotationManager(
	logger logrus.FieldLogger,
	fs patternFileSystem,
	validator rotationValidator,
	service rotationService,
	hooks HookRunner,
) *RotationManager {
	return &RotationManager{
		logger:    logger,
		fs:        fs,
		validator: validator,
		service:   service,
		hooks:     hooks,
	}
}

// Run processes cfg. Failures of single files are logged and never stop the
// pass. A config can only be run once since sections track their progress.
func (m *RotationManager) Run(ctx context.Context, cfg *policy.Config) {
	logger := appcontext.LoggerFromContext(m.logger, ctx)

	logger.WithField("entries", len(cfg.Entries)).Debug("Starting rotation pass")

	if len(cfg.Global.FirstAction) > 0 {
		runScript(ctx, m.logger, m.hooks, "firstaction", cfg.Global.FirstAction, "")
	}

	for _, entry := range cfg.Entries {
		m.processEntry(appcontext.WithPattern(ctx, entry.Pattern), entry)
	}

	if len(cfg.Global.LastAction) > 0 {
		runScript(ctx, m.logger, m.hooks, "lastaction", cfg.Global.LastAction, "")
	}

	logger.Debug("Rotation pass finished")
}

func (m *RotationManager) processEntry(ctx context.Context, entry policy.Entry) {
	logger := appcontext.LoggerFromContext(m.logger, ctx)
	section := entry.Section

	last := section.Release()

	var due []string

	for _, file := range m.expand(logger, entry.Pattern) {
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}

		if m.validator.IsDue(ctx, file, &section.Policy) {
			due = append(due, file)
		}
	}

	for _, file := range due {
		err := m.service.Rotate(ctx, file, section)
		if err != nil {
			appcontext.LoggerFromContext(m.logger, appcontext.WithLogPath(ctx, file)).
				WithError(err).Error("Unable to rotate log file")
		}
	}

	if !last {
		return
	}

	if script, ok := section.TakeSharedPostRotate(); ok {
		runScript(ctx, m.logger, m.hooks, "postrotate", script, entry.Pattern)
	}
}

// expand turns a pattern into file names: an existing file is itself, a
// directory yields its files, a wildcard is globbed. Anything else is kept
// as is so the validator can report it missing.
func (m *RotationManager) expand(logger logrus.FieldLogger, pattern string) []string {
	if m.fs.FileExists(pattern) {
		return []string{pattern}
	}

	if m.fs.DirExists(pattern) {
		entries, err := m.fs.List(pattern)
		if err != nil {
			logger.WithError(err).Error("Unable to list directory")
			return nil
		}

		var files []string
		for _, e := range entries {
			if !e.IsDir {
				files = append(files, filepath.Join(pattern, e.Name))
			}
		}

		return files
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}
	}

	matches, err := m.fs.Glob(pattern)
	if err != nil {
		logger.WithError(err).Error("Invalid pattern")
		return nil
	}

	var files []string
	for _, match := range matches {
		if m.fs.FileExists(match) {
			files = append(files, match)
		}
	}

	if len(files) == 0 {
		logger.Info("No files match the pattern")
	}

	return files
}
