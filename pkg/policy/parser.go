package policy

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/pkg/storage"
	"github.com/yurykabanov/logrotate/pkg/util"
)

var (
	ErrIncludeNotFound = errors.New("include target is neither a file nor a directory")
)

type configFS interface {
	ReadLines(path string) ([]string, error)
	List(dir string) ([]storage.FileInfo, error)
	FileExists(path string) bool
	DirExists(path string) bool
}

// Parser builds a Config out of configuration files and directories.
type Parser struct {
	logger logrus.FieldLogger
	fs     configFS
}

func NewParser(logger logrus.FieldLogger, fs configFS) *Parser {
	return &Parser{
		logger: logger,
		fs:     fs,
	}
}

// Parse processes sources in order, then resolves the global include
// directive if one was given. Only an unreadable source or an include target
// that doesn't exist is an error, bad directives are logged and skipped.
func (p *Parser) Parse(sources []string) (*Config, error) {
	cfg := NewConfig()

	for _, source := range sources {
		if err := p.parseSource(cfg, source); err != nil {
			return nil, err
		}
	}

	if cfg.Global.Include != "" {
		if err := p.parseInclude(cfg, cfg.Global.Include); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (p *Parser) parseSource(cfg *Config, source string) error {
	if !p.fs.DirExists(source) {
		return p.parseFile(cfg, source)
	}

	entries, err := p.fs.List(source)
	if err != nil {
		return errors.Wrapf(err, "unable to list config directory %s", source)
	}

	for _, entry := range entries {
		if entry.IsDir {
			continue
		}

		if err := p.parseFile(cfg, filepath.Join(source, entry.Name)); err != nil {
			return err
		}
	}

	return nil
}

func (p *Parser) parseInclude(cfg *Config, include string) error {
	logger := p.logger.WithField("include", include)

	if p.fs.DirExists(include) {
		entries, err := p.fs.List(include)
		if err != nil {
			return errors.Wrapf(err, "unable to list include directory %s", include)
		}

		var names []string
		for _, entry := range entries {
			if !entry.IsDir {
				names = append(names, entry.Name)
			}
		}

		util.SortStrings(names, util.CaseInsensitiveDesc)

		for _, name := range names {
			if cfg.Global.IsTaboo(filepath.Ext(name)) {
				logger.WithField("file", name).Info("Skipping included file, extension is in the taboo list")
				continue
			}

			logger.WithField("file", name).Info("Processing included file")

			if err := p.parseFile(cfg, filepath.Join(include, name)); err != nil {
				return err
			}
		}

		return nil
	}

	if p.fs.FileExists(include) {
		logger.Info("Processing included file")
		return p.parseFile(cfg, include)
	}

	return errors.Wrap(ErrIncludeNotFound, include)
}

func (p *Parser) parseFile(cfg *Config, path string) error {
	logger := p.logger.WithField("config_file", path)
	logger.Info("Parsing config file")

	lines, err := p.fs.ReadLines(path)
	if err != nil {
		return errors.Wrapf(err, "unable to read config file %s", path)
	}

	global := NewInterpreter(cfg.Global)

	var section *Interpreter
	sawSection := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineLogger := logger.WithField("line", i+1)

		if line == "" || line[0] == '#' {
			continue
		}

		switch {
		case section != nil && !section.InScript() && strings.Contains(line, "}"):
			section = nil

		case section != nil:
			p.apply(lineLogger, section, line)

		case global.InScript():
			p.apply(lineLogger, global, line)

		case strings.Contains(line, "{"):
			sawSection = true
			section = NewInterpreter(&p.openSection(lineLogger, cfg, line).Policy)

		case sawSection:
			lineLogger.WithField("directive", line).Error("Global options must be placed above all sections, ignoring")

		default:
			p.apply(lineLogger, global, line)
		}
	}

	if section != nil {
		logger.Warn("Config file ended inside a section")
	}

	return nil
}

func (p *Parser) apply(logger logrus.FieldLogger, in *Interpreter, line string) {
	if err := in.Apply(line); err != nil {
		logger.WithError(err).Error("Unable to apply directive")
	}
}

// openSection creates the section for a header line such as
// `/var/log/a.log "/var/log/with space.log" {` and registers it once per pattern.
func (p *Parser) openSection(logger logrus.FieldLogger, cfg *Config, line string) *Section {
	section := NewSection(cfg.Global)

	header := line[:strings.Index(line, "{")]

	patterns := splitHeader(header)
	if len(patterns) == 0 {
		logger.Error("Section has no file patterns")
	}

	for _, pattern := range patterns {
		cfg.register(pattern, section)
	}

	return section
}

func splitHeader(header string) []string {
	var (
		result  []string
		current strings.Builder
		quoted  bool
	)

	flush := func() {
		if token := stripInvalidPathChars(current.String()); token != "" {
			result = append(result, token)
		}
		current.Reset()
	}

	for _, r := range header {
		switch {
		case r == '"':
			quoted = !quoted
		case (r == ' ' || r == '\t') && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}

	flush()

	return result
}

func stripInvalidPathChars(token string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 32, r == '"', r == '<', r == '>', r == '|':
			return -1
		}

		return r
	}, token)
}
