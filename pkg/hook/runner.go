package hook

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyScript = errors.New("script is empty")
)

// Runner executes prerotate, postrotate, firstaction and lastaction scripts.
// Every script is written into its own file under a uniquely named directory
// and run by the configured shell with the log path as its only argument.
type Runner struct {
	logger logrus.FieldLogger

	shell    string
	base     string
	simulate bool
}

func New(logger logrus.FieldLogger, shell, base string, simulate bool) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}

	if base == "" {
		base = os.TempDir()
	}

	return &Runner{
		logger:   logger,
		shell:    shell,
		base:     base,
		simulate: simulate,
	}
}

func (r *Runner) Run(ctx context.Context, script []string, logPath string) error {
	if len(script) == 0 {
		return ErrEmptyScript
	}

	logger := r.logger.WithField("log_path", logPath)

	if r.simulate {
		logger.WithField("script", strings.Join(script, "\n")).Info("Simulation, script is not executed")
		return nil
	}

	dir, err := r.allocate()
	if err != nil {
		return errors.Wrap(err, "unable to allocate script directory")
	}
	defer func() {
		if err := r.deallocate(dir); err != nil {
			logger.WithError(err).Warn("Unable to remove script directory")
		}
	}()

	path := filepath.Join(dir, "script.sh")

	err = os.WriteFile(path, []byte(strings.Join(script, "\n")+"\n"), 0700)
	if err != nil {
		return errors.Wrap(err, "unable to write script")
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := exec.CommandContext(ctx, r.shell, path, logPath)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("Executing script")

	err = cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.WithField("stdout", out).Info("Script output")
	}

	if err != nil {
		return errors.Wrapf(err, "script failed: %s", strings.TrimSpace(stderr.String()))
	}

	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		return errors.Errorf("script wrote to stderr: %s", errOut)
	}

	return nil
}

func (r *Runner) allocate() (string, error) {
	dir := filepath.Join(r.base, "logrotate-"+uuid.NewString())

	err := os.Mkdir(dir, 0700)
	if err != nil {
		return "", err
	}

	return dir, nil
}

func (r *Runner) deallocate(dir string) error {
	return os.RemoveAll(dir)
}
