package domainfx

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/logrotate/internal/configfx"
	"github.com/yurykabanov/logrotate/pkg/appcontext"
	"github.com/yurykabanov/logrotate/pkg/domain"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/status"
)

type configParser interface {
	Parse(sources []string) (*policy.Config, error)
}

type rotationManager interface {
	Run(ctx context.Context, cfg *policy.Config)
}

type scheduler interface {
	Run(ctx context.Context, spec string, pass domain.Pass) error
}

type statusLister interface {
	All(ctx context.Context) ([]status.Record, error)
}

// Runner is what cmd/logrotate executes once the application has started:
// a status listing, a single rotation pass or scheduled passes.
type Runner struct {
	logger logrus.FieldLogger

	options   *configfx.Options
	parser    configParser
	manager   rotationManager
	scheduler scheduler
	status    statusLister

	out io.Writer
}

func NewRunner(
	logger *logrus.Logger,
	options *configfx.Options,
	parser configParser,
	manager rotationManager,
	scheduler scheduler,
	status statusLister,
) *Runner {
	return &Runner{
		logger:    logger,
		options:   options,
		parser:    parser,
		manager:   manager,
		scheduler: scheduler,
		status:    status,
		out:       os.Stdout,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	if r.options.List {
		return r.list(ctx)
	}

	if r.options.Schedule != "" {
		return r.scheduler.Run(ctx, r.options.Schedule, r.Pass)
	}

	return r.Pass(ctx)
}

// Pass parses the policy files from scratch and rotates whatever is due.
func (r *Runner) Pass(ctx context.Context) error {
	ctx = appcontext.WithPassId(ctx, uuid.NewString())
	logger := appcontext.LoggerFromContext(r.logger, ctx)

	if r.options.Debug {
		logger.Info("Debug mode, nothing will be changed")
	}

	cfg, err := r.parser.Parse(r.options.Configs)
	if err != nil {
		return errors.Wrap(err, "Unable to parse configuration")
	}

	r.manager.Run(ctx, cfg)

	return nil
}

func (r *Runner) list(ctx context.Context) error {
	records, err := r.status.All(ctx)
	if err != nil {
		return errors.Wrap(err, "Unable to read rotation status")
	}

	_, err = fmt.Fprintln(r.out, status.RenderTable(records))

	return err
}
