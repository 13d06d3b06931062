package domainfx

import (
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/yurykabanov/logrotate/internal/configfx"
	"github.com/yurykabanov/logrotate/pkg/domain"
	"github.com/yurykabanov/logrotate/pkg/hook"
	"github.com/yurykabanov/logrotate/pkg/mail"
	"github.com/yurykabanov/logrotate/pkg/policy"
	"github.com/yurykabanov/logrotate/pkg/status"
	"github.com/yurykabanov/logrotate/pkg/storage"
)

func NewCron() *cron.Cron {
	return cron.New()
}

func FileSystem() storage.FileSystem {
	return storage.NewLocal()
}

type HookRunnerConfig struct {
	Shell         string
	TempDirectory string
}

func HookRunnerConfigProvider(v *viper.Viper) *HookRunnerConfig {
	return &HookRunnerConfig{
		Shell:         v.GetString(configfx.ConfigHookShell),
		TempDirectory: v.GetString(configfx.ConfigHookTempDirectory),
	}
}

func HookRunner(logger *logrus.Logger, config *HookRunnerConfig, options *configfx.Options) domain.HookRunner {
	return hook.New(logger, config.Shell, config.TempDirectory, options.Debug)
}

func Mailer(logger *logrus.Logger, fs storage.FileSystem) domain.Mailer {
	return mail.NewSMTPMailer(logger, fs)
}

func Parser(logger *logrus.Logger, fs storage.FileSystem) *policy.Parser {
	return policy.NewParser(logger, fs)
}

func Validator(
	logger *logrus.Logger,
	fs storage.FileSystem,
	repository domain.StatusRepository,
	options *configfx.Options,
) *domain.Validator {
	return domain.NewValidator(logger, fs, repository, options.Force, time.Now)
}

func RotationService(
	logger *logrus.Logger,
	fs storage.FileSystem,
	repository domain.StatusRepository,
	hooks domain.HookRunner,
	mailer domain.Mailer,
	options *configfx.Options,
) *domain.RotationService {
	return domain.NewRotationService(logger, fs, repository, hooks, mailer, options.Debug, time.Now)
}

func RotationManager(
	logger *logrus.Logger,
	fs storage.FileSystem,
	validator *domain.Validator,
	service *domain.RotationService,
	hooks domain.HookRunner,
) *domain.RotationManager {
	return domain.NewRotationManager(logger, fs, validator, service, hooks)
}

func Scheduler(logger *logrus.Logger, cron *cron.Cron) *domain.Scheduler {
	return domain.NewScheduler(logger, cron)
}

func RotationRunner(
	logger *logrus.Logger,
	options *configfx.Options,
	parser *policy.Parser,
	manager *domain.RotationManager,
	scheduler *domain.Scheduler,
	store status.Store,
) *Runner {
	return NewRunner(logger, options, parser, manager, scheduler, store)
}
