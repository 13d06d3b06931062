package domainfx

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewCron),
	fx.Provide(FileSystem),
	fx.Provide(HookRunnerConfigProvider),
	fx.Provide(HookRunner),
	fx.Provide(Mailer),
	fx.Provide(Parser),
	fx.Provide(Validator),
	fx.Provide(RotationService),
	fx.Provide(RotationManager),
	fx.Provide(Scheduler),
	fx.Provide(RotationRunner),
)
