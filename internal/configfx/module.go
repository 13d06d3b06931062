package configfx

import (
	"go.uber.org/fx"
)

// Module expects the parsed *pflag.FlagSet to be supplied, see PFlags.
var Module = fx.Options(
	fx.Provide(ViperProvider),
	fx.Provide(OptionsProvider),
)
