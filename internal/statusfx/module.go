package statusfx

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(StatusConfigProvider),
	fx.Provide(OpenStatusStore),
	fx.Provide(StatusRepository),
	fx.Invoke(CloseStatusStore),
)
