package registry

import "go.uber.org/fx"

// Module provides the shared in-memory job registry.
var Module = fx.Options(
	fx.Provide(NewJobRegistry),
)
