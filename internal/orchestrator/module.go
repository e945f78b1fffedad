package orchestrator

import "go.uber.org/fx"

// Module provides the run orchestrator. Start and Stop are hooked into the
// Fx lifecycle by the application module.
var Module = fx.Options(
	fx.Provide(NewOrchestrator),
)
