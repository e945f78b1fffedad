package errorlog

import "go.uber.org/fx"

// Module provides the warehouse-backed sink as the errorlog.Sink interface.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewWarehouseSink,
		fx.As(new(Sink)),
	)),
)
