package metrics

import "go.uber.org/fx"

// Module provides the Prometheus recorder and the OpenTelemetry tracer
// bound to their interfaces.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewPrometheusRecorder,
		fx.As(new(Recorder)),
	)),
	fx.Provide(fx.Annotate(
		NewOtelTracer,
		fx.As(new(Tracer)),
	)),
)
