// Package telemetry emits the start, stop and exception events that bound
// every action execution, and records the matching OpenTelemetry span.
//
// Telemetry.Span runs a function between a start and a stop event. Events
// fan out through a Dispatcher to attached Handlers: structured logging,
// Prometheus collectors, OpenTelemetry metrics, or the SQLite audit sink in
// the audit sub-package.
//
//	d := telemetry.NewDispatcher()
//	_ = d.Attach("log", []string{"goaction"}, telemetry.NewLogHandler(slog.Default()))
//	t := telemetry.New(telemetry.WithDispatcher(d))
package telemetry
