// Package goaction runs named actions as ordered pipelines of steps.
//
// goaction lets application code declare actions once, at startup, and run
// them many times with different params. Each run threads an immutable
// Context through the steps; a step either continues with a new context or
// halts with a result.
//
// Core components include:
//   - Context: action name, assigns, params, private bookkeeping and result
//   - Steps: functions returning Continue or Halt, registered locally or on a Provider
//   - Builder: collects steps and actions and builds an immutable ActionSet
//   - Telemetry: every run is a span with start and stop events and merged metadata
//   - CastParams: the built-in step casting, defaulting and validating params
//
// A step that panics never reaches the caller: Run reports it as a
// step_exception failure.
package goaction
