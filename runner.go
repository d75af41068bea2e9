package goaction

import "fmt"

// StepRunner invokes one resolved step.
type StepRunner func(ctx Context, step *ResolvedStep) Signal

// StepMiddleware wraps step invocation. Middleware can inspect or replace
// the context going in and the signal coming out, or skip the step by not
// calling next.
type StepMiddleware func(next StepRunner) StepRunner

func invokeStep(ctx Context, step *ResolvedStep) Signal {
	return step.Call(ctx)
}

// chain builds the invocation chain. Middleware is applied in reverse order
// so the first registered runs outermost.
func chain(middleware []StepMiddleware) StepRunner {
	var runner StepRunner = invokeStep
	for i := len(middleware) - 1; i >= 0; i-- {
		runner = middleware[i](runner)
	}
	return runner
}

// contractViolation is raised when a step returns neither continue nor halt.
type contractViolation struct {
	step StepRef
}

func (v contractViolation) String() string {
	return fmt.Sprintf("step %s returned an invalid signal", v.step)
}

// runPipeline folds the steps of a over ctx. The first halt stops the fold
// and its result is set on the context the halting step received.
func (s *ActionSet) runPipeline(ctx Context, a *action) Context {
	for i, step := range a.steps {
		s.logger.Debug("Executing step %d/%d of %s: %s", i+1, len(a.steps), a.name, step.Ref())

		sig := s.runner(ctx, step)
		switch sig.kind {
		case signalContinue:
			next := sig.ctx
			next.action = ctx.action
			if next.goctx == nil {
				next.goctx = ctx.goctx
			}
			ctx = next
		case signalHalt:
			s.logger.Debug("Step %s halted %s: %s", step.Ref(), a.name, sig.result)
			return ctx.WithResult(sig.result)
		default:
			panic(contractViolation{step: step.Ref()})
		}
	}
	return ctx
}
