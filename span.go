package goaction

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/davidroman0O/goaction/telemetry"
)

const maxExceptionMessage = 512

// execute runs a inside a telemetry span. Pre-metadata is computed from ctx,
// post-metadata from the final context. A panic anywhere in the pipeline
// becomes a step_exception result.
func (s *ActionSet) execute(ctx Context, a *action) Context {
	scope := telemetry.Scope{
		Name:   append(slices.Clone(s.prefix), s.owner, a.name),
		Owner:  s.owner,
		Action: a.name,
	}
	final := ctx

	s.telemetry.Span(ctx.GoContext(), scope, s.composeMetadata(ctx, a), func(goctx context.Context) telemetry.Outcome {
		final = s.protect(ctx.withGoContext(goctx), a)

		out := telemetry.Outcome{Metadata: s.composeMetadata(final, a), Status: telemetry.StatusOK}
		if res, ok := final.Result(); ok && !res.IsOK() {
			out.Status = telemetry.StatusError
			out.Reason = eventReason(res.Reason())
		}
		return out
	})

	return final
}

func (s *ActionSet) protect(ctx Context, a *action) (out Context) {
	defer func() {
		if r := recover(); r != nil {
			msg := sanitize(fmt.Sprint(r))
			s.logger.Error("Action %s.%s raised: %s", s.owner, a.name, msg)
			out = ctx.WithResult(Error(&StepException{Message: msg}))
		}
	}()
	return s.runPipeline(ctx, a)
}

// eventReason maps a failure reason to its tag. Reason values come from
// steps, so a panicking Reasoner degrades to step_exception.
func eventReason(reason any) (out any) {
	defer func() {
		if recover() != nil {
			out = string(ReasonStepException)
		}
	}()
	if tag := ReasonOf(reason); tag != "" {
		return string(tag)
	}
	return reason
}

type redaction struct {
	re          *regexp.Regexp
	replacement string
}

var redactions = []redaction{
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey)["\s:=]+([a-zA-Z0-9_\-]{16,})`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9_\-\.]{20,})`), "$1[REDACTED]"},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)["\s:=]+([^\s"]+)`), "$1=[REDACTED]"},
	{regexp.MustCompile(`(AKIA[0-9A-Z]{16})`), "[REDACTED-AWS-KEY]"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), "[REDACTED-JWT]"},
	{regexp.MustCompile(`(?i)(secret|token)["\s:=]+([a-zA-Z0-9_\-]{16,})`), "$1=[REDACTED]"},
}

// sanitize makes a panic message safe to return to callers and to put in
// telemetry: secrets are redacted, control characters dropped and the
// length capped.
func sanitize(msg string) string {
	for _, r := range redactions {
		msg = r.re.ReplaceAllString(msg, r.replacement)
	}

	msg = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, msg)
	msg = strings.TrimSpace(msg)

	if len(msg) > maxExceptionMessage {
		cut := maxExceptionMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
