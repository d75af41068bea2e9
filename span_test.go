package goaction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/davidroman0O/goaction/telemetry"
)

func TestMetadataPrecedence(t *testing.T) {
	tel, events, _ := newTestTelemetry(t)

	set := NewBuilder("accounts",
		WithTelemetry(tel),
		WithMetadata(func(Context) map[string]any { return map[string]any{"a": 1, "b": 2} }),
	).
		Action("create", nil, WithActionMetadata(func(Context) map[string]any {
			return map[string]any{"b": 3, "c": 4}
		})).
		MustBuild()

	set.Run(context.Background(), "create", nil, nil)

	evs := events.Events()
	require.Len(t, evs, 2)
	want := telemetry.Metadata{"owner": "accounts", "action": "create", "a": 1, "b": 3, "c": 4}
	assert.Equal(t, want, evs[0].Metadata)
	assert.Equal(t, want, evs[1].Metadata)
}

func TestFixedMetadataHasLowestPrecedence(t *testing.T) {
	tel, events, _ := newTestTelemetry(t)

	set := NewBuilder("accounts",
		WithTelemetry(tel),
		WithMetadata(func(Context) map[string]any { return map[string]any{"action": "renamed"} }),
	).
		Action("create", nil).
		MustBuild()

	set.Run(context.Background(), "create", nil, nil)

	assert.Equal(t, "renamed", events.Events()[0].Metadata.String(telemetry.KeyAction))
}

func TestEventsKeepActionIdentity(t *testing.T) {
	tel, events, _ := newTestTelemetry(t)

	set := NewBuilder("accounts", WithTelemetry(tel)).
		Action("create", nil, WithActionMetadata(func(ctx Context) map[string]any {
			tenant, _ := ctx.Assign("tenant")
			return map[string]any{"owner": tenant}
		})).
		MustBuild()

	set.Run(context.Background(), "create", nil, map[string]any{"tenant": "acme"})

	evs := events.Events()
	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, "acme", ev.Metadata["owner"])
		assert.Equal(t, "accounts", ev.Owner)
		assert.Equal(t, "create", ev.Action)
	}
}

type account struct{ email string }

func (a *account) String() string { return a.email }

// brokenReason panics when asked for its tag.
type brokenReason struct{}

func (*brokenReason) Reason() Reason { panic("no tag") }

func TestRunSurvivesPanickingTelemetryValues(t *testing.T) {
	tel, events, exp := newTestTelemetry(t)

	set := NewBuilder("accounts",
		WithTelemetry(tel),
		WithMetadata(func(ctx Context) map[string]any {
			user, _ := ctx.Assign("user")
			return map[string]any{"user": user}
		}),
	).
		SimpleStep("fail", func(Context) Signal { return HaltError(&brokenReason{}) }).
		Action("create", nil).
		Action("broken", []StepEntry{Use(Local("fail"))}).
		MustBuild()

	var res Result
	require.NotPanics(t, func() {
		res = set.Run(context.Background(), "create", nil, map[string]any{"user": (*account)(nil)})
	})
	assert.True(t, res.IsOK())
	require.Len(t, exp.GetSpans(), 1)

	require.NotPanics(t, func() {
		res = set.Run(context.Background(), "broken", nil, nil)
	})
	assert.False(t, res.IsOK())
	evs := events.Events()
	require.Len(t, evs, 4)
	assert.Equal(t, string(ReasonStepException), evs[3].Reason)
}

func TestFailingMetadataActsAsEmpty(t *testing.T) {
	run := func(t *testing.T, owner MetadataFunc) ([]telemetry.Event, Result) {
		tel, events, _ := newTestTelemetry(t)
		set := NewBuilder("accounts", WithTelemetry(tel), WithMetadata(owner), WithLogger(&TestLogger{t: t})).
			Action("create", nil, WithActionMetadata(func(Context) map[string]any {
				return map[string]any{"c": 4}
			})).
			MustBuild()
		res := set.Run(context.Background(), "create", nil, nil)
		return events.Events(), res
	}

	baseline, _ := run(t, func(Context) map[string]any { return map[string]any{} })

	tests := []struct {
		name string
		fn   MetadataFunc
	}{
		{"panics", func(Context) map[string]any { panic("metadata exploded") }},
		{"returns nil", func(Context) map[string]any { return nil }},
		{"panics with error", func(Context) map[string]any { panic(errors.New("bad")) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evs, res := run(t, tc.fn)

			assert.True(t, res.IsOK(), "metadata failures must not fail the action")
			require.Len(t, evs, 2)
			assert.Equal(t, baseline[0].Metadata, evs[0].Metadata)
			assert.Equal(t, baseline[1].Metadata, evs[1].Metadata)
		})
	}
}

func TestPostMetadataSeesFinalContext(t *testing.T) {
	tel, events, _ := newTestTelemetry(t)

	set := NewBuilder("accounts", WithTelemetry(tel)).
		SimpleStep("login", func(ctx Context) Signal {
			return Continue(ctx.WithAssign("user_id", 42))
		}).
		Action("login", []StepEntry{Use(Local("login"))}, WithActionMetadata(func(ctx Context) map[string]any {
			md := map[string]any{}
			if id, ok := ctx.Assign("user_id"); ok {
				md["user_id"] = id
			}
			if r, ok := ctx.Result(); ok {
				md["ok"] = r.IsOK()
			}
			return md
		})).
		MustBuild()

	set.Run(context.Background(), "login", nil, nil)

	evs := events.Events()
	require.Len(t, evs, 2)
	assert.NotContains(t, evs[0].Metadata, "user_id")
	assert.Equal(t, 42, evs[1].Metadata["user_id"])
	assert.NotContains(t, evs[1].Metadata, "ok", "no step halted")
}

func TestStepPanicBecomesStepException(t *testing.T) {
	tel, events, exp := newTestTelemetry(t)
	tr := &tracker{}

	set := NewBuilder("accounts", WithTelemetry(tel), WithLogger(&TestLogger{t: t})).
		SimpleStep("explode", func(ctx Context) Signal {
			panic("boom: password=hunter2\x00")
		}).
		SimpleStep("after", tr.pass("after")).
		Action("create", []StepEntry{Use(Local("explode")), Use(Local("after"))}).
		MustBuild()

	var res Result
	assert.NotPanics(t, func() {
		res = set.Run(context.Background(), "create", nil, nil)
	})

	require.False(t, res.IsOK())
	var exc *StepException
	require.True(t, errors.As(res.Err(), &exc))
	assert.Equal(t, ReasonStepException, exc.Reason())
	assert.Equal(t, "boom: password=[REDACTED]", exc.Message)
	assert.Empty(t, tr.Calls())

	evs := events.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, telemetry.KindStart, evs[0].Kind)
	assert.Equal(t, telemetry.KindStop, evs[1].Kind)
	assert.Equal(t, telemetry.StatusError, evs[1].Status)
	assert.Equal(t, "step_exception", evs[1].Reason)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "goaction.action.accounts.create", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestStopEventCarriesDuration(t *testing.T) {
	tel, events, _ := newTestTelemetry(t)

	set := NewBuilder("accounts", WithTelemetry(tel)).
		SimpleStep("ok", func(ctx Context) Signal { return HaltOK(1) }).
		Action("create", []StepEntry{Use(Local("ok"))}).
		MustBuild()

	set.Run(context.Background(), "create", nil, nil)

	evs := events.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, evs[0].ID, evs[1].ID)
	assert.Equal(t, telemetry.StatusOK, evs[1].Status)
	assert.GreaterOrEqual(t, evs[1].Measurements.Duration.Nanoseconds(), int64(0))
	assert.Equal(t, evs[1].Measurements.Duration.Microseconds(), evs[1].Measurements.DurationMicros())
}

func TestEventPrefix(t *testing.T) {
	tel, events, _ := newTestTelemetry(t)

	set := NewBuilder("accounts", WithTelemetry(tel), WithEventPrefix("shop")).
		Action("create", nil).
		MustBuild()

	set.Run(context.Background(), "create", nil, nil)

	evs := events.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, []string{"shop", "accounts", "create"}, evs[0].Name)
	assert.Equal(t, "shop.accounts.create.stop", evs[1].FullName())
}

func TestActionNotFoundEmitsNothing(t *testing.T) {
	tel, events, exp := newTestTelemetry(t)
	set := NewBuilder("accounts", WithTelemetry(tel)).MustBuild()

	res := set.Run(context.Background(), "missing", nil, nil)

	assert.Equal(t, Error(ReasonActionNotFound), res)
	assert.Empty(t, events.Events())
	assert.Empty(t, exp.GetSpans())
}

func TestStepsSeeSpanContext(t *testing.T) {
	tel, _, exp := newTestTelemetry(t)

	var traced bool
	set := NewBuilder("accounts", WithTelemetry(tel)).
		SimpleStep("check", func(ctx Context) Signal {
			traced = spanContextValid(ctx.GoContext())
			return Continue(ctx)
		}).
		Action("create", []StepEntry{Use(Local("check"))}).
		MustBuild()

	set.Run(context.Background(), "create", nil, nil)

	assert.True(t, traced)
	assert.Len(t, exp.GetSpans(), 1)
}

func spanContextValid(ctx context.Context) bool {
	return trace.SpanContextFromContext(ctx).IsValid()
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "index out of range", "index out of range"},
		{"password", "login failed password=hunter2", "login failed password=[REDACTED]"},
		{"bearer", "Bearer abcdefghijklmnopqrstuvwxyz", "Bearer [REDACTED]"},
		{"control characters", "a\x00b\x1bc\nd", "abc d"},
		{"surrounding space", "  oops \n", "oops"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitize(tc.in))
		})
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	long := strings.Repeat("é", 600)

	out := sanitize(long)

	assert.LessOrEqual(t, len(out), maxExceptionMessage+len("..."))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, strings.HasPrefix(out, "é"))
	assert.NotContains(t, out, "�")
}
