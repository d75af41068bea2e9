package goaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/davidroman0O/goaction/cast"
	"github.com/davidroman0O/goaction/telemetry"
)

// TestLogger is a simple logger implementation for testing
type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Debug(format string, args ...interface{}) {
	l.t.Logf("[DEBUG] "+format, args...)
}

func (l *TestLogger) Info(format string, args ...interface{}) {
	l.t.Logf("[INFO] "+format, args...)
}

func (l *TestLogger) Warn(format string, args ...interface{}) {
	l.t.Logf("[WARN] "+format, args...)
}

func (l *TestLogger) Error(format string, args ...interface{}) {
	l.t.Logf("[ERROR] "+format, args...)
}

// tracker records the order steps ran in
type tracker struct {
	mu    sync.Mutex
	calls []string
}

func (tr *tracker) record(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls = append(tr.calls, name)
}

func (tr *tracker) Calls() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.calls...)
}

// pass returns a step that records its name and continues
func (tr *tracker) pass(name string) SimpleStepFunc {
	return func(ctx Context) Signal {
		tr.record(name)
		return Continue(ctx)
	}
}

// eventLog collects telemetry events
type eventLog struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (l *eventLog) HandleEvent(_ context.Context, ev telemetry.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) Events() []telemetry.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]telemetry.Event(nil), l.events...)
}

// newTestTelemetry wires a telemetry instance to an event log and an
// in-memory span exporter
func newTestTelemetry(t *testing.T) (*telemetry.Telemetry, *eventLog, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	events := &eventLog{}
	d := telemetry.NewDispatcher()
	require.NoError(t, d.Attach("test", nil, events))

	return telemetry.New(telemetry.WithTracerProvider(tp), telemetry.WithDispatcher(d)), events, exp
}

func TestBuilderBuildsActionSet(t *testing.T) {
	tr := &tracker{}

	// Create a builder with two actions
	set, err := NewBuilder("accounts", WithLogger(&TestLogger{t: t})).
		SimpleStep("load", tr.pass("load")).
		SimpleStep("save", tr.pass("save")).
		Action("create", []StepEntry{Use(Local("load")), Use(Local("save"))}, WithDescription("Create an account")).
		Action("delete", []StepEntry{Use(Local("load"), Opt("soft", true))}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "accounts", set.Owner())
	assert.Equal(t, []string{"create", "delete"}, set.Actions())

	info, ok := set.Describe("create")
	require.True(t, ok)
	assert.Equal(t, "Create an account", info.Description)
	require.Len(t, info.Steps, 2)
	assert.Equal(t, "load", info.Steps[0].Ref.Name())

	info, ok = set.Describe("delete")
	require.True(t, ok)
	assert.Equal(t, Options{Opt("soft", true)}, info.Steps[0].Options)

	_, ok = set.Describe("missing")
	assert.False(t, ok)
}

func TestBuilderRejectsInvalidDeclarations(t *testing.T) {
	noop := func(ctx Context) Signal { return Continue(ctx) }
	noopOpts := func(ctx Context, _ Options) Signal { return Continue(ctx) }

	tests := []struct {
		name    string
		builder func() *Builder
		want    error
	}{
		{
			name: "duplicate step",
			builder: func() *Builder {
				return NewBuilder("o").SimpleStep("a", noop).SimpleStep("a", noop)
			},
			want: ErrDuplicateStep,
		},
		{
			name: "duplicate action",
			builder: func() *Builder {
				return NewBuilder("o").Action("a", nil).Action("a", nil)
			},
			want: ErrDuplicateAction,
		},
		{
			name:    "empty owner",
			builder: func() *Builder { return NewBuilder("") },
			want:    ErrInvalidName,
		},
		{
			name:    "empty action name",
			builder: func() *Builder { return NewBuilder("o").Action("", nil) },
			want:    ErrInvalidName,
		},
		{
			name:    "step name with spaces",
			builder: func() *Builder { return NewBuilder("o").Step(" a", noopOpts) },
			want:    ErrInvalidName,
		},
		{
			name:    "nil step function",
			builder: func() *Builder { return NewBuilder("o").Step("a", nil) },
			want:    ErrInvalidStep,
		},
		{
			name:    "nil provider",
			builder: func() *Builder { return NewBuilder("o").Provider(nil) },
			want:    ErrInvalidStep,
		},
		{
			name: "duplicate provider",
			builder: func() *Builder {
				return NewBuilder("o").Provider(NewProvider("p")).Provider(NewProvider("p"))
			},
			want: ErrDuplicateStep,
		},
		{
			name: "duplicate provider step",
			builder: func() *Builder {
				return NewBuilder("o").Provider(NewProvider("p").SimpleStep("a", noop).SimpleStep("a", noop))
			},
			want: ErrDuplicateStep,
		},
		{
			name: "cast step without schema",
			builder: func() *Builder {
				return NewBuilder("o").Action("a", []StepEntry{Use(CastParams)})
			},
			want: ErrInvalidStep,
		},
		{
			name: "cast step with bad schema",
			builder: func() *Builder {
				return NewBuilder("o").Action("a", []StepEntry{Cast(cast.Schema{"n": cast.Type("decimal")})})
			},
			want: cast.ErrInvalidSchema,
		},
		{
			name: "empty ref",
			builder: func() *Builder {
				return NewBuilder("o").Action("a", []StepEntry{{}})
			},
			want: ErrInvalidStep,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder().Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder("").MustBuild()
	})
}

func TestOptionsAwareStepIsPreferred(t *testing.T) {
	var got string

	// Register both arities under the same name
	set := NewBuilder("o").
		SimpleStep("greet", func(ctx Context) Signal {
			got = "simple"
			return Continue(ctx)
		}).
		Step("greet", func(ctx Context, opts Options) Signal {
			v, _ := OptionValue[string](opts, "who")
			got = "full:" + v
			return Continue(ctx)
		}).
		Action("hello", []StepEntry{Use(Local("greet"), Opt("who", "ann"))}).
		MustBuild()

	res := set.Run(context.Background(), "hello", nil, nil)

	assert.True(t, res.IsOK())
	assert.Equal(t, "full:ann", got)
}

func TestSimpleStepIgnoresOptions(t *testing.T) {
	tr := &tracker{}
	set := NewBuilder("o").
		SimpleStep("only", tr.pass("only")).
		Action("a", []StepEntry{Use(Local("only"), Opt("ignored", 1))}).
		MustBuild()

	res := set.Run(context.Background(), "a", nil, nil)

	assert.True(t, res.IsOK())
	assert.Equal(t, []string{"only"}, tr.Calls())
}

func TestExternalStep(t *testing.T) {
	mailer := NewProvider("mailer").
		Step("send", func(ctx Context, opts Options) Signal {
			tpl, _ := OptionValue[string](opts, "template")
			return HaltOK("sent " + tpl)
		})

	set := NewBuilder("accounts").
		Provider(mailer).
		Action("welcome", []StepEntry{Use(External("mailer", "send"), Opt("template", "welcome"))}).
		MustBuild()

	res := set.Run(context.Background(), "welcome", nil, nil)

	require.True(t, res.IsOK())
	assert.Equal(t, "sent welcome", res.Value())
}

func TestUnresolvedStepsHaltWithStepNotFound(t *testing.T) {
	tests := []struct {
		name string
		ref  StepRef
	}{
		{"local", Local("missing")},
		{"unknown provider", External("nobody", "send")},
		{"unknown provider step", External("mailer", "missing")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := &tracker{}
			set := NewBuilder("o", WithLogger(&TestLogger{t: t})).
				Provider(NewProvider("mailer")).
				SimpleStep("before", tr.pass("before")).
				SimpleStep("after", tr.pass("after")).
				Action("a", []StepEntry{Use(Local("before")), Use(tc.ref), Use(Local("after"))}).
				MustBuild()

			res := set.Run(context.Background(), "a", nil, nil)

			assert.False(t, res.IsOK())
			assert.Equal(t, ReasonStepNotFound, res.Reason())
			assert.Equal(t, []string{"before"}, tr.Calls())

			info, _ := set.Describe("a")
			assert.Equal(t, tc.ref, info.Steps[1].Ref)
		})
	}
}

func TestStepRefString(t *testing.T) {
	assert.Equal(t, "load", Local("load").String())
	assert.Equal(t, "mailer.send", External("mailer", "send").String())
	assert.Equal(t, "goaction.cast_params", CastParams.String())
	assert.True(t, External("m", "s").IsExternal())
	assert.True(t, CastParams.IsBuiltin())
	assert.False(t, Local("cast_params") == CastParams)
}
