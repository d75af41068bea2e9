package goaction

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/davidroman0O/goaction/telemetry"
)

// DefaultEventPrefix prefixes the name of every action event.
var DefaultEventPrefix = []string{"goaction", "action"}

// binding holds the two accepted arities of a step. The options-aware form
// wins when both are set.
type binding struct {
	withOptions StepFunc
	simple      SimpleStepFunc
}

func (b binding) fn() (StepFunc, bool) {
	switch {
	case b.withOptions != nil:
		return b.withOptions, true
	case b.simple != nil:
		simple := b.simple
		return func(ctx Context, _ Options) Signal { return simple(ctx) }, true
	default:
		return nil, false
	}
}

type stepTable map[string]binding

func (t stepTable) add(owner, name string, full StepFunc, simple SimpleStepFunc) error {
	if !validName(name) {
		return fmt.Errorf("%w: step %q on %s", ErrInvalidName, name, owner)
	}
	if full == nil && simple == nil {
		return fmt.Errorf("%w: step %q on %s has no function", ErrInvalidStep, name, owner)
	}

	b := t[name]
	if (full != nil && b.withOptions != nil) || (simple != nil && b.simple != nil) {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateStep, owner, name)
	}
	if full != nil {
		b.withOptions = full
	}
	if simple != nil {
		b.simple = simple
	}
	t[name] = b
	return nil
}

func validName(name string) bool {
	return name != "" && strings.TrimSpace(name) == name
}

// Provider is a named set of steps that actions of other owners reference
// with External.
type Provider struct {
	name  string
	steps stepTable
	errs  []error
}

// NewProvider creates an empty provider.
func NewProvider(name string) *Provider {
	p := &Provider{name: name, steps: make(stepTable)}
	if !validName(name) {
		p.errs = append(p.errs, fmt.Errorf("%w: provider %q", ErrInvalidName, name))
	}
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// Step registers an options-aware step.
func (p *Provider) Step(name string, fn StepFunc) *Provider {
	if err := p.steps.add(p.name, name, fn, nil); err != nil {
		p.errs = append(p.errs, err)
	}
	return p
}

// SimpleStep registers a step that ignores options.
func (p *Provider) SimpleStep(name string, fn SimpleStepFunc) *Provider {
	if err := p.steps.add(p.name, name, nil, fn); err != nil {
		p.errs = append(p.errs, err)
	}
	return p
}

// ActionOption configures a single action.
type ActionOption func(*actionDef)

// WithActionMetadata sets the action-level metadata function. Its keys win
// over the owner-level ones.
func WithActionMetadata(fn MetadataFunc) ActionOption {
	return func(a *actionDef) {
		a.metadata = fn
	}
}

// WithDescription documents the action.
func WithDescription(desc string) ActionOption {
	return func(a *actionDef) {
		a.description = desc
	}
}

type actionDef struct {
	name        string
	description string
	steps       []StepEntry
	metadata    MetadataFunc
}

// BuilderOption configures a Builder and the ActionSet it builds.
type BuilderOption func(*Builder)

// WithLogger sets the logger of the action set.
func WithLogger(logger Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithTelemetry sets where spans and events go.
func WithTelemetry(t *telemetry.Telemetry) BuilderOption {
	return func(b *Builder) {
		b.telemetry = t
	}
}

// WithStepMiddleware adds middleware around every step invocation. The first
// middleware registered is the outermost.
func WithStepMiddleware(middleware ...StepMiddleware) BuilderOption {
	return func(b *Builder) {
		b.middleware = append(b.middleware, middleware...)
	}
}

// WithEventPrefix replaces DefaultEventPrefix.
func WithEventPrefix(prefix ...string) BuilderOption {
	return func(b *Builder) {
		b.prefix = slices.Clone(prefix)
	}
}

// WithMetadata sets the owner-level metadata function, shared by every
// action of the set.
func WithMetadata(fn MetadataFunc) BuilderOption {
	return func(b *Builder) {
		b.metadata = fn
	}
}

// Builder accumulates steps, providers and actions for one owner. It is not
// safe for concurrent use; Build produces the immutable ActionSet that is.
type Builder struct {
	owner      string
	steps      stepTable
	providers  map[string]*Provider
	actions    []*actionDef
	logger     Logger
	telemetry  *telemetry.Telemetry
	middleware []StepMiddleware
	prefix     []string
	metadata   MetadataFunc
	errs       []error
}

// NewBuilder creates a builder for the actions of owner.
func NewBuilder(owner string, opts ...BuilderOption) *Builder {
	b := &Builder{
		owner:     owner,
		steps:     make(stepTable),
		providers: make(map[string]*Provider),
		logger:    NewDefaultLogger(),
		prefix:    slices.Clone(DefaultEventPrefix),
	}
	for _, opt := range opts {
		opt(b)
	}
	if !validName(owner) {
		b.errs = append(b.errs, fmt.Errorf("%w: owner %q", ErrInvalidName, owner))
	}
	return b
}

// Step registers an options-aware local step.
func (b *Builder) Step(name string, fn StepFunc) *Builder {
	if err := b.steps.add(b.owner, name, fn, nil); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// SimpleStep registers a local step that ignores options.
func (b *Builder) SimpleStep(name string, fn SimpleStepFunc) *Builder {
	if err := b.steps.add(b.owner, name, nil, fn); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Provider makes the steps of p available through External refs.
func (b *Builder) Provider(p *Provider) *Builder {
	if p == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: nil provider", ErrInvalidStep))
		return b
	}
	if _, exists := b.providers[p.name]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: provider %q", ErrDuplicateStep, p.name))
		return b
	}
	b.errs = append(b.errs, p.errs...)
	b.providers[p.name] = p
	return b
}

// Action declares an action as an ordered step list.
func (b *Builder) Action(name string, steps []StepEntry, opts ...ActionOption) *Builder {
	if !validName(name) {
		b.errs = append(b.errs, fmt.Errorf("%w: action %q", ErrInvalidName, name))
		return b
	}
	for _, a := range b.actions {
		if a.name == name {
			b.errs = append(b.errs, fmt.Errorf("%w: %s.%s", ErrDuplicateAction, b.owner, name))
			return b
		}
	}

	a := &actionDef{name: name, steps: slices.Clone(steps)}
	for _, opt := range opts {
		opt(a)
	}
	b.actions = append(b.actions, a)
	return b
}

// Build resolves every step entry and returns the immutable action set.
// Refs that resolve to nothing are not an error: they halt with
// step_not_found when reached.
func (b *Builder) Build() (*ActionSet, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	logger := b.logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	tel := b.telemetry
	if tel == nil {
		tel = telemetry.New()
	}

	s := &ActionSet{
		owner:     b.owner,
		actions:   make(map[string]*action, len(b.actions)),
		logger:    logger,
		telemetry: tel,
		prefix:    slices.Clone(b.prefix),
		metadata:  b.metadata,
	}
	s.runner = chain(b.middleware)

	for _, def := range b.actions {
		a := &action{
			name:        def.name,
			description: def.description,
			metadata:    def.metadata,
			steps:       make([]*ResolvedStep, len(def.steps)),
		}
		for i, entry := range def.steps {
			step, err := b.resolve(def.name, i, entry)
			if err != nil {
				return nil, err
			}
			a.steps[i] = step
		}
		s.actions[def.name] = a
		s.names = append(s.names, def.name)
	}

	logger.Debug("Built action set %s with %d actions", s.owner, len(s.names))
	return s, nil
}

// MustBuild is Build that panics on error.
func (b *Builder) MustBuild() *ActionSet {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

type action struct {
	name        string
	description string
	steps       []*ResolvedStep
	metadata    MetadataFunc
}

// ActionSet is the immutable result of Builder.Build. It is safe for
// concurrent use.
type ActionSet struct {
	owner     string
	actions   map[string]*action
	names     []string
	logger    Logger
	telemetry *telemetry.Telemetry
	runner    StepRunner
	prefix    []string
	metadata  MetadataFunc
}

// ActionInfo describes a declared action.
type ActionInfo struct {
	Name        string
	Description string
	Steps       []StepEntry
}

// Owner returns the owner identifier of the set.
func (s *ActionSet) Owner() string { return s.owner }

// Actions returns the action names in declaration order.
func (s *ActionSet) Actions() []string { return slices.Clone(s.names) }

// Describe returns the declaration of action name.
func (s *ActionSet) Describe(name string) (ActionInfo, bool) {
	a, ok := s.actions[name]
	if !ok {
		return ActionInfo{}, false
	}
	info := ActionInfo{Name: a.name, Description: a.description, Steps: make([]StepEntry, len(a.steps))}
	for i, st := range a.steps {
		info.Steps[i] = StepEntry{Ref: st.Entry.Ref, Options: slices.Clone(st.Entry.Options)}
	}
	return info, true
}
