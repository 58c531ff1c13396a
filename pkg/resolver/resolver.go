package resolver

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/pkg/render/template"
	"github.com/goliatone/go-treads/pkg/render/template/gotemplate"
	"github.com/goliatone/go-treads/pkg/response"
	"github.com/goliatone/go-treads/pkg/sanitize"
	"github.com/goliatone/go-treads/pkg/templates"
)

// DefaultLookupTimeout bounds each template lookup.
const DefaultLookupTimeout = 5 * time.Second

const tracerName = "github.com/goliatone/go-treads/pkg/resolver"

// Request describes one render.
type Request struct {
	Agent        string
	ResponseType string
	Data         any
	Prompt       string
}

// NewRequest classifies payload and builds the matching request.
func NewRequest(agent string, payload any, prompt string) Request {
	c := response.Classify(payload)
	return Request{
		Agent:        agent,
		ResponseType: c.Type,
		Data:         c.Data,
		Prompt:       prompt,
	}
}

// Result is a rendered fragment and the fallback level that produced it. URI
// is empty for built-in and generic templates.
type Result struct {
	HTML         string
	Stage        Stage
	URI          string
	ResponseType string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup sets the template source consulted for agent and app scopes.
func WithLookup(lookup Lookup) Option {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookup = lookup
		}
	}
}

// WithRegistry replaces the built-in template registry.
func WithRegistry(registry *templates.Registry) Option {
	return func(r *Resolver) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// WithEngine replaces the template engine. Built-in templates are rendered
// by file name (see templates.FileName), so the engine must load them from
// the registry's filesystem.
func WithEngine(engine template.TemplateRenderer) Option {
	return func(r *Resolver) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithLookupTimeout bounds each lookup. Non-positive values keep the default.
func WithLookupTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithClock overrides the clock used for the timestamp variable.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSanitizer overrides the fragment sanitizer. Passing nil disables
// sanitizing.
func WithSanitizer(fn func(string) string) Option {
	return func(r *Resolver) {
		r.sanitize = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers render telemetry.
func WithObserver(observer Observer) Option {
	return func(r *Resolver) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithTracer sets the tracer used for render spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// Resolver renders agent responses. Its configuration is fixed at
// construction, so one Resolver can serve concurrent renders.
type Resolver struct {
	lookup   Lookup
	registry *templates.Registry
	engine   template.TemplateRenderer
	timeout  time.Duration
	now      func() time.Time
	sanitize func(string) string
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer
}

// New constructs a Resolver. Without WithLookup only built-in and generic
// templates are used.
func New(options ...Option) (*Resolver, error) {
	r := &Resolver{
		lookup:   NoLookup,
		timeout:  DefaultLookupTimeout,
		now:      time.Now,
		sanitize: sanitize.Fragment,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.registry == nil {
		r.registry = templates.Default()
	}
	if r.engine == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(r.registry.FS()),
			gotemplate.WithExtension(templates.Extension),
		)
		if err != nil {
			return nil, fmt.Errorf("resolver: create template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// Render resolves the template for req and renders it. Lookup misses
// advance the fallback chain; lookup faults and template failures are
// returned as *LookupError and *TemplateError.
func (r *Resolver) Render(ctx context.Context, req Request) (Result, error) {
	agent := normalizeAgent(req.Agent)
	responseType := strings.TrimSpace(req.ResponseType)
	if responseType == "" {
		responseType = response.DefaultType
	}

	ctx, span := r.tracer.Start(ctx, "resolver.Render", trace.WithAttributes(
		attribute.String("treads.agent", agent),
		attribute.String("treads.response_type", responseType),
	))
	defer span.End()

	logger := r.logger.With(zap.String("agent", agent), zap.String("response_type", responseType))

	result, err := r.render(ctx, logger, agent, responseType, req)
	if err != nil {
		r.observer.ObserveFailure(failureKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("render failed", zap.Error(err))
		return Result{}, err
	}

	span.SetAttributes(attribute.String("treads.stage", result.Stage.String()))
	r.observer.ObserveRender(result.Stage)
	logger.Debug("rendered", zap.Stringer("stage", result.Stage), zap.String("uri", result.URI))
	return result, nil
}

func (r *Resolver) render(ctx context.Context, logger *zap.Logger, agent, responseType string, req Request) (Result, error) {
	rc := NewRenderContext(agent, responseType, req.Data, req.Prompt, r.now())

	for i, ref := range Chain(agent, responseType) {
		stage := lookupStages[i]
		src, found, err := r.find(ctx, logger, stage, ref)
		if err != nil {
			return Result{}, err
		}
		if !found {
			continue
		}
		return r.evaluate(stage, src.URI, responseType, src.Body, rc)
	}

	if r.registry.Has(responseType) {
		return r.evaluateBuiltin(StageBuiltin, responseType, responseType, rc)
	}

	logger.Debug("no template for response type, using generic")
	return r.evaluateBuiltin(StageGeneric, templates.GenericName, responseType, rc)
}

type lookupResult struct {
	src Source
	err error
}

// find runs one lookup under the lookup timeout. It reports found=false for
// misses and returns an error only for faults that must surface.
func (r *Resolver) find(ctx context.Context, logger *zap.Logger, stage Stage, ref TemplateRef) (Source, bool, error) {
	uri := ref.URI()
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan lookupResult, 1)
	go func() {
		src, err := r.lookup.Lookup(lookupCtx, uri)
		done <- lookupResult{src: src, err: err}
	}()

	var res lookupResult
	select {
	case res = <-done:
	case <-lookupCtx.Done():
		res.err = lookupCtx.Err()
	}

	outcome, err := r.classifyLookup(ctx, uri, res)
	r.observer.ObserveLookup(stage, outcome, time.Since(start))

	fields := []zap.Field{zap.String("uri", uri), zap.String("outcome", outcome)}
	switch outcome {
	case OutcomeHit:
		src := res.src
		if src.URI == "" {
			src.URI = uri
		}
		logger.Debug("template found", fields...)
		return src, true, nil
	case OutcomeError, OutcomeCancelled:
		return Source{}, false, err
	default:
		if res.err != nil {
			fields = append(fields, zap.Error(res.err))
		}
		logger.Debug("template lookup missed", fields...)
		return Source{}, false, nil
	}
}

// classifyLookup maps a lookup result to an outcome. Only cancellation of
// the caller's context aborts the render; an expired caller deadline counts
// as a lookup timeout, so the render still falls through to the built-ins.
func (r *Resolver) classifyLookup(ctx context.Context, uri string, res lookupResult) (string, error) {
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCancelled, err
	}
	switch {
	case res.err == nil:
		if strings.TrimSpace(res.src.Body) == "" {
			return OutcomeMiss, nil
		}
		return OutcomeHit, nil
	case errors.Is(res.err, ErrNotFound):
		return OutcomeMiss, nil
	case errors.Is(res.err, context.DeadlineExceeded):
		return OutcomeTimeout, nil
	case errors.Is(res.err, ErrUnavailable):
		return OutcomeUnavailable, nil
	default:
		return OutcomeError, &LookupError{URI: uri, Err: res.err}
	}
}

// evaluate renders a template body fetched by a lookup.
func (r *Resolver) evaluate(stage Stage, uri, responseType, body string, rc RenderContext) (Result, error) {
	out, err := r.engine.RenderString(body, rc.Map())
	if err != nil {
		return Result{}, &TemplateError{Stage: stage, URI: uri, ResponseType: responseType, Err: err}
	}
	return r.finish(stage, uri, responseType, out), nil
}

// evaluateBuiltin renders a registry template by name. The engine parses
// each built-in once and reuses it.
func (r *Resolver) evaluateBuiltin(stage Stage, name, responseType string, rc RenderContext) (Result, error) {
	out, err := r.engine.RenderTemplate(templates.FileName(name), rc.Map())
	if err != nil {
		return Result{}, &TemplateError{Stage: stage, ResponseType: responseType, Err: err}
	}
	return r.finish(stage, "", responseType, out), nil
}

func (r *Resolver) finish(stage Stage, uri, responseType, out string) Result {
	if r.sanitize != nil {
		out = r.sanitize(out)
	}
	return Result{
		HTML:         out,
		Stage:        stage,
		URI:          uri,
		ResponseType: responseType,
	}
}

// Respond renders req and maps any failure to an error_response fragment, so
// the caller always receives markup.
func (r *Resolver) Respond(ctx context.Context, req Request) Result {
	result, err := r.Render(ctx, req)
	if err == nil {
		return result
	}
	return r.RenderError(ctx, req.Agent, req.Prompt, err)
}

// RenderError renders cause through the error_response chain. If that fails
// too, the built-in error template is used directly, and as a last resort a
// static error bubble.
func (r *Resolver) RenderError(ctx context.Context, agent, prompt string, cause error) Result {
	description := Describe(cause)
	data := map[string]any{"error": description}

	result, err := r.Render(ctx, Request{
		Agent:        agent,
		ResponseType: response.ErrorResponse,
		Data:         data,
		Prompt:       prompt,
	})
	if err == nil {
		return result
	}

	agent = normalizeAgent(agent)
	rc := NewRenderContext(agent, response.ErrorResponse, data, prompt, r.now())
	if r.registry.Has(response.ErrorResponse) {
		result, err = r.evaluateBuiltin(StageBuiltin, response.ErrorResponse, response.ErrorResponse, rc)
		if err == nil {
			return result
		}
	}
	r.logger.Error("error template failed, using static fragment",
		zap.String("agent", agent), zap.Error(err))

	return Result{
		HTML:         StaticErrorFragment(description),
		Stage:        StageGeneric,
		ResponseType: response.ErrorResponse,
	}
}

// StaticErrorFragment is the error bubble used when no template can render.
func StaticErrorFragment(description string) string {
	return `<div class="chat-bubble chat-bubble-bot chat-bubble-error text-red-500" role="alert" data-response-type="` +
		response.ErrorResponse + `">Error: ` + html.EscapeString(description) + `</div>`
}
