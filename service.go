package ope

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// ServiceConfig wires the collaborators a Service consumes.
type ServiceConfig struct {
	// Patterns defaults to DefaultPatterns.
	Patterns *PatternTables

	// Overlays may be nil, in which case no context can be applied.
	Overlays OverlaySource

	// Capabilities defaults to no mock, no cloud, no local HTTP.
	Capabilities Capabilities

	Adapters Adapters

	// DisplaySummary fills Meta.Display with a visible enhancement summary
	// when running in mock mode.
	DisplaySummary bool
}

// Service runs requests through the prepare, call and validate stages.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	enhancer       *Enhancer
	overlays       OverlaySource
	caps           Capabilities
	adapters       Adapters
	displaySummary bool

	prepare  pipz.Chainable[*CompileRequest]
	pipeline pipz.Chainable[*CompileRequest]
}

// NewService builds the pipeline. Options wrap only the adapter call.
func NewService(cfg ServiceConfig, opts ...Option) *Service {
	caps := cfg.Capabilities
	if caps == nil {
		caps = StaticCapabilities{}
	}
	s := &Service{
		enhancer:       NewEnhancer(cfg.Patterns),
		overlays:       cfg.Overlays,
		caps:           caps,
		adapters:       cfg.Adapters,
		displaySummary: cfg.DisplaySummary,
	}

	s.prepare = pipz.NewSequence(PrepareID,
		s.enhanceStage(),
		s.overlayStage(),
		requirementsStage(),
		synthesizeStage(),
		compileStage(),
		s.routeStage(),
	)

	call := NewTerminal()
	for _, opt := range opts {
		call = opt(call)
	}

	s.pipeline = pipz.NewSequence(PipelineID, s.prepare, call, validateStage())
	return s
}

// Overlays returns the overlay source the service resolves contexts against.
func (s *Service) Overlays() OverlaySource {
	return s.overlays
}

// Enhancer returns the enhancer used by the prepare stages.
func (s *Service) Enhancer() *Enhancer {
	return s.enhancer
}

// Prepare runs the pure stages only: enhancement through routing. No adapter
// is called.
func (s *Service) Prepare(ctx context.Context, req Request) (*CompileRequest, error) {
	cr, err := s.newCompileRequest(req)
	if err != nil {
		return nil, err
	}
	return s.prepare.Process(ctx, cr)
}

// Execute runs the full pipeline and assembles the boundary response.
func (s *Service) Execute(ctx context.Context, req Request) (*Response, error) {
	cr, err := s.newCompileRequest(req)
	if err != nil {
		return nil, err
	}

	capitan.Info(ctx, RequestStarted,
		RequestIDKey.Field(cr.RequestID),
		TaskTypeKey.Field(string(cr.Request.TaskType)),
		ContextKey.Field(cr.Request.Context),
	)

	processed, err := s.pipeline.Process(ctx, cr)
	if err != nil {
		fields := []capitan.Field{
			RequestIDKey.Field(cr.RequestID),
			TaskTypeKey.Field(string(cr.Request.TaskType)),
			ErrorKey.Field(err.Error()),
		}
		var aerr *AdapterError
		if errors.As(err, &aerr) {
			fields = append(fields, ErrorKindKey.Field(string(aerr.Kind)))
		}
		capitan.Error(ctx, RequestFailed, fields...)
		return nil, err
	}

	resp := s.response(processed)

	capitan.Info(ctx, RequestCompleted,
		RequestIDKey.Field(processed.RequestID),
		TaskTypeKey.Field(string(processed.Request.TaskType)),
		AdapterKey.Field(processed.Route.AdapterName),
		ModelKey.Field(processed.Route.ModelID),
		ContextKey.Field(processed.ContextID()),
	)
	return resp, nil
}

func (s *Service) newCompileRequest(req Request) (*CompileRequest, error) {
	normalized, err := normalizeRequest(req, s.overlays)
	if err != nil {
		return nil, err
	}
	return &CompileRequest{
		RequestID: uuid.New().String(),
		Request:   normalized,
	}, nil
}

func (s *Service) response(cr *CompileRequest) *Response {
	meta := Meta{
		RequestID:   cr.RequestID,
		Model:       cr.Route.ModelID,
		Adapter:     cr.Route.AdapterName,
		Context:     cr.Resolution.ID,
		AutoContext: cr.Resolution.AutoApplied,
		IR:          cr.IR,
		Compiled:    cr.Compiled.Text(),
		Decoding:    cr.Compiled.Decoding,
		Validation:  cr.Validation.Meta(),
	}
	if cr.Enhancement.Applied() {
		enh := cr.Enhancement
		meta.Enhancement = &enh
	}
	if s.displaySummary && s.caps.IsMockMode() {
		meta.Display = FormatEnhancementSummary(cr.Enhancement)
	}
	return &Response{Output: cr.Validation.Value, Meta: meta}
}

func (s *Service) enhanceStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(EnhanceID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
		req.Enhancement = s.enhancer.Enhance(req.Request.RawPrompt, req.Request.Enhance)
		if req.Enhancement.Applied() {
			capitan.Info(ctx, EnhancementApplied,
				RequestIDKey.Field(req.RequestID),
				DomainKey.Field(string(req.Enhancement.Analysis.DetectedDomain)),
				AmbiguityKey.Field(req.Enhancement.Analysis.AmbiguityScore),
				EnhancementsKey.Field(strings.Join(req.Enhancement.EnhancementsApplied, ",")),
			)
		}
		return req, nil
	})
}

func (s *Service) overlayStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(OverlayID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
		res, err := ResolveOverlay(s.overlays, req.Request.Context, req.Enhancement.Analysis.DetectedDomain)
		if err != nil {
			return req, err
		}
		req.Resolution = res
		if res.AutoApplied {
			capitan.Info(ctx, ContextAutoApplied,
				RequestIDKey.Field(req.RequestID),
				ContextKey.Field(res.ID),
				DomainKey.Field(string(req.Enhancement.Analysis.DetectedDomain)),
			)
		}
		return req, nil
	})
}

func requirementsStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(RequirementsID, func(_ context.Context, req *CompileRequest) (*CompileRequest, error) {
		analysis := req.Enhancement.Analysis
		req.Requirements = AnalyzeTask(req.Request.TaskType, &analysis)
		return req, nil
	})
}

func synthesizeStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(SynthesizeID, func(_ context.Context, req *CompileRequest) (*CompileRequest, error) {
		req.IR = Synthesize(
			req.Enhancement.EnhancedPrompt,
			req.Requirements,
			req.Resolution.Overlay,
			req.Enhancement.Analysis.SuggestedExamples,
		)
		return req, nil
	})
}

func compileStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(CompileID, func(_ context.Context, req *CompileRequest) (*CompileRequest, error) {
		req.Compiled = Compile(req.IR, req.Enhancement.EnhancedPrompt, req.Resolution.Overlay)
		return req, nil
	})
}

func (s *Service) routeStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(RouteID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
		req.Route = Route(s.caps, req.Request.TargetHint, s.adapters)
		capitan.Info(ctx, RouteSelected,
			RequestIDKey.Field(req.RequestID),
			AdapterKey.Field(req.Route.AdapterName),
			ModelKey.Field(req.Route.ModelID),
		)
		return req, nil
	})
}

// NewTerminal creates the adapter-call stage. It calls the adapter chosen by
// the route stage with the compiled text and decoding parameters.
func NewTerminal() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(AdapterCallID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
		return req, callAdapter(ctx, req)
	})
}

func newFallbackTerminal(fallback Adapter) pipz.Chainable[*CompileRequest] {
	return pipz.Apply(FallbackCallID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
		req.Route = decisionFor(fallback)
		return req, callAdapter(ctx, req)
	})
}

func callAdapter(ctx context.Context, req *CompileRequest) error {
	adapter := req.Route.Adapter
	if adapter == nil {
		return &AdapterError{Kind: ErrKindConfigMissing, Adapter: req.Route.AdapterName, Err: errors.New("no adapter routed")}
	}
	d := req.Compiled.Decoding

	capitan.Emit(ctx, AdapterCallStarted,
		RequestIDKey.Field(req.RequestID),
		AdapterKey.Field(adapter.Name()),
		ModelKey.Field(adapter.Model()),
		MaxTokensKey.Field(d.MaxTokens),
		TemperatureKey.Field(d.Temperature),
	)

	start := time.Now()
	raw, err := adapter.Call(ctx, req.Compiled.System, req.Compiled.User, d.MaxTokens, d.Temperature)
	duration := int(time.Since(start).Milliseconds())
	if err != nil {
		fields := []capitan.Field{
			RequestIDKey.Field(req.RequestID),
			AdapterKey.Field(adapter.Name()),
			ErrorKey.Field(err.Error()),
			DurationMsKey.Field(duration),
		}
		var aerr *AdapterError
		if errors.As(err, &aerr) {
			fields = append(fields, ErrorKindKey.Field(string(aerr.Kind)))
			if aerr.StatusCode != 0 {
				fields = append(fields, HTTPStatusCodeKey.Field(aerr.StatusCode))
			}
		}
		capitan.Emit(ctx, AdapterCallFailed, fields...)
		return err
	}

	req.RawOutput = raw
	capitan.Emit(ctx, AdapterCallCompleted,
		RequestIDKey.Field(req.RequestID),
		AdapterKey.Field(adapter.Name()),
		ModelKey.Field(adapter.Model()),
		DurationMsKey.Field(duration),
	)
	return nil
}

func validateStage() pipz.Chainable[*CompileRequest] {
	return pipz.Apply(ValidateID, func(ctx context.Context, req *CompileRequest) (*CompileRequest, error) {
		req.Validation = Validate(req.RawOutput)
		if req.Validation.Repaired {
			capitan.Emit(ctx, ResponseRepaired,
				RequestIDKey.Field(req.RequestID),
				AdapterKey.Field(req.Route.AdapterName),
				ErrorKindKey.Field(string(req.Validation.OriginalError.Kind)),
				ErrorKey.Field(req.Validation.OriginalError.Detail),
				RepairReasonKey.Field(req.Validation.RepairReason),
			)
		}
		return req, nil
	})
}
