// Package server exposes the ope pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/srdjan/ope"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Config wires the server to a service.
type Config struct {
	Service      *ope.Service
	Overlays     *ope.OverlayTable
	Capabilities ope.Capabilities
	Logger       *zap.Logger
}

// Server handles the HTTP boundary.
type Server struct {
	svc      *ope.Service
	overlays *ope.OverlayTable
	caps     ope.Capabilities
	logger   *zap.Logger
	mux      *http.ServeMux
}

// New creates a server. A nil logger discards output.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	caps := cfg.Capabilities
	if caps == nil {
		caps = ope.StaticCapabilities{}
	}
	s := &Server{
		svc:      cfg.Service,
		overlays: cfg.Overlays,
		caps:     caps,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /v1/prompt", s.handlePrompt)
	s.mux.HandleFunc("POST /v1/compile", s.handleCompile)
	s.mux.HandleFunc("POST /v1/validate", s.handleValidate)
	s.mux.HandleFunc("GET /v1/contexts", s.handleContexts)
	s.mux.HandleFunc("GET /v1/schema", s.handleSchema)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// CompileBody is the /v1/compile response: everything Execute would send
// to a model, without calling it.
type CompileBody struct {
	RequestID    string                `json:"requestId"`
	Enhancement  ope.EnhancementResult `json:"enhancement"`
	Context      string                `json:"context,omitempty"`
	AutoContext  bool                  `json:"contextAutoApplied,omitempty"`
	Requirements ope.TaskRequirements  `json:"requirements"`
	IR           ope.PromptIR          `json:"ir"`
	Compiled     ope.CompiledText      `json:"compiled"`
	Decoding     ope.Decoding          `json:"decoding"`
	Route        ope.RouteDecision     `json:"route"`
}

// ContextsBody is the /v1/contexts response.
type ContextsBody struct {
	Contexts []string            `json:"contexts"`
	Rejected []*ope.OverlayError `json:"rejected"`
}

type validateBody struct {
	Text string `json:"text"`
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req ope.Request
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Execute(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req ope.Request
	if !s.decode(w, r, &req) {
		return
	}
	cr, err := s.svc.Prepare(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CompileBody{
		RequestID:    cr.RequestID,
		Enhancement:  cr.Enhancement,
		Context:      cr.Resolution.ID,
		AutoContext:  cr.Resolution.AutoApplied,
		Requirements: cr.Requirements,
		IR:           cr.IR,
		Compiled:     cr.Compiled.Text(),
		Decoding:     cr.Compiled.Decoding,
		Route:        cr.Route,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body validateBody
	if !s.decode(w, r, &body) {
		return
	}
	result := ope.Validate(body.Text)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"output":     result.Value,
		"validation": result.Meta(),
	})
}

func (s *Server) handleContexts(w http.ResponseWriter, _ *http.Request) {
	rejected := s.overlays.Rejected()
	if rejected == nil {
		rejected = []*ope.OverlayError{}
	}
	s.writeJSON(w, http.StatusOK, ContextsBody{
		Contexts: s.overlays.List(),
		Rejected: rejected,
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"fields":     ope.OutputSchema(),
		"jsonSchema": json.RawMessage(ope.OutputJSONSchema()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mockMode":  s.caps.IsMockMode(),
		"cloud":     s.caps.HasCloud(),
		"localHttp": s.caps.HasLocalHTTP(),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		msg := "invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
		return false
	}
	return true
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) (int, string) {
	if ope.IsClientError(err) {
		return http.StatusBadRequest, ""
	}
	var aerr *ope.AdapterError
	if errors.As(err, &aerr) {
		if aerr.Kind == ope.ErrKindConfigMissing {
			return http.StatusServiceUnavailable, string(aerr.Kind)
		}
		return http.StatusBadGateway, string(aerr.Kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, string(ope.ErrKindNetwork)
	}
	return http.StatusInternalServerError, ""
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Int("status", status), zap.String("kind", kind), zap.Error(err))
	}
	s.writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
