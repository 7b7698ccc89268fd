// Package server exposes the render pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz   liveness probe, answers "ok"
//	GET  /version   build information as JSON
//	POST /render    renders a script and answers with the image
//
// A render request is a JSON body:
//
//	{
//	  "source": "desktop.fillLayer();",
//	  "name": "plain",
//	  "seed": 42,
//	  "width": 1920,
//	  "height": 1080,
//	  "format": "png",
//	  "screens": [{"x": 0, "y": 0, "width": 1920, "height": 1080}]
//	}
//
// The response body is the encoded image. With several screens, the
// ?screen=N query parameter (1-based) selects which one is returned. The
// seed actually used, the number of images and whether the cache was hit
// are reported in the X-Topdraw-Seed, X-Topdraw-Images and X-Topdraw-Cache
// headers. Failures answer with a JSON [ErrorResponse].
package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/topdraw/topdraw/pkg/buildinfo"
	"github.com/topdraw/topdraw/pkg/compositor"
	tderrors "github.com/topdraw/topdraw/pkg/errors"
	"github.com/topdraw/topdraw/pkg/observability"
	"github.com/topdraw/topdraw/pkg/pipeline"
)

// DefaultMaxBodyBytes bounds the size of a render request.
const DefaultMaxBodyBytes = 1 << 20

// Server serves renders from a pipeline.Runner.
type Server struct {
	runner       *pipeline.Runner
	logger       *log.Logger
	maxBodyBytes int64
	timeout      time.Duration
	router       chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes limits request bodies to n bytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithTimeout bounds each evaluation.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a server rendering with runner.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:       runner,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe)
	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Post("/render", s.handleRender)
	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// observe reports each request to the HTTP hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    buildinfo.Version,
		"commit":     buildinfo.Commit,
		"date":       buildinfo.Date,
		"script_api": compositor.SupportedVersion,
	})
}

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	pipeline.Options
	Screens []Screen `json:"screens,omitempty"`
}

// Screen is one display in desktop coordinates.
type Screen struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ErrorResponse is the JSON body of failed requests.
type ErrorResponse struct {
	Error string   `json:"error"`
	Code  string   `json:"code,omitempty"`
	Line  int      `json:"line,omitempty"`
	Log   []string `json:"log,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req RenderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  string(tderrors.ErrCodeInvalidInput),
		})
		return
	}

	opts := req.Options
	for _, sc := range req.Screens {
		opts.Screens = append(opts.Screens, image.Rect(sc.X, sc.Y, sc.X+sc.Width, sc.Y+sc.Height))
	}
	if s.timeout > 0 {
		opts.Timeout = s.timeout
	}
	opts.Logger = s.logger.With("request", middleware.GetReqID(r.Context()))

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		resp := ErrorResponse{Error: tderrors.UserMessage(err), Code: string(tderrors.GetCode(err))}
		if result != nil {
			resp.Line = result.Line
			resp.Log = result.Log
		}
		writeJSON(w, statusFor(err), resp)
		return
	}

	index := 1
	if q := r.URL.Query().Get("screen"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > len(result.Artifacts) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "screen must be between 1 and " + strconv.Itoa(len(result.Artifacts)),
				Code:  string(tderrors.ErrCodeInvalidInput),
			})
			return
		}
		index = n
	}

	h := w.Header()
	h.Set("Content-Type", result.Format.ContentType())
	h.Set("X-Topdraw-Seed", strconv.FormatUint(result.Seed, 10))
	h.Set("X-Topdraw-Images", strconv.Itoa(len(result.Artifacts)))
	if result.CacheInfo.Hit {
		h.Set("X-Topdraw-Cache", "hit")
	} else {
		h.Set("X-Topdraw-Cache", "miss")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(result.Artifacts[index-1])
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	switch tderrors.GetCode(err) {
	case tderrors.ErrCodeInvalidInput, tderrors.ErrCodeInvalidFormat,
		tderrors.ErrCodeInvalidSize, tderrors.ErrCodeResource:
		return http.StatusBadRequest
	case tderrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case tderrors.ErrCodeInternal:
		return http.StatusInternalServerError
	}
	var se *tderrors.ScriptError
	if errors.As(err, &se) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
