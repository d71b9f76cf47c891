package server

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
)

type Server struct {
	mux *chi.Mux
}

func safeWrite(w http.ResponseWriter, code int, body []byte) {
	w.WriteHeader(code)

	// nosemgrep: go.lang.security.audit.xss.no-direct-write-to-responsewriter.no-direct-write-to-responsewriter
	// Why: The response data is not from user input
	if _, err := w.Write(body); err != nil {
		logging.Default().Error("fail to write response", slog.Any("error", err))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Default().Error("fail to marshal response", slog.Any("error", err))
		safeWrite(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safeWrite(w, code, body)
}

type config struct {
	metrics http.Handler
	board   *Board
}

type Option func(*config)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(cfg *config) {
		cfg.metrics = h
	}
}

// WithBoard serves the job status of b at /jobs.
func WithBoard(b *Board) Option {
	return func(cfg *config) {
		cfg.board = b
	}
}

func New(options ...Option) *Server {
	cfg := &config{}
	for _, opt := range options {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(preProcess)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		safeWrite(w, http.StatusOK, []byte("ok"))
	})
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}
	if cfg.board != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, cfg.board.Statuses())
			})
			r.Get("/{jobID}", func(w http.ResponseWriter, r *http.Request) {
				status := cfg.board.Status(chi.URLParam(r, "jobID"))
				if status == nil {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
					return
				}
				writeJSON(w, http.StatusOK, status)
			})
		})
	}

	return &Server{
		mux: r,
	}
}

func (x *Server) Mux() *chi.Mux {
	return x.mux
}
