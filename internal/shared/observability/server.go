package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the body of /health.
type Status struct {
	Status    string            `json:"status"`
	Stage     string            `json:"stage"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// Server exposes /metrics and /health while a load runs.
type Server struct {
	addr   string
	server *http.Server
	ln     net.Listener
	stage  atomic.Value // string
	failed atomic.Bool
}

func NewServer(addr string) *Server {
	s := &Server{addr: addr}
	s.stage.Store("starting")
	return s
}

// SetStage records what the process is doing, as shown by /health.
func (s *Server) SetStage(stage string) { s.stage.Store(stage) }

// Fail marks the process unhealthy.
func (s *Server) Fail() { s.failed.Store(true) }

func (s *Server) status() Status {
	st := Status{Status: "up", Stage: s.stage.Load().(string), Timestamp: time.Now().UTC()}
	if s.failed.Load() {
		st.Status = "failed"
	}
	return st
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		st := s.status()
		w.Header().Set("Content-Type", "application/json")
		if st.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(st)
	})
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	slog.Info("observability server starting", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
