// Package rpcapi exposes the document orchestrator over HTTP: JSON-RPC 2.0 on
// POST /rpc and a Server-Sent Events stream of lifecycle changes on
// GET /events.
package rpcapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/orchestrator"
	"github.com/dusk-indust/casier/internal/status"
)

// Service is the orchestrator surface the RPC methods drive.
type Service interface {
	Dispatch(ctx context.Context, req orchestrator.Request) (*artifact.Artifact, error)
	Finalize(ctx context.Context, id string) (*artifact.Artifact, error)
	Artifact(ctx context.Context, id string) (*artifact.Artifact, error)
	CheckPrerequisites(ctx context.Context, clientID int64, evaluationID *int64, documentType string) (depgraph.Result, error)
	ClientStatus(ctx context.Context, clientID int64, evaluationID *int64) (status.ClientStatus, error)
}

// Server serves the RPC API. Call Broadcast to feed the event stream.
type Server struct {
	svc    Service
	logger *zap.Logger
	http   *http.Server

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server over svc.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: zap.NewNop(),
		subs:   make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", s.handleJSONRPC)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info("serving RPC", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- s.http.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Broadcast forwards events to every /events subscriber until events is
// closed or ctx is done. Slow subscribers miss events rather than block.
func (s *Server) Broadcast(ctx context.Context, events <-chan orchestrator.ProgressEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.publish(eventFrom(ev))
		}
	}
}

func (s *Server) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Server) subscribe() chan Event {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan Event) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}
