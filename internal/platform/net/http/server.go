package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"heapcensus/internal/platform/config"
	"heapcensus/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server serves the census API on a chi mux
type Server struct {
	mux   *chi.Mux
	srv   *http.Server
	grace time.Duration
}

// NewServer reads API_PORT, API_READ_HEADER_TIMEOUT and API_SHUTDOWN_GRACE
func NewServer(cfg config.Conf) *Server {
	c := cfg.Prefix("API_")
	addr := c.MayString("PORT", ":4000")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	m := chi.NewRouter()
	return &Server{
		mux:   m,
		grace: c.MayDuration("SHUTDOWN_GRACE", 10*time.Second),
		srv: &http.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: c.MayDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		},
	}
}

// Router returns the Router facade over the server mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then drains in flight requests for the grace period
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.Named("http")
	log.Info().Str("addr", ln.Addr().String()).Msg("http listening")

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
		return err
	}
	log.Info().Msg("http stopped")
	return nil
}
