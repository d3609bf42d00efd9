package httpd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"envhttpd/types"

	"golang.org/x/net/netutil"
)

const shutdownGrace = 5 * time.Second

// Server is the public listener: bounded connection count and per-socket
// read/write timeouts.
type Server struct {
	cfg types.ServerConfig
	log *slog.Logger
	srv *http.Server
}

func NewServer(cfg types.ServerConfig, h http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg: cfg,
		log: log,
		srv: &http.Server{
			Handler:      h,
			ReadTimeout:  cfg.RecvTimeout,
			WriteTimeout: cfg.SendTimeout,
			IdleTimeout:  cfg.RecvTimeout,
			ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

// Listen opens the configured address, wrapped in a connection limit when
// max_open_sockets is set.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxOpenSockets > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxOpenSockets)
	}
	return ln, nil
}

// Serve runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server started", "addr", ln.Addr().String(), "max_open_sockets", s.cfg.MaxOpenSockets)
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := s.srv.Shutdown(sctx)
	s.log.Info("http server stopped", "addr", ln.Addr().String())
	return err
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
