package autoabort

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// CallbackServer receives the authorization redirect and forwards the first
// code it carries.
type CallbackServer struct {
	server   *http.Server
	listener net.Listener
	codes    chan string
	code     chan string
}

// StartCallbackServer listens on addr and serves path. The returned guard
// stops both the HTTP server and the forwarding goroutine.
func StartCallbackServer(ctx context.Context, addr, path string) (*CallbackServer, *Guard, error) {
	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return nil, nil, err
	}

	s := &CallbackServer{
		listener: listener,
		codes:    make(chan string, 1),
		code:     make(chan string, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("authorization callback server failed")
		}
	}()

	forwardCtx, cancel := context.WithCancel(ctx)

	go s.forward(forwardCtx)

	logrus.WithField("addr", listener.Addr().String()).Info("started authorization callback server")

	return s, New(cancel, s.shutdown), nil
}

func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// Code yields the first received authorization code.
func (s *CallbackServer) Code() <-chan string {
	return s.code
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	select {
	case s.codes <- code:
	default:
	}

	_, _ = w.Write([]byte("Authorization received, you can close this page."))
}

func (s *CallbackServer) forward(ctx context.Context) {
	defer logrus.Debug("authorization callback forwarding stopped")

	select {
	case <-ctx.Done():
	case code := <-s.codes:
		s.code <- code
	}
}

func (s *CallbackServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("failed shutdown authorization callback server")
		return
	}

	logrus.Info("authorization callback server stopped")
}
