// Package web is the request/response front end: a full-page snapshot for
// browsers without scripting, a bounded long-poll, and a message post
// endpoint. It is a thin adapter over the chat core.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"nojschat/services"
)

type Server struct {
	log          *slog.Logger
	service      services.IChatService
	listener     net.Listener
	chatName     string
	historyLimit int
	pollTimeout  time.Duration
	maxContent   int
}

func NewServer(log *slog.Logger, service services.IChatService, listener net.Listener,
	chatName string, historyLimit int, pollTimeout time.Duration, maxContent int) *Server {
	return &Server{
		log:          log,
		service:      service,
		listener:     listener,
		chatName:     chatName,
		historyLimit: historyLimit,
		pollTimeout:  pollTimeout,
		maxContent:   maxContent,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /poll", s.handlePoll)
	mux.HandleFunc("POST /message", s.handlePostMessage)
	mux.HandleFunc("POST /join", s.handleJoin)
	mux.HandleFunc("POST /leave", s.handleLeave)
	return mux
}

// Run serves HTTP on the listener handed over by the entry point (binding
// happens there, so a bind failure aborts startup) until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("HTTP front end listening", "addr", s.listener.Addr().String())
		if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
