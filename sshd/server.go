// Package sshd is the interactive front end: a line-oriented terminal
// session over SSH with live push of new messages. It is a thin adapter over
// the chat core; the anonymizing overlay in front of the listener is the
// privacy layer, so no password authentication is performed.
package sshd

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"nojschat/services"
)

type Server struct {
	log          *slog.Logger
	service      services.IChatService
	listener     net.Listener
	config       *ssh.ServerConfig
	chatName     string
	historyLimit int
	bufferSize   int
}

func NewServer(log *slog.Logger, service services.IChatService, listener net.Listener,
	hostKey ssh.Signer, chatName string, historyLimit, bufferSize int) *Server {
	config := &ssh.ServerConfig{
		// The handle prompt inside the session is the identity step.
		NoClientAuth: true,
	}
	config.AddHostKey(hostKey)

	return &Server{
		log:          log,
		service:      service,
		listener:     listener,
		config:       config,
		chatName:     chatName,
		historyLimit: historyLimit,
		bufferSize:   bufferSize,
	}
}

// Run accepts SSH connections until ctx is canceled. Each connection gets its
// own goroutine; a single misbehaving client never stops the accept loop.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	s.log.Info("SSH front end listening", "addr", s.listener.Addr().String())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	// Slow-loris protection on the handshake only; the session itself is
	// long-lived.
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	serverConn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		s.log.Debug("SSH handshake failed", "remote", conn.RemoteAddr().String(), "error", err)
		_ = conn.Close()
		return
	}
	_ = conn.SetDeadline(time.Time{})
	defer serverConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			s.log.Debug("channel accept failed", "error", err)
			continue
		}
		go acknowledgeRequests(requests)
		go s.serveSession(ctx, channel)
	}
}

// acknowledgeRequests accepts the requests a terminal client needs answered
// (pty, shell, env, resize) and declines the rest. Reply is a no-op when the
// client did not ask for one.
func acknowledgeRequests(requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "pty-req", "shell", "env", "window-change":
			_ = req.Reply(true, nil)
		default:
			_ = req.Reply(false, nil)
		}
	}
}
