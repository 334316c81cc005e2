package sshd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"nojschat/domain"
	"nojschat/domain/event"
	"nojschat/errors"
	"nojschat/sink"
)

const (
	clearScreen  = "\x1b[2J\x1b[H"
	maxJoinTries = 5
)

func init() {
	// Output goes to a remote pty, not os.Stdout, so the library's local
	// terminal detection would otherwise strip the escape codes.
	color.ForceOpenColor()
}

// interruptReader turns a raw Ctrl-C byte (0x03) into EOF. Terminal clients
// send it on the channel instead of a signal, and the line editor would
// otherwise swallow it.
type interruptReader struct {
	r io.Reader
}

func (c interruptReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == 0x03 {
			return i, io.EOF
		}
	}
	return n, err
}

// serveSession drives one interactive participant: handle prompt, history
// replay, then a line loop with live push until the client disconnects.
func (s *Server) serveSession(ctx context.Context, channel ssh.Channel) {
	defer channel.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	terminal := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{interruptReader{channel}, channel}, "> ")
	fmt.Fprint(terminal, clearScreen)
	fmt.Fprintf(terminal, "%s\r\n", color.Bold.Render(s.chatName))

	session, err := s.promptJoin(terminal)
	if err != nil {
		return
	}
	defer s.service.Leave(session.ID)

	queue := sink.NewSessionSink(s.bufferSize)
	if err := s.service.Subscribe(session.ID, queue); err != nil {
		fmt.Fprintf(terminal, "cannot subscribe: %v\r\n", err)
		return
	}

	// The subscription opens before the replay reads, so a message landing in
	// between is both replayed and queued; replayed is the dedup watermark.
	replayed, err := s.replayHistory(terminal)
	if err != nil {
		s.log.Error("history replay failed", "session_id", session.ID, "error", err)
	}
	fmt.Fprintf(terminal, "Welcome, %s! Type /help for commands.\r\n",
		color.Green.Render(session.Identity().Handle))

	// Push loop: drains the session queue onto the terminal. Terminal writes
	// are internally locked, so it can run beside the read loop.
	go func() {
		for {
			select {
			case <-sessionCtx.Done():
				return
			case evt := <-queue.Events:
				if alreadyReplayed(evt, replayed) {
					continue
				}
				fmt.Fprint(terminal, renderEvent(evt))
			}
		}
	}()

	s.readLoop(sessionCtx, terminal, session)
}

// promptJoin asks for a handle until one is accepted or the client gives up.
func (s *Server) promptJoin(terminal *term.Terminal) (*domain.Session, error) {
	for try := 0; try < maxJoinTries; try++ {
		terminal.SetPrompt("handle: ")
		line, err := terminal.ReadLine()
		if err != nil {
			return nil, err
		}

		session, err := s.service.Join(domain.TransportSSH, strings.TrimSpace(line))
		if err == nil {
			terminal.SetPrompt("> ")
			return session, nil
		}

		switch {
		case errors.IsConflict(err):
			fmt.Fprint(terminal, "that handle is taken by a connected user, pick another\r\n")
		case errors.IsValidation(err):
			fmt.Fprint(terminal, "handles are 1-24 visible characters, no spaces\r\n")
		default:
			fmt.Fprintf(terminal, "cannot join right now: %v\r\n", err)
			return nil, err
		}
	}
	return nil, io.EOF
}

// replayHistory prints recent messages and returns the highest sequence it
// showed, zero when the room is empty.
func (s *Server) replayHistory(terminal *term.Terminal) (uint64, error) {
	history, err := s.service.History(s.historyLimit)
	if err != nil {
		return 0, err
	}
	var last uint64
	for _, message := range history {
		fmt.Fprint(terminal, renderMessage(message))
		last = message.Seq
	}
	return last, nil
}

// readLoop turns terminal lines into publishes and commands. Any read error
// (disconnect, Ctrl-D) ends the session; teardown is handled by the caller's
// defers and is idempotent.
func (s *Server) readLoop(ctx context.Context, terminal *term.Terminal, session *domain.Session) {
	for {
		line, err := terminal.ReadLine()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.runCommand(terminal, session, line); quit {
				return
			}
			continue
		}

		if _, err := s.service.Post(ctx, session.ID, line); err != nil {
			switch {
			case errors.IsValidation(err):
				fmt.Fprintf(terminal, "not sent: %v\r\n", err)
			case errors.Is(err, errors.ErrSessionClosed), errors.Is(err, errors.ErrUnknownSession):
				fmt.Fprint(terminal, "disconnected\r\n")
				return
			default:
				fmt.Fprint(terminal, "message was not sent, try again\r\n")
			}
		}
	}
}

// runCommand executes one slash command. Reports whether the session should
// end.
func (s *Server) runCommand(terminal *term.Terminal, session *domain.Session, line string) bool {
	name, arg := parseCommand(line)
	switch name {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprint(terminal, helpText())
	case "who":
		for _, active := range s.service.Active() {
			fmt.Fprintf(terminal, "%s (%s)\r\n", active.Identity().Handle, active.Transport)
		}
	case "rename":
		renamed, err := s.service.Rename(session.ID, arg)
		switch {
		case err == nil:
			fmt.Fprintf(terminal, "you are now %s\r\n", color.Green.Render(renamed.Identity().Handle))
		case errors.IsConflict(err):
			fmt.Fprint(terminal, "that handle is taken\r\n")
		default:
			fmt.Fprintf(terminal, "rename failed: %v\r\n", err)
		}
	default:
		fmt.Fprintf(terminal, "unknown command /%s, try /help\r\n", name)
	}
	return false
}

// parseCommand splits "/rename bob" into ("rename", "bob").
func parseCommand(line string) (name, arg string) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

func helpText() string {
	return "Commands:\r\n" +
		"  /help          this help\r\n" +
		"  /who           list connected users\r\n" +
		"  /rename NAME   change your handle\r\n" +
		"  /quit          exit chat\r\n"
}

// alreadyReplayed reports whether a pushed message was covered by the history
// replay. Presence events carry no sequence and always pass.
func alreadyReplayed(e event.DomainEvent, replayed uint64) bool {
	posted, ok := e.(event.MessagePosted)
	return ok && posted.Message.Seq <= replayed
}

func renderEvent(e event.DomainEvent) string {
	switch evt := e.(type) {
	case event.MessagePosted:
		return renderMessage(evt.Message)
	case event.ParticipantJoined:
		return color.Yellow.Render(fmt.Sprintf("* %s joined", evt.Handle)) + "\r\n"
	case event.ParticipantLeft:
		return color.Yellow.Render(fmt.Sprintf("* %s left", evt.Handle)) + "\r\n"
	default:
		return ""
	}
}

func renderMessage(message domain.Message) string {
	return fmt.Sprintf("[%s] %s: %s\r\n",
		message.CreatedAt.Format("15:04"),
		color.Cyan.Render(message.Author),
		message.Content)
}
