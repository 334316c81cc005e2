package sshd

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"nojschat/domain"
	"nojschat/domain/event"
	"nojschat/services"
)

func TestParseCommand(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		line string
		name string
		arg  string
	}{
		{"/quit", "quit", ""},
		{"/QUIT", "quit", ""},
		{"/rename bob", "rename", "bob"},
		{"/rename   new   name", "rename", "new name"},
		{"/help extra args", "help", "extra args"},
		{"/", "", ""},
	}
	for _, tt := range tests {
		name, arg := parseCommand(tt.line)
		req.Equal(tt.name, name, tt.line)
		req.Equal(tt.arg, arg, tt.line)
	}
}

func TestRenderMessage(t *testing.T) {
	req := require.New(t)

	out := renderMessage(domain.Message{
		ID:        uuid.New(),
		Seq:       3,
		Author:    "alice",
		Content:   "hello there",
		CreatedAt: time.Date(2026, 8, 28, 15, 4, 0, 0, time.UTC),
	})

	req.True(strings.HasPrefix(out, "[15:04] "))
	req.Contains(out, "alice")
	req.Contains(out, "hello there")
	req.True(strings.HasSuffix(out, "\r\n"))
}

func TestRenderEvent(t *testing.T) {
	req := require.New(t)

	joined := renderEvent(event.ParticipantJoined{Handle: "bob", At: time.Now()})
	req.Contains(joined, "* bob joined")

	left := renderEvent(event.ParticipantLeft{Handle: "bob", At: time.Now()})
	req.Contains(left, "* bob left")

	posted := renderEvent(event.MessagePosted{Message: domain.Message{
		Author:    "bob",
		Content:   "hi",
		CreatedAt: time.Now(),
	}})
	req.Contains(posted, "hi")
}

// historyService serves a canned history and nothing else.
type historyService struct {
	services.IChatService
	history []domain.Message
}

func (s *historyService) History(int) ([]domain.Message, error) {
	return s.history, nil
}

func TestReplayHistory_ReturnsWatermark(t *testing.T) {
	req := require.New(t)

	history := []domain.Message{
		{ID: uuid.New(), Seq: 1, Author: "alice", Content: "first", CreatedAt: time.Now()},
		{ID: uuid.New(), Seq: 2, Author: "bob", Content: "second", CreatedAt: time.Now()},
	}
	server := &Server{
		log:          slog.Default(),
		service:      &historyService{history: history},
		historyLimit: 50,
	}

	var out bytes.Buffer
	terminal := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{strings.NewReader(""), &out}, "> ")

	replayed, err := server.replayHistory(terminal)
	req.NoError(err)
	req.Equal(uint64(2), replayed)
	req.Contains(out.String(), "first")
	req.Contains(out.String(), "second")

	empty := &Server{log: slog.Default(), service: &historyService{}, historyLimit: 50}
	replayed, err = empty.replayHistory(terminal)
	req.NoError(err)
	req.Zero(replayed)
}

// A message published between subscribe and replay arrives twice: once in
// history, once on the sink. The watermark keeps it off the live stream.
func TestAlreadyReplayed_SuppressesDuplicates(t *testing.T) {
	req := require.New(t)

	replayedMsg := event.MessagePosted{Message: domain.Message{Seq: 2}}
	liveMsg := event.MessagePosted{Message: domain.Message{Seq: 3}}
	presence := event.ParticipantJoined{Handle: "carol", At: time.Now()}

	req.True(alreadyReplayed(replayedMsg, 2))
	req.False(alreadyReplayed(liveMsg, 2))
	req.False(alreadyReplayed(presence, 2))
	req.False(alreadyReplayed(replayedMsg, 0))
}

func TestInterruptReader(t *testing.T) {
	req := require.New(t)

	r := interruptReader{strings.NewReader("hello\x03ignored")}
	buf := make([]byte, 32)

	n, err := r.Read(buf)
	req.ErrorIs(err, io.EOF)
	req.Equal("hello", string(buf[:n]))
}

func TestGenerateHostKey(t *testing.T) {
	req := require.New(t)

	first, err := GenerateHostKey()
	req.NoError(err)
	req.Equal("ssh-ed25519", first.PublicKey().Type())

	second, err := GenerateHostKey()
	req.NoError(err)
	req.NotEqual(first.PublicKey().Marshal(), second.PublicKey().Marshal())
}
