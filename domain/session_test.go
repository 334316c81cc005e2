package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nojschat/errors"
)

func TestSession_LifecycleTransitions(t *testing.T) {
	req := require.New(t)
	session := NewSession(TransportSSH, Identity{Handle: "alice"})

	req.Equal(StateJoined, session.State())

	// First subscription activates, repeats do not.
	req.True(session.Activate())
	req.False(session.Activate())
	req.Equal(StateActive, session.State())

	// Close is terminal and idempotent.
	req.True(session.Close())
	req.False(session.Close())
	req.True(session.Closed())

	// No transition out of Closed.
	req.False(session.Activate())
	req.Equal(StateClosed, session.State())
}

func TestSession_ObserveSeq_KeepsHighWaterMark(t *testing.T) {
	req := require.New(t)
	session := NewSession(TransportHTTP, Identity{Handle: "bob"})

	session.ObserveSeq(3)
	session.ObserveSeq(2)
	session.ObserveSeq(7)

	req.Equal(uint64(7), session.LastSeq())
}

func TestValidateHandle(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateHandle("alice"))
	req.NoError(ValidateHandle("Alice_99"))

	for _, handle := range []string{"", " ", "with space", "tab\tinside",
		"/command", "ctrl\x00", "123456789012345678901234_"} {
		req.ErrorIs(ValidateHandle(handle), errors.ErrInvalidHandle, "handle %q", handle)
	}
}

func TestValidateContent(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateContent("hello", 10))
	req.NoError(ValidateContent("tabs\tok", 10))

	req.ErrorIs(ValidateContent("", 10), errors.ErrEmptyContent)
	req.ErrorIs(ValidateContent("elevenchars", 10), errors.ErrContentTooLong)
	req.ErrorIs(ValidateContent("bell\x07", 10), errors.ErrInvalidContent)
}

func TestNormalizeHandle(t *testing.T) {
	require.Equal(t, "alice", NormalizeHandle("  ALICE "))
}
