package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"nojschat/domain"
	"nojschat/errors"
)

const sessionCookie = "session_id"

// session resolves the caller's session from the cookie. A stale cookie
// (expired or unknown session) counts as not joined.
func (s *Server) session(r *http.Request) (*domain.Session, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return nil, false
	}
	session, ok := s.service.Session(id)
	if !ok || session.Closed() {
		return nil, false
	}
	session.Touch()
	return session, true
}

// handleIndex renders the join form for visitors and the chat snapshot,
// including the cursor for subsequent polling, for joined sessions.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	session, joined := s.session(r)
	if !joined {
		s.renderJoin(w, http.StatusOK, "")
		return
	}

	messages, err := s.service.History(s.historyLimit)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	// The cursor must match what the page actually shows: a head sequence
	// read separately could run past the snapshot and make the next poll
	// skip a message. Polling an old cursor only re-delivers.
	var cursor uint64
	if len(messages) > 0 {
		cursor = messages[len(messages)-1].Seq
	}
	s.renderChat(w, session, messages, cursor)
}

// handlePoll blocks up to the configured timeout waiting for messages with a
// sequence above since, then answers with a JSON batch. An empty array after
// the timeout is the normal "nothing new" answer; the endpoint never blocks
// indefinitely.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	since, err := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "since must be a non-negative integer")
		return
	}
	if session, ok := s.session(r); ok {
		session.Touch()
	}

	messages, err := s.service.Poll(r.Context(), since, s.historyLimit, s.pollTimeout)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPollResponse(messages))
}

// handleJoin binds a handle to a new polling session and stores its id in a
// cookie, the no-JS analogue of the interactive handle prompt.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	handle, err := readJoinRequest(r)
	if err != nil {
		s.renderJoin(w, http.StatusBadRequest, "malformed request")
		return
	}

	session, err := s.service.Join(domain.TransportHTTP, strings.TrimSpace(handle))
	if err != nil {
		if wantsJSON(r) {
			s.renderError(w, r, err)
			return
		}
		s.renderJoin(w, statusFor(err), userMessage(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID.String(),
		Path:     "/",
		HttpOnly: true,
	})
	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, toSessionResponse(session))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handlePostMessage publishes one message and returns the durably committed
// result, or the validation/conflict error. The session comes from the
// cookie; a request naming a handle instead joins or reuses the session
// holding that handle, so a one-shot post needs no prior /join.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	handle, content, err := readMessageRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request")
		return
	}

	session, joined := s.session(r)
	if !joined && handle != "" {
		session, err = s.sessionForHandle(w, handle)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		joined = true
	}
	if !joined {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusUnauthorized, "join first")
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	message, err := s.service.Post(r.Context(), session.ID, content)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, toMessageResponse(message))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLeave closes the caller's session. Leaving twice is a no-op.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			s.service.Leave(id)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func readJoinRequest(r *http.Request) (string, error) {
	if isJSON(r) {
		var body struct {
			Handle string `json:"handle"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", err
		}
		return body.Handle, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("handle"), nil
}

// sessionForHandle joins the handle, or reuses the live session already
// holding it. Handles are first come, first served, so holding the handle is
// the whole claim to its session.
func (s *Server) sessionForHandle(w http.ResponseWriter, handle string) (*domain.Session, error) {
	handle = strings.TrimSpace(handle)
	session, err := s.service.Join(domain.TransportHTTP, handle)
	if err != nil {
		if !errors.IsConflict(err) {
			return nil, err
		}
		existing, ok := s.service.SessionByHandle(handle)
		if !ok {
			return nil, err
		}
		session = existing
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID.String(),
		Path:     "/",
		HttpOnly: true,
	})
	return session, nil
}

func readMessageRequest(r *http.Request) (handle, content string, err error) {
	if isJSON(r) {
		var body struct {
			Handle  string `json:"handle"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", err
		}
		return body.Handle, body.Content, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.PostFormValue("handle"), r.PostFormValue("content"), nil
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func wantsJSON(r *http.Request) bool {
	return isJSON(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}

// renderError maps a core error onto the transport: JSON body and status for
// API callers, a plain error page otherwise.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	if wantsJSON(r) || r.URL.Path == "/poll" {
		writeJSONError(w, status, userMessage(err))
		return
	}
	http.Error(w, userMessage(err), status)
}

func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, errors.ErrUnknownSession), errors.Is(err, errors.ErrSessionClosed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// userMessage keeps storage internals out of responses.
func userMessage(err error) string {
	if errors.IsStorage(err) {
		return "message was not sent, try again"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
