package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/samber/lo"

	"nojschat/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type messageResponse struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type pollResponse struct {
	Messages []messageResponse `json:"messages"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Handle    string `json:"handle"`
}

func toMessageResponse(message domain.Message) messageResponse {
	return messageResponse{
		ID:        message.ID.String(),
		Seq:       message.Seq,
		Author:    message.Author,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}

func toPollResponse(messages []domain.Message) pollResponse {
	return pollResponse{
		Messages: lo.Map(messages, func(item domain.Message, _ int) messageResponse {
			return toMessageResponse(item)
		}),
	}
}

func toSessionResponse(session *domain.Session) sessionResponse {
	return sessionResponse{
		SessionID: session.ID.String(),
		Handle:    session.Identity().Handle,
	}
}

type joinPage struct {
	ChatName string
	Error    string
}

type chatLine struct {
	Time    string
	Author  string
	Content string
}

type chatPage struct {
	ChatName string
	Handle   string
	Cursor   uint64
	Messages []chatLine
}

func (s *Server) renderJoin(w http.ResponseWriter, status int, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pages.ExecuteTemplate(w, "join.html", joinPage{
		ChatName: s.chatName,
		Error:    errMsg,
	})
}

func (s *Server) renderChat(w http.ResponseWriter, session *domain.Session,
	messages []domain.Message, cursor uint64) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pages.ExecuteTemplate(w, "chat.html", chatPage{
		ChatName: s.chatName,
		Handle:   session.Identity().Handle,
		Cursor:   cursor,
		Messages: lo.Map(messages, func(item domain.Message, _ int) chatLine {
			return chatLine{
				Time:    item.CreatedAt.Format("15:04"),
				Author:  item.Author,
				Content: item.Content,
			}
		}),
	})
}
