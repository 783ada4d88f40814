package page

import (
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/persona-chat/internal/model/persona"
	chatService "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/pkg/utils"
)

// SessionCookie carries the session id between page loads.
const SessionCookie = "persona_chat_session"

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Handler 渲染单页聊天界面
type Handler struct {
	persona persona.Persona
	chatSvc *chatService.Service
}

// New 创建页面处理器
func New(p persona.Persona, chatSvc *chatService.Service) *Handler {
	return &Handler{persona: p, chatSvc: chatSvc}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

type messageView struct {
	Role string
	HTML template.HTML
}

type pageView struct {
	Title       string
	Placeholder string
	SessionID   string
	Messages    []messageView
}

// handleIndex 复用 cookie 中的会话，或为新访客创建会话，然后渲染历史消息
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		sessionID = cookie.Value
	}

	session, created, err := h.chatSvc.EnsureSession(r.Context(), sessionID)
	if err != nil {
		log.Printf("[page] failed to load session: %v", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    session.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	visible := session.Visible()
	view := pageView{
		Title:       h.persona.Title(),
		Placeholder: h.persona.Placeholder(),
		SessionID:   session.ID,
		Messages:    make([]messageView, 0, len(visible)),
	}
	for _, msg := range visible {
		view.Messages = append(view.Messages, messageView{
			Role: string(msg.Role),
			HTML: utils.RenderMarkdown(msg.Content),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, view); err != nil {
		log.Printf("[page] render failed: %v", err)
	}
}
