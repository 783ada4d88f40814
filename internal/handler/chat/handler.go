package chat

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
	chatService "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
	"github.com/zhouzirui/persona-chat/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	convoSvc *conversation.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, convoSvc *conversation.Service) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		convoSvc: convoSvc,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Delete("/session/{sessionID}", h.handleDeleteSession)
	r.Get("/session/{sessionID}/messages", h.handleListMessages)
	r.Post("/session/{sessionID}/messages", h.handleSubmitMessage)
}

type sessionResponse struct {
	ID       string         `json:"id"`
	State    string         `json:"state"`
	Messages []chat.Message `json:"messages"`
}

type turnResponse struct {
	*conversation.Turn
	UserHTML  template.HTML `json:"userHtml"`
	ReplyHTML template.HTML `json:"replyHtml"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		log.Printf("[chat] create session failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{
		ID:       session.ID,
		State:    string(conversation.StateIdle),
		Messages: session.Visible(),
	})
}

// handleListMessages 返回可见的会话记录（不含系统提示）
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{
		ID:       sessionID,
		State:    string(h.convoSvc.State(sessionID)),
		Messages: messages,
	})
}

// handleSubmitMessage 提交一轮对话并返回回复
func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.convoSvc.Submit(r.Context(), sessionID, payload.Content, nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turnResponse{
		Turn:      turn,
		UserHTML:  utils.RenderMarkdown(turn.User.Content),
		ReplyHTML: utils.RenderMarkdown(turn.Reply.Content),
	})
}

// handleDeleteSession 结束会话
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondNoContent(w)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		utils.RespondNoContent(w)
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrSessionRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrBusy), errors.Is(err, chatService.ErrVersionConflict):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[chat] request failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
