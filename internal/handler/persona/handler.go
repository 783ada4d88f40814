package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/persona-chat/internal/model/persona"
	"github.com/zhouzirui/persona-chat/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	persona persona.Persona
}

// New 创建persona处理器
func New(p persona.Persona) *Handler {
	return &Handler{
		persona: p,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleGetPersona)
}

type personaResponse struct {
	persona.Persona
	Title       string `json:"title"`
	Placeholder string `json:"placeholder"`
}

// handleGetPersona 返回当前角色的公开信息（不包含系统提示）
func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, personaResponse{
		Persona:     h.persona,
		Title:       h.persona.Title(),
		Placeholder: h.persona.Placeholder(),
	})
}
