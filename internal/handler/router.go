package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/persona-chat/internal/handler/chat"
	"github.com/zhouzirui/persona-chat/internal/handler/page"
	personaHandler "github.com/zhouzirui/persona-chat/internal/handler/persona"
	"github.com/zhouzirui/persona-chat/internal/handler/socket"
	"github.com/zhouzirui/persona-chat/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/persona-chat/internal/middleware"
	"github.com/zhouzirui/persona-chat/internal/model/persona"
	chatService "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
	"github.com/zhouzirui/persona-chat/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(p persona.Persona, chatSvc *chatService.Service, convoSvc *conversation.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	pageHandler := page.New(p, chatSvc)
	personaH := personaHandler.New(p)
	chatHandler := chat.New(chatSvc, convoSvc)
	streamHandler := stream.New(chatSvc, convoSvc)
	wsHandler := socket.NewWebSocketHandler(chatSvc, convoSvc)

	pageHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		personaH.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			// 空输入不触发任何状态变化
			if strings.TrimSpace(userMessage) == "" {
				utils.RespondNoContent(w)
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
			}
		})

		wsHandler.RegisterWebSocketRoutes(api)
	})

	return r
}
