package socket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
	chatservice "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
	"github.com/zhouzirui/persona-chat/pkg/utils"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultPingInterval = 25 * time.Second
)

// WebSocketHandler WebSocket聊天处理器。每个连接按顺序处理消息，同一时间只有一轮对话。
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	convoSvc *conversation.Service
	upgrader websocket.Upgrader

	// readTimeout 只约束空闲连接；对话进行期间不计时
	readTimeout  time.Duration
	pingInterval time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, convoSvc *conversation.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:  chatSvc,
		convoSvc: convoSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  defaultReadTimeout,
		pingInterval: defaultPingInterval,
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type messagePayload struct {
	Message chat.Message `json:"message"`
	HTML    string       `json:"html"`
	Source  string       `json:"source,omitempty"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.armReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		h.armReadDeadline(conn)
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, sessionID, "connected", map[string]any{
		"state": h.convoSvc.State(sessionID),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		h.armReadDeadline(conn)

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, sessionID, "session mismatch")
			continue
		}

		switch msg.Type {
		case "message":
			// 等待模型回复时没有人读取连接，pong 无法刷新截止时间
			conn.SetReadDeadline(time.Time{})
			h.handleTurn(ctx, conn, sessionID, msg.Content)
			h.armReadDeadline(conn)
		case "ping":
			h.send(conn, sessionID, "pong", nil)
		default:
			h.sendError(conn, sessionID, "unknown message type: "+msg.Type)
		}
	}
}

func (h *WebSocketHandler) armReadDeadline(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
}

// handleTurn 执行一轮对话：先回显用户消息，再发送回复
func (h *WebSocketHandler) handleTurn(ctx context.Context, conn *websocket.Conn, sessionID, content string) {
	turn, err := h.convoSvc.Submit(ctx, sessionID, content, func(msg chat.Message) {
		h.send(conn, sessionID, "user", messagePayload{
			Message: msg,
			HTML:    string(utils.RenderMarkdown(msg.Content)),
		})
	})
	if errors.Is(err, conversation.ErrEmptyInput) {
		return
	}
	if err != nil {
		log.Printf("[websocket] turn failed for session=%s: %v", sessionID, err)
		h.sendError(conn, sessionID, err.Error())
		return
	}

	if turn.Notice != "" {
		h.send(conn, sessionID, "notice", map[string]string{"notice": turn.Notice})
	}
	h.send(conn, sessionID, "message", messagePayload{
		Message: turn.Reply,
		HTML:    string(utils.RenderMarkdown(turn.Reply.Content)),
		Source:  string(turn.Source),
	})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, sessionID, msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, sessionID, message string) {
	h.send(conn, sessionID, "error", map[string]string{"error": message})
}
