package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
	chatService "github.com/zhouzirui/persona-chat/internal/service/chat"
	"github.com/zhouzirui/persona-chat/internal/service/conversation"
	"github.com/zhouzirui/persona-chat/pkg/utils"
)

// Handler delivers one chat turn as a short Server-Sent Events stream:
// the user message first, then an optional notice, then the whole reply.
type Handler struct {
	chatSvc  *chatService.Service
	convoSvc *conversation.Service
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, convoSvc *conversation.Service) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		convoSvc: convoSvc,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string        `json:"event"`
	SessionID string        `json:"sessionId,omitempty"`
	Message   *chat.Message `json:"message,omitempty"`
	HTML      string        `json:"html,omitempty"`
	Source    string        `json:"source,omitempty"`
	Notice    string        `json:"notice,omitempty"`
	Finished  bool          `json:"finished,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// HandleStreamRequest runs a turn for sessionID and streams its progress.
// Errors detected before the stream opens are written as plain JSON.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return nil
		}
		return err
	}
	if h.convoSvc.State(sessionID) == conversation.StateResponding {
		utils.RespondError(w, http.StatusConflict, conversation.ErrBusy.Error())
		return nil
	}

	utils.SetupSSEHeaders(w)

	turn, err := h.convoSvc.Submit(ctx, sessionID, userMessage, func(msg chat.Message) {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "user",
			SessionID: sessionID,
			Message:   &msg,
			HTML:      string(utils.RenderMarkdown(msg.Content)),
		})
	})
	if err != nil {
		log.Printf("[stream] turn failed for session=%s: %v", sessionID, err)
		h.sendSSEError(w, flusher, err.Error())
		return nil
	}

	if turn.Notice != "" {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "notice",
			SessionID: sessionID,
			Notice:    turn.Notice,
		})
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Message:   &turn.Reply,
		HTML:      string(utils.RenderMarkdown(turn.Reply.Content)),
		Source:    string(turn.Source),
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed turn for session=%s, source=%s", sessionID, turn.Source)
	return nil
}

// sendSSE sends a Server-Sent Event
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEEvent(w, flusher, response.Event, response)
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
