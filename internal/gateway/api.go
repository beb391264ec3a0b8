// ABOUTME: REST handlers for conversations and messages
// ABOUTME: Wire format mirrors the web client: _id fields, enriched sender/participant info

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/connectify/connectify/internal/auth"
	"github.com/connectify/connectify/internal/conversation"
	"github.com/connectify/connectify/internal/identity"
	"github.com/connectify/connectify/internal/store"
)

// userRef is the embedded participant/sender shape used across responses.
type userRef struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

// conversationResponse is one entry of GET /api/conversations.
type conversationResponse struct {
	ID               string    `json:"_id"`
	Participants     []string  `json:"participants"`
	LastMessage      string    `json:"lastMessage"`
	LastMessageTime  time.Time `json:"lastMessageTime"`
	OtherParticipant userRef   `json:"otherParticipant"`
}

// messageResponse is the enriched message shape returned by the REST
// history endpoint and pushed over the websocket as receiveMessage.
type messageResponse struct {
	ID             string    `json:"_id"`
	ConversationID string    `json:"conversationId"`
	Sender         userRef   `json:"sender"`
	Receiver       string    `json:"receiver"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

// sendMessageRequest is the JSON body for POST /api/messages.
type sendMessageRequest struct {
	Receiver string `json:"receiver" validate:"required"`
	Text     string `json:"text" validate:"required"`
}

func toUserRef(info *identity.DisplayInfo) userRef {
	return userRef{
		ID:             info.ID,
		Name:           info.Name,
		ProfilePicture: info.ProfilePicture,
	}
}

func toMessageResponse(m *conversation.EnrichedMessage) messageResponse {
	return messageResponse{
		ID:             m.Message.ID,
		ConversationID: m.Message.ConversationID,
		Sender:         toUserRef(m.Sender),
		Receiver:       m.Message.ReceiverID,
		Text:           m.Message.Text,
		CreatedAt:      m.Message.CreatedAt,
	}
}

// handleListConversations handles GET /api/conversations.
// Returns the caller's conversations, most recently active first, each
// with the other participant's display info attached.
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		g.sendJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	summaries, err := g.conversations.ListConversations(r.Context(), userID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	response := lo.Map(summaries, func(s *conversation.Summary, _ int) conversationResponse {
		return conversationResponse{
			ID:               s.Conversation.ID,
			Participants:     s.Conversation.Participants(),
			LastMessage:      s.Conversation.LastMessage,
			LastMessageTime:  s.Conversation.LastMessageTime,
			OtherParticipant: toUserRef(s.OtherParticipant),
		}
	})

	writeJSON(w, http.StatusOK, response)
}

// handleConversationMessages handles GET /api/conversations/{id}/messages.
// Messages come back in ascending creation order. An unknown
// conversation id yields an empty array, not a 404. Membership is not
// checked: any authenticated user who knows a conversation id can read
// it, which matches the behavior the web client was built against.
func (g *Gateway) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "conversation id is required")
		return
	}

	msgs, err := g.conversations.ListMessages(r.Context(), conversationID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	response := lo.Map(msgs, func(m *conversation.EnrichedMessage, _ int) messageResponse {
		return toMessageResponse(m)
	})

	writeJSON(w, http.StatusOK, response)
}

// handleSendMessage handles POST /api/messages.
// The sender is the authenticated user; the conversation is created on
// first contact. Responds with the persisted, enriched message.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		g.sendJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "receiver and text are required")
		return
	}

	result, err := g.conversations.SendMessage(r.Context(), userID, req.Receiver, req.Text)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}

	g.metrics.messagesSent.Inc()
	writeJSON(w, http.StatusOK, toMessageResponse(result.Message))
}

// writeStoreError maps service/store errors onto HTTP statuses.
func (g *Gateway) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "not found")
	default:
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "server error")
	}
}

// sendJSONError writes a JSON error response of the form {"msg": ...}.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
