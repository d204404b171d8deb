package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/advisor"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// FallbackReply is sent by the main chat route when the provider fails.
const FallbackReply = "Unable to fetch response right now. Please try again later."

// maxChatBody bounds chat request bodies.
const maxChatBody = 64 << 10

// ChatRequest is the body of the chat routes.
type ChatRequest struct {
	Message  string           `json:"message"`
	Language string           `json:"language,omitempty"`
	Location *models.Location `json:"location,omitempty"`
}

// ChatResponse is returned by POST /api/chat/message.
type ChatResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}

// ChatV2Response is returned by POST /api/v2/chat/message.
type ChatV2Response struct {
	Success  bool          `json:"success"`
	Response advisor.Reply `json:"response"`
}

// MobileChatResponse is returned by POST /api/mobile/chat.
type MobileChatResponse struct {
	Success  bool   `json:"success"`
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
}

// Chat handlers

// ChatMessage handles POST /api/chat/message. Provider failures are hidden
// behind FallbackReply with status 200.
func (h *Handler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChat(w, r)
	if !ok {
		return
	}

	reply, err := h.chat.Respond(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Str("provider", h.chat.ProviderName()).Msg("Chat provider failed, sending fallback reply")
		h.writeJSON(w, http.StatusOK, ChatResponse{Success: true, Reply: FallbackReply})
		return
	}

	h.writeJSON(w, http.StatusOK, ChatResponse{Success: true, Reply: reply.Content})
}

// ChatMessageV2 handles POST /api/v2/chat/message and returns the reply with
// the context it was built from. Provider failures are reported as 502.
func (h *Handler) ChatMessageV2(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChat(w, r)
	if !ok {
		return
	}

	reply, err := h.chat.Respond(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Str("provider", h.chat.ProviderName()).Msg("Chat provider failed")
		h.WriteAPIError(w, ErrProviderUnavailable)
		return
	}

	h.writeJSON(w, http.StatusOK, ChatV2Response{Success: true, Response: reply})
}

// MobileChat handles POST /api/mobile/chat. Unlike the main chat route it
// answers through a provider chain and reports which provider replied.
func (h *Handler) MobileChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChat(w, r)
	if !ok {
		return
	}

	reply, err := h.mobile.Respond(r.Context(), req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Every mobile chat provider failed, sending fallback reply")
		h.writeJSON(w, http.StatusOK, MobileChatResponse{Success: true, Reply: FallbackReply, Provider: "fallback"})
		return
	}

	h.writeJSON(w, http.StatusOK, MobileChatResponse{
		Success:  true,
		Reply:    reply.Content,
		Provider: reply.Metadata.Provider,
	})
}

// decodeChat reads and validates a chat body, writing a 400 on failure.
func (h *Handler) decodeChat(w http.ResponseWriter, r *http.Request) (advisor.Request, bool) {
	var body ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.Is(err, io.EOF) {
			h.WriteAPIError(w, ErrMessageRequired)
			return advisor.Request{}, false
		}
		if errors.As(err, &maxErr) {
			h.WriteAPIError(w, NewValidationError("Message is too long"))
			return advisor.Request{}, false
		}
		h.WriteAPIError(w, ErrInvalidJSON)
		return advisor.Request{}, false
	}
	if strings.TrimSpace(body.Message) == "" {
		h.WriteAPIError(w, ErrMessageRequired)
		return advisor.Request{}, false
	}
	if body.Location != nil && !body.Location.Valid() {
		body.Location = nil
	}

	return advisor.Request{
		Message:  strings.TrimSpace(body.Message),
		Language: models.ParseLanguage(body.Language),
		Location: body.Location,
	}, true
}
