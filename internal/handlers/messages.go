package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/contextstack/internal/models"
)

const (
	maxIngestMessages = 1000
	maxMessageText    = 8000
)

// MessageListResponse represents the channel history response.
type MessageListResponse struct {
	ChannelID string           `json:"channelId"`
	Messages  []models.Message `json:"messages"`
}

// IngestMessagesRequest represents a bulk message ingest.
type IngestMessagesRequest struct {
	Messages []models.Message `json:"messages"`
}

// IngestResponse reports how many of the submitted items were stored.
type IngestResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
}

// ListMessages handles GET /api/messages/{channelId}, newest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(chi.URLParam(r, "channelId"))
	if channelID == "" {
		h.Error(w, http.StatusBadRequest, "channelId is required")
		return
	}

	limit := queryLimit(r, 20, 200)

	msgs, err := h.store.RecentMessages(r.Context(), channelID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to list messages")
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusOK, MessageListResponse{
		ChannelID: channelID,
		Messages:  msgs,
	})
}

// IngestMessages handles POST /api/messages/ingest.
func (h *Handler) IngestMessages(w http.ResponseWriter, r *http.Request) {
	var req IngestMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.Messages) == 0 {
		h.Error(w, http.StatusBadRequest, "messages is required")
		return
	}
	if len(req.Messages) > maxIngestMessages {
		h.Error(w, http.StatusBadRequest, "too many messages (max 1000)")
		return
	}

	for i := range req.Messages {
		msg := &req.Messages[i]
		msg.ChannelID = strings.TrimSpace(msg.ChannelID)
		msg.MessageID = strings.TrimSpace(msg.MessageID)
		msg.AuthorName = sanitizeName(msg.AuthorName)
		if msg.ChannelID == "" {
			h.Error(w, http.StatusBadRequest, "every message needs a channelId")
			return
		}
		if strings.TrimSpace(msg.Text) == "" {
			h.Error(w, http.StatusBadRequest, "every message needs text")
			return
		}
		if len(msg.Text) > maxMessageText {
			h.Error(w, http.StatusBadRequest, "message text too long (max 8000 bytes)")
			return
		}
	}

	inserted, err := h.store.InsertMessages(r.Context(), req.Messages)
	if err != nil {
		h.logger.Error().Err(err).Int("count", len(req.Messages)).Msg("failed to ingest messages")
		h.Error(w, http.StatusInternalServerError, "failed to store messages")
		return
	}

	h.JSON(w, http.StatusCreated, IngestResponse{
		Received: len(req.Messages),
		Inserted: inserted,
	})
}
