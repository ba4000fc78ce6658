package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/eldtechnologies/contextstack/internal/aggregator"
	"github.com/eldtechnologies/contextstack/internal/models"
)

// GetContext handles POST /api/context.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	var req models.ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.ChannelID = strings.TrimSpace(req.ChannelID)
	req.MessageID = strings.TrimSpace(req.MessageID)
	if req.ChannelID == "" || req.MessageID == "" {
		h.Error(w, http.StatusBadRequest, "channelId and messageId are required")
		return
	}
	if req.Limit > models.MaxContextLimit {
		h.Error(w, http.StatusBadRequest, fmt.Sprintf("limit must be at most %d", models.MaxContextLimit))
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}

	resp, err := h.contexts.GetContext(r.Context(), req)
	switch {
	case err == nil:
		h.JSON(w, http.StatusOK, resp)
	case errors.Is(err, aggregator.ErrNotFound):
		h.Error(w, http.StatusNotFound, "message not found")
	case errors.Is(err, aggregator.ErrRepositoryUnavailable):
		h.logger.Error().Err(err).
			Str("channel_id", req.ChannelID).
			Str("message_id", req.MessageID).
			Msg("context aggregation failed")
		h.Error(w, http.StatusServiceUnavailable, "message repository unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn().Err(err).
			Str("channel_id", req.ChannelID).
			Str("message_id", req.MessageID).
			Msg("context request abandoned")
		h.Error(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error().Err(err).Msg("unexpected context aggregation error")
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}
