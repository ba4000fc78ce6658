package handlers

import (
	"net/http"
	"time"
)

// ChannelInfo represents a channel in the list response.
type ChannelInfo struct {
	ID           string `json:"id"`
	MessageCount int64  `json:"messageCount"`
	LastActive   string `json:"lastActive"`
}

// ChannelListResponse represents the channels list response.
type ChannelListResponse struct {
	Channels []ChannelInfo `json:"channels"`
	Total    int           `json:"total"`
}

// ListChannels handles listing channels by most recent activity.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 100)

	channels, err := h.store.ListChannels(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list channels")
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	infos := make([]ChannelInfo, len(channels))
	for i, ch := range channels {
		infos[i] = ChannelInfo{
			ID:           ch.ID,
			MessageCount: ch.MessageCount,
			LastActive:   ch.LastActiveAt.UTC().Format(time.RFC3339),
		}
	}

	h.JSON(w, http.StatusOK, ChannelListResponse{
		Channels: infos,
		Total:    len(infos),
	})
}
