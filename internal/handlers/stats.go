package handlers

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"time"
)

// statsChannelScan bounds how many channels the stats endpoint aggregates.
const statsChannelScan = 1000

// ChannelStats represents stats for a single channel.
type ChannelStats struct {
	ID           string `json:"id"`
	MessageCount int64  `json:"messageCount"`
}

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalChannels int64          `json:"totalChannels"`
	TotalMessages int64          `json:"totalMessages"`
	LastActivity  string         `json:"lastActivity"`
	TopChannels   []ChannelStats `json:"topChannels"`
}

// Stats returns message store statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.ListChannels(r.Context(), statsChannelScan)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load channel stats")
		h.Error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	var (
		totalMessages int64
		lastActive    time.Time
	)
	top := make([]ChannelStats, 0, len(channels))
	for _, ch := range channels {
		totalMessages += ch.MessageCount
		if ch.LastActiveAt.After(lastActive) {
			lastActive = ch.LastActiveAt
		}
		top = append(top, ChannelStats{ID: ch.ID, MessageCount: ch.MessageCount})
	}

	slices.SortStableFunc(top, func(a, b ChannelStats) int {
		return cmp.Compare(b.MessageCount, a.MessageCount)
	})
	if len(top) > 5 {
		top = top[:5]
	}

	lastActivity := "no activity yet"
	if !lastActive.IsZero() {
		lastActivity = formatTimeAgo(time.Since(lastActive))
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalChannels: int64(len(channels)),
		TotalMessages: totalMessages,
		LastActivity:  lastActivity,
		TopChannels:   top,
	})
}

// formatTimeAgo formats an elapsed duration as a human-readable "X ago" string.
func formatTimeAgo(diff time.Duration) string {
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	default:
		return plural(int(diff.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
