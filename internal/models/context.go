package models

import "time"

// DefaultContextLimit is the number of recent messages returned when a
// request does not specify one.
const DefaultContextLimit = 8

// MaxContextLimit is the largest limit the HTTP API accepts.
const MaxContextLimit = 50

// Action is a candidate action item extracted from message text.
type Action struct {
	Text     string  `json:"text"`
	Owner    string  `json:"owner,omitempty"`
	Deadline string  `json:"deadline,omitempty"`
	Score    float64 `json:"score"`
}

// DocMatch is a stored document ranked by relevance to message text.
type DocMatch struct {
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Excerpt string  `json:"excerpt,omitempty"`
	Score   float64 `json:"score"`
}

// ContextRequest addresses the message to build context around.
type ContextRequest struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Limit     int    `json:"limit,omitempty"`
}

// Normalize applies the default to a missing or non-positive Limit.
func (r ContextRequest) Normalize() ContextRequest {
	if r.Limit <= 0 {
		r.Limit = DefaultContextLimit
	}
	return r
}

// ContextMeta carries generation details for a ContextResponse.
type ContextMeta struct {
	GeneratedAt time.Time `json:"generatedAt"`
	LatencyMs   int64     `json:"latencyMs"`
}

// ContextResponse is the aggregated context for one message. It is the
// unit that gets cached.
type ContextResponse struct {
	Messages       []Message   `json:"messages"`
	Actions        []Action    `json:"actions"`
	RelevantDocs   []DocMatch  `json:"relevantDocs"`
	SuggestedReply string      `json:"suggestedReply"`
	Meta           ContextMeta `json:"meta"`
	FromCache      bool        `json:"fromCache"`
}
