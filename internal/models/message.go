package models

import "time"

// Attachment is a reference to a file or link posted with a message.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Message represents a chat message stored in the message repository.
type Message struct {
	ChannelID   string       `json:"channelId"`
	MessageID   string       `json:"messageId"`
	AuthorName  string       `json:"authorName"`
	Text        string       `json:"text"`
	CreatedAt   time.Time    `json:"createdAt"`
	Attachments []Attachment `json:"attachments"`
	Seq         int64        `json:"-"` // repository insertion order, breaks CreatedAt ties
}
