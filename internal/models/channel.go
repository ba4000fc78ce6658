package models

import "time"

// Channel summarizes a channel's stored history.
type Channel struct {
	ID           string    `json:"id"`
	MessageCount int64     `json:"messageCount"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}
