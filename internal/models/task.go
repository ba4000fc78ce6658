package models

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskDone       = "done"
)

// Task is a tracked piece of work tied to a channel.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	ChannelID    string     `json:"channelId"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	AssigneeName string     `json:"assigneeName,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}
