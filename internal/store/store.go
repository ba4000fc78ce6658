package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/eldtechnologies/contextstack/internal/models"
)

// DataStore defines the interface for persistent storage of messages, tasks and docs.
// Both PostgresStore and SQLiteStore implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Message operations
	InsertMessages(ctx context.Context, msgs []models.Message) (int, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error)
	GetMessage(ctx context.Context, channelID, messageID string) (*models.Message, error)
	ListChannels(ctx context.Context, limit int) ([]models.Channel, error)

	// Task operations
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	ListTasks(ctx context.Context, channelID string) ([]models.Task, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (*models.Task, error)

	// Doc operations
	CreateDoc(ctx context.Context, doc *models.Doc) (*models.Doc, error)
	ListDocs(ctx context.Context, limit int) ([]models.Doc, error)
}

// encodeAttachments serializes attachments for a text/JSONB column.
func encodeAttachments(a []models.Attachment) (string, error) {
	if a == nil {
		a = []models.Attachment{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeAttachments is lenient: a corrupt column yields no attachments.
func decodeAttachments(raw []byte) []models.Attachment {
	out := []models.Attachment{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []models.Attachment{}
	}
	return out
}

// prepareMessage fills in the ID and timestamp for messages ingested without them.
func prepareMessage(msg *models.Message) {
	if msg.MessageID == "" {
		msg.MessageID = ulid.Make().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if msg.Attachments == nil {
		msg.Attachments = []models.Attachment{}
	}
}
