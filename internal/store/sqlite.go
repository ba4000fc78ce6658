package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/contextstack/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/contextstack.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/contextstack.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
// Message timestamps are unix nanoseconds so that ORDER BY is exact.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id TEXT NOT NULL,
		message_id TEXT NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		attachments TEXT NOT NULL DEFAULT '[]',
		UNIQUE (channel_id, message_id)
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		assignee_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'todo',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		due_date DATETIME
	);

	CREATE TABLE IF NOT EXISTS docs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT 'local',
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		excerpt TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages(channel_id, created_at DESC, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_tasks_channel ON tasks(channel_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertMessages stores messages, skipping duplicates. Returns the number inserted.
func (s *SQLiteStore) InsertMessages(ctx context.Context, msgs []models.Message) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for i := range msgs {
		msg := &msgs[i]
		prepareMessage(msg)

		attachments, err := encodeAttachments(msg.Attachments)
		if err != nil {
			return 0, err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO messages (channel_id, message_id, author_name, text, created_at, attachments)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ChannelID, msg.MessageID, msg.AuthorName, msg.Text, msg.CreatedAt.UnixNano(), attachments)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// RecentMessages returns the newest messages of a channel, newest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, channel_id, message_id, author_name, text, created_at, attachments
		FROM messages
		WHERE channel_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanSQLiteMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// GetMessage retrieves a message by channel and message ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, channelID, messageID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, channel_id, message_id, author_name, text, created_at, attachments
		FROM messages WHERE channel_id = ? AND message_id = ?
	`, channelID, messageID)

	msg, err := scanSQLiteMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var createdAt int64
	var attachments string
	err := row.Scan(
		&msg.Seq,
		&msg.ChannelID,
		&msg.MessageID,
		&msg.AuthorName,
		&msg.Text,
		&createdAt,
		&attachments,
	)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = time.Unix(0, createdAt).UTC()
	msg.Attachments = decodeAttachments([]byte(attachments))
	return msg, nil
}

// ListChannels returns channels ordered by most recent activity.
func (s *SQLiteStore) ListChannels(ctx context.Context, limit int) ([]models.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, COUNT(*), MAX(created_at)
		FROM messages
		GROUP BY channel_id
		ORDER BY MAX(created_at) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var ch models.Channel
		var lastActive int64
		if err := rows.Scan(&ch.ID, &ch.MessageCount, &lastActive); err != nil {
			return nil, err
		}
		ch.LastActiveAt = time.Unix(0, lastActive).UTC()
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// CreateTask creates a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	id := uuid.New()
	status := task.Status
	if status == "" {
		status = models.TaskTodo
	}

	var due sql.NullTime
	if task.DueDate != nil {
		due = sql.NullTime{Time: task.DueDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, channel_id, title, description, assignee_name, status, created_at, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), task.ChannelID, task.Title, task.Description, task.AssigneeName, status, time.Now().UTC(), due)
	if err != nil {
		return nil, err
	}

	return s.getTask(ctx, id)
}

func (s *SQLiteStore) getTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel_id, title, description, assignee_name, status, created_at, due_date
		FROM tasks WHERE id = ?
	`, id.String())

	t, err := scanSQLiteTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func scanSQLiteTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var idStr string
	var due sql.NullTime
	err := row.Scan(
		&idStr,
		&t.ChannelID,
		&t.Title,
		&t.Description,
		&t.AssigneeName,
		&t.Status,
		&t.CreatedAt,
		&due,
	)
	if err != nil {
		return nil, err
	}
	t.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}

// ListTasks retrieves the tasks of a channel, oldest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, channelID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, title, description, assignee_name, status, created_at, due_date
		FROM tasks WHERE channel_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus sets the status of a task.
// Returns (nil, nil) when the task does not exist.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (*models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, id.String())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.getTask(ctx, id)
}

// CreateDoc stores a document.
func (s *SQLiteStore) CreateDoc(ctx context.Context, doc *models.Doc) (*models.Doc, error) {
	created := &models.Doc{
		ID:        uuid.New(),
		Source:    doc.Source,
		Title:     doc.Title,
		Content:   doc.Content,
		Excerpt:   doc.Excerpt,
		URL:       doc.URL,
		CreatedAt: time.Now().UTC(),
	}
	if created.Source == "" {
		created.Source = models.DocSourceLocal
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO docs (id, source, title, content, excerpt, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, created.ID.String(), created.Source, created.Title, created.Content, created.Excerpt, created.URL, created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListDocs retrieves the most recently created documents.
func (s *SQLiteStore) ListDocs(ctx context.Context, limit int) ([]models.Doc, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, title, content, excerpt, url, created_at
		FROM docs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Doc{}
	for rows.Next() {
		var d models.Doc
		var idStr string
		if err := rows.Scan(&idStr, &d.Source, &d.Title, &d.Content, &d.Excerpt, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.ID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
