package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/contextstack/internal/metrics"
	"github.com/eldtechnologies/contextstack/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func observePostgres(start time.Time) {
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
}

// InsertMessages stores messages, skipping any (channel, message) pair that already exists.
// Returns the number of rows actually inserted.
func (s *PostgresStore) InsertMessages(ctx context.Context, msgs []models.Message) (int, error) {
	defer observePostgres(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for i := range msgs {
		msg := &msgs[i]
		prepareMessage(msg)

		attachments, err := encodeAttachments(msg.Attachments)
		if err != nil {
			return 0, err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO messages (channel_id, message_id, author_name, text, created_at, attachments)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb)
			ON CONFLICT (channel_id, message_id) DO NOTHING
		`, msg.ChannelID, msg.MessageID, msg.AuthorName, msg.Text, msg.CreatedAt, attachments)
		if err != nil {
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

// RecentMessages returns the newest messages of a channel, newest first.
// Messages sharing a timestamp are ordered by insertion, later first.
func (s *PostgresStore) RecentMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	defer observePostgres(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT seq, channel_id, message_id, author_name, text, created_at, attachments
		FROM messages
		WHERE channel_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanPostgresMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}

	return messages, rows.Err()
}

// GetMessage retrieves a message by channel and message ID.
// Returns (nil, nil) when no such message exists.
func (s *PostgresStore) GetMessage(ctx context.Context, channelID, messageID string) (*models.Message, error) {
	defer observePostgres(time.Now())

	row := s.pool.QueryRow(ctx, `
		SELECT seq, channel_id, message_id, author_name, text, created_at, attachments
		FROM messages WHERE channel_id = $1 AND message_id = $2
	`, channelID, messageID)

	msg, err := scanPostgresMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

func scanPostgresMessage(row pgx.Row) (*models.Message, error) {
	msg := &models.Message{}
	var attachments []byte
	err := row.Scan(
		&msg.Seq,
		&msg.ChannelID,
		&msg.MessageID,
		&msg.AuthorName,
		&msg.Text,
		&msg.CreatedAt,
		&attachments,
	)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.Attachments = decodeAttachments(attachments)
	return msg, nil
}

// ListChannels returns channels ordered by most recent activity.
func (s *PostgresStore) ListChannels(ctx context.Context, limit int) ([]models.Channel, error) {
	defer observePostgres(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT channel_id, COUNT(*), MAX(created_at)
		FROM messages
		GROUP BY channel_id
		ORDER BY MAX(created_at) DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.MessageCount, &ch.LastActiveAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// CreateTask creates a new task.
func (s *PostgresStore) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	defer observePostgres(time.Now())

	status := task.Status
	if status == "" {
		status = models.TaskTodo
	}

	created := &models.Task{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (channel_id, title, description, assignee_name, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, channel_id, title, description, assignee_name, status, created_at, due_date
	`, task.ChannelID, task.Title, task.Description, task.AssigneeName, status, task.DueDate).Scan(
		&created.ID,
		&created.ChannelID,
		&created.Title,
		&created.Description,
		&created.AssigneeName,
		&created.Status,
		&created.CreatedAt,
		&created.DueDate,
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListTasks retrieves the tasks of a channel, oldest first.
func (s *PostgresStore) ListTasks(ctx context.Context, channelID string) ([]models.Task, error) {
	defer observePostgres(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, channel_id, title, description, assignee_name, status, created_at, due_date
		FROM tasks WHERE channel_id = $1
		ORDER BY created_at ASC
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		err := rows.Scan(
			&t.ID,
			&t.ChannelID,
			&t.Title,
			&t.Description,
			&t.AssigneeName,
			&t.Status,
			&t.CreatedAt,
			&t.DueDate,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus sets the status of a task.
// Returns (nil, nil) when the task does not exist.
func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (*models.Task, error) {
	defer observePostgres(time.Now())

	t := &models.Task{}
	err := s.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $2 WHERE id = $1
		RETURNING id, channel_id, title, description, assignee_name, status, created_at, due_date
	`, id, status).Scan(
		&t.ID,
		&t.ChannelID,
		&t.Title,
		&t.Description,
		&t.AssigneeName,
		&t.Status,
		&t.CreatedAt,
		&t.DueDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// CreateDoc stores a document.
func (s *PostgresStore) CreateDoc(ctx context.Context, doc *models.Doc) (*models.Doc, error) {
	defer observePostgres(time.Now())

	source := doc.Source
	if source == "" {
		source = models.DocSourceLocal
	}

	created := &models.Doc{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO docs (source, title, content, excerpt, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, source, title, content, excerpt, url, created_at
	`, source, doc.Title, doc.Content, doc.Excerpt, doc.URL).Scan(
		&created.ID,
		&created.Source,
		&created.Title,
		&created.Content,
		&created.Excerpt,
		&created.URL,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListDocs retrieves the most recently created documents.
func (s *PostgresStore) ListDocs(ctx context.Context, limit int) ([]models.Doc, error) {
	defer observePostgres(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, source, title, content, excerpt, url, created_at
		FROM docs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Doc{}
	for rows.Next() {
		var d models.Doc
		if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.Content, &d.Excerpt, &d.URL, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
