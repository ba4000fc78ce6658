package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/contextstack/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSQLiteStore_RecentMessagesNewestFirst(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 26, 9, 0, 0, 0, time.UTC)

	n, err := s.InsertMessages(ctx, []models.Message{
		{ChannelID: "dev-frontend", MessageID: "m1", AuthorName: "Ash", Text: "one", CreatedAt: base},
		{ChannelID: "dev-frontend", MessageID: "m2", AuthorName: "Lisa", Text: "two", CreatedAt: base.Add(time.Minute)},
		{ChannelID: "dev-frontend", MessageID: "m3", AuthorName: "Ash", Text: "three", CreatedAt: base.Add(2 * time.Minute)},
		{ChannelID: "marketing", MessageID: "m1", AuthorName: "Sam", Text: "other", CreatedAt: base.Add(3 * time.Minute)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	msgs, err := s.RecentMessages(ctx, "dev-frontend", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].MessageID)
	assert.Equal(t, "m2", msgs[1].MessageID)
	assert.True(t, msgs[0].CreatedAt.Equal(base.Add(2*time.Minute)))
}

func TestSQLiteStore_TiesUseInsertionOrder(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	same := time.Date(2024, 11, 26, 9, 0, 0, 0, time.UTC)

	_, err := s.InsertMessages(ctx, []models.Message{
		{ChannelID: "ops", MessageID: "a", Text: "first", CreatedAt: same},
		{ChannelID: "ops", MessageID: "b", Text: "second", CreatedAt: same},
		{ChannelID: "ops", MessageID: "c", Text: "third", CreatedAt: same},
	})
	require.NoError(t, err)

	msgs, err := s.RecentMessages(ctx, "ops", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{msgs[0].MessageID, msgs[1].MessageID, msgs[2].MessageID})
	assert.Greater(t, msgs[0].Seq, msgs[1].Seq)
}

func TestSQLiteStore_GetMessage(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.InsertMessages(ctx, []models.Message{{
		ChannelID:   "dev-frontend",
		MessageID:   "m3",
		AuthorName:  "Ash Kumar",
		Text:        "can you review PR #234",
		Attachments: []models.Attachment{{Type: "link", URL: "https://github.com/acme/web/pull/234"}},
	}})
	require.NoError(t, err)

	msg, err := s.GetMessage(ctx, "dev-frontend", "m3")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "can you review PR #234", msg.Text)
	assert.Equal(t, []models.Attachment{{Type: "link", URL: "https://github.com/acme/web/pull/234"}}, msg.Attachments)
	assert.False(t, msg.CreatedAt.IsZero())

	missing, err := s.GetMessage(ctx, "marketing", "m3")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_InsertMessagesSkipsDuplicatesAndFillsIDs(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	msgs := []models.Message{
		{ChannelID: "dev", MessageID: "m1", Text: "hello"},
		{ChannelID: "dev", Text: "no id"},
	}
	n, err := s.InsertMessages(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotEmpty(t, msgs[1].MessageID)

	n, err = s.InsertMessages(ctx, []models.Message{{ChannelID: "dev", MessageID: "m1", Text: "again"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	msg, err := s.GetMessage(ctx, "dev", "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, []models.Attachment{}, msg.Attachments)
}

func TestSQLiteStore_ListChannels(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 26, 9, 0, 0, 0, time.UTC)

	_, err := s.InsertMessages(ctx, []models.Message{
		{ChannelID: "dev", MessageID: "1", Text: "a", CreatedAt: base},
		{ChannelID: "dev", MessageID: "2", Text: "b", CreatedAt: base.Add(time.Minute)},
		{ChannelID: "ops", MessageID: "1", Text: "c", CreatedAt: base.Add(2 * time.Minute)},
	})
	require.NoError(t, err)

	channels, err := s.ListChannels(ctx, 10)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "ops", channels[0].ID)
	assert.Equal(t, int64(1), channels[0].MessageCount)
	assert.Equal(t, "dev", channels[1].ID)
	assert.Equal(t, int64(2), channels[1].MessageCount)
	assert.True(t, channels[1].LastActiveAt.Equal(base.Add(time.Minute)))
}

func TestSQLiteStore_Tasks(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	due := time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC)

	created, err := s.CreateTask(ctx, &models.Task{
		ChannelID:    "dev-frontend",
		Title:        "Review PR #234",
		AssigneeName: "Lisa Park",
		DueDate:      &due,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.TaskTodo, created.Status)
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(due))

	_, err = s.CreateTask(ctx, &models.Task{ChannelID: "dev-frontend", Title: "Update docs", Status: models.TaskInProgress})
	require.NoError(t, err)

	tasks, err := s.ListTasks(ctx, "dev-frontend")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Review PR #234", tasks[0].Title)
	assert.Nil(t, tasks[1].DueDate)

	updated, err := s.UpdateTaskStatus(ctx, created.ID, models.TaskDone)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, models.TaskDone, updated.Status)

	missing, err := s.UpdateTaskStatus(ctx, uuid.New(), models.TaskDone)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_Docs(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	doc, err := s.CreateDoc(ctx, &models.Doc{Title: "Design system", Content: "Buttons, modals and tokens"})
	require.NoError(t, err)
	assert.Equal(t, models.DocSourceLocal, doc.Source)

	docs, err := s.ListDocs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Equal(t, "Buttons, modals and tokens", docs[0].Content)
}
