package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eldtechnologies/contextstack/internal/config"
	"github.com/eldtechnologies/contextstack/internal/models"
)

func testConfig(t *testing.T, nlpURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Env:                 "test",
		SQLitePath:          filepath.Join(t.TempDir(), "server.db"),
		NLPURL:              nlpURL,
		NLPTimeout:          time.Second,
		RepositoryTimeout:   time.Second,
		CacheTTL:            time.Minute,
		CacheTimeout:        100 * time.Millisecond,
		MemoryCacheSize:     16,
		ContextDefaultLimit: 8,
	}
}

func emptyNLP(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postContext(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(`{"channelId":"dev","messageId":"m1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedMessage(t *testing.T, a *app) {
	t.Helper()
	_, err := a.store.InsertMessages(context.Background(), []models.Message{
		{ChannelID: "dev", MessageID: "m1", AuthorName: "Ana", Text: "can someone review this?", CreatedAt: time.Now()},
	})
	require.NoError(t, err)
}

func TestNewApp_RedisDownAtStartupStillServes(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t, emptyNLP(t).URL)
	cfg.RedisURL = "redis://" + addr

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	seedMessage(t, a)

	rec := postContext(t, a.handler)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ContextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FromCache)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "m1", resp.Messages[0].MessageID)

	// Still uncached on the second call.
	rec = postContext(t, a.handler)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FromCache)
}

func TestNewApp_RedisCachesContext(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t, emptyNLP(t).URL)
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	seedMessage(t, a)

	require.Equal(t, http.StatusOK, postContext(t, a.handler).Code)
	assert.True(t, mr.Exists("context:dev:m1"))

	rec := postContext(t, a.handler)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ContextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.FromCache)
}

func TestNewApp_InProcessCacheWithoutRedis(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t, emptyNLP(t).URL), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	seedMessage(t, a)

	require.Equal(t, http.StatusOK, postContext(t, a.handler).Code)

	rec := postContext(t, a.handler)
	var resp models.ContextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.FromCache)
}

func TestNewApp_BadRedisURL(t *testing.T) {
	cfg := testConfig(t, emptyNLP(t).URL)
	cfg.RedisURL = "not-a-url://"

	_, err := newApp(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
