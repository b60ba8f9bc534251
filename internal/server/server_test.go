package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/zmanimbot/internal/database"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingDispatcher struct {
	mu       sync.Mutex
	messages []*database.Message
	err      error
	ctxErr   error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, msg *database.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	d.ctxErr = ctx.Err()
	return d.err
}

type fixture struct {
	db         *sqlx.DB
	store      database.Store
	dispatcher *recordingDispatcher
	server     *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	f := &fixture{db: db, store: database.NewStore(db, nil), dispatcher: &recordingDispatcher{}}
	f.server = New(slog.New(slog.NewTextHandler(io.Discard, nil)), f.store, f.dispatcher, time.Minute, gin.TestMode)
	return f
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	f.server.Wait()
	return rec
}

func TestWebhookGroupMessage(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{
		"from": "972500000001:12@s.whatsapp.net in 120363000000000001@g.us",
		"pushname": "Dana",
		"timestamp": "2025-03-20T08:00:00Z",
		"message": {"id": "ABC", "text": "מתי שקיעה?", "replied_id": "XYZ"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Len(t, f.dispatcher.messages, 1)
	got := f.dispatcher.messages[0]
	assert.Equal(t, "ABC", got.MessageID)
	assert.Equal(t, "120363000000000001@g.us", got.ChatJID)
	assert.Equal(t, "972500000001@s.whatsapp.net", got.SenderJID)
	assert.Equal(t, "XYZ", got.ReplyToID.String)
	assert.True(t, got.Timestamp.Equal(time.Date(2025, time.March, 20, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, got.Group)
	assert.False(t, got.Group.Managed)
	assert.NoError(t, f.dispatcher.ctxErr)

	stored, err := f.store.GetMessage(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "מתי שקיעה?", stored.Content())
}

func TestWebhookDirectMessageWithCaption(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, `{
		"from": "972500000002@s.whatsapp.net",
		"message": {"id": "DM1"},
		"image": {"media_path": "statics/media/1.jpg", "caption": "look"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.dispatcher.messages, 1)
	got := f.dispatcher.messages[0]
	assert.Equal(t, "972500000002@s.whatsapp.net", got.ChatJID)
	assert.Nil(t, got.Group)
	assert.Equal(t, "look", got.Content())
	assert.Equal(t, "statics/media/1.jpg", got.MediaURL.String)
}

func TestWebhookSkipsWithoutDispatch(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"from":`, http.StatusBadRequest},
		{"no message id", `{"from": "972500000002@s.whatsapp.net", "message": {"text": "hi"}}`, http.StatusOK},
		{"empty content", `{"from": "972500000002@s.whatsapp.net", "message": {"id": "E1"}}`, http.StatusOK},
		{"invalid source", `{"from": " in 120363@g.us", "message": {"id": "E2", "text": "hi"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.post(t, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, f.dispatcher.messages)
		})
	}
}

func TestWebhookDispatchErrorStillAnswers(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("boom")

	rec := f.post(t, `{"from": "972500000002@s.whatsapp.net", "message": {"id": "X1", "text": "hi"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.dispatcher.messages, 1)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, f.db.Close())
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
