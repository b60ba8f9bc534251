package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/zmanimbot/internal/config"
)

func newGateway(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(config.WhatsAppConfig{BaseURL: srv.URL + "/", Username: "bot", Password: "secret", Timeout: 5 * time.Second}, nil)
}

func TestSendMessage(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send/message", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Phone != "120363@g.us" || body.ReplyMessageID != "orig" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"code":"SUCCESS","message":"ok","results":{"message_id":"3EB0NEW","status":"sent"}}`))
	})
	c := newGateway(t, mux)

	id, err := c.SendMessage(context.Background(), "120363@g.us", "שלום", "orig")
	require.NoError(t, err)
	assert.Equal(t, "3EB0NEW", id)

	_, err = c.SendMessage(context.Background(), "", "x", "")
	assert.Error(t, err)
}

func TestSendMessageErrors(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send/message", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"code":"SUCCESS","results":{}}`))
	})
	mux.HandleFunc("POST /broken/send/message", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Run("missing id", func(t *testing.T) {
		c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL, Timeout: time.Second}, nil)
		_, err := c.SendMessage(context.Background(), "1@s.whatsapp.net", "x", "")
		assert.ErrorContains(t, err, "without id")
	})

	t.Run("server error", func(t *testing.T) {
		c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL + "/broken", Timeout: time.Second}, nil)
		_, err := c.SendMessage(context.Background(), "1@s.whatsapp.net", "x", "")
		assert.ErrorContains(t, err, "500")
		assert.ErrorContains(t, err, "boom")
	})
}

func TestSelfJIDIsCached(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /app/devices", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"code":"SUCCESS","results":[{"name":"bot","device":"972500000000:12@s.whatsapp.net"}]}`))
	})
	c := newGateway(t, mux)

	for range 3 {
		self, err := c.SelfJID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "972500000000@s.whatsapp.net", self.String())
		assert.Equal(t, "972500000000", self.User)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestSelfJIDNoDevice(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /app/devices", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"SUCCESS","results":[]}`))
	})
	c := newGateway(t, mux)

	_, err := c.SelfJID(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestListGroups(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/my/groups", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"SUCCESS","results":{"data":[
			{"JID":"120363@g.us","OwnerJID":"1111@lid","OwnerPN":"972500000001@s.whatsapp.net","Name":"שיעור","Topic":"daf yomi"},
			{"JID":"120364@g.us","OwnerJID":"972500000002:3@s.whatsapp.net","Name":"Other"},
			{"JID":"120365@g.us","Name":"Orphan"}
		]}}`))
	})
	c := newGateway(t, mux)

	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "שיעור", groups[0].Name)
	assert.Equal(t, "972500000001@s.whatsapp.net", groups[0].Owner())
	assert.Equal(t, "972500000002@s.whatsapp.net", groups[1].Owner())
	assert.Empty(t, groups[2].Owner())
}
