package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a Client pointed at a fake Bot API server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("TEST-TOKEN")
	c.baseURL = srv.URL
	return c
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := c.SendMessage(context.Background(), 111, "hello")
	require.NoError(t, err)
	assert.Equal(t, "/botTEST-TOKEN/sendMessage", gotPath)
	assert.Equal(t, float64(111), gotPayload["chat_id"])
	assert.Equal(t, "hello", gotPayload["text"])
}

func TestSendMessage_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})

	err := c.SendMessage(context.Background(), 111, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestGetUpdates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTEST-TOKEN/getUpdates", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":7,"message":{"chat":{"id":42},"from":{"username":"alice"},"text":"/start"}}
		]}`))
	})

	updates, err := c.GetUpdates(context.Background(), 0, 30)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(7), updates[0].UpdateID)
	assert.Equal(t, int64(42), updates[0].Message.Chat.ID)
	assert.Equal(t, "alice", updates[0].Message.From.Username)
	assert.Equal(t, "/start", updates[0].Message.Text)
}

func TestDeleteWebhook(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})

	require.NoError(t, c.DeleteWebhook(context.Background()))
	assert.Equal(t, "/botTEST-TOKEN/deleteWebhook", gotPath)
}
