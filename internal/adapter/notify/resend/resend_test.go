package resend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/candidate-screener/internal/adapter/notify/resend"
)

func TestSendPlainText(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	m := resend.New("re_test", srv.URL, "noreply@screener.local")
	err := m.Send(context.Background(), "avery@example.com", "Update on your application", "Dear Avery,", false)
	require.NoError(t, err)

	assert.Equal(t, "noreply@screener.local", got["from"])
	assert.Equal(t, []any{"avery@example.com"}, got["to"])
	assert.Equal(t, "Dear Avery,", got["text"])
	assert.Nil(t, got["html"])
}

func TestSendHTMLBody(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(srv.Close)

	m := resend.New("re_test", srv.URL, "noreply@screener.local")
	require.NoError(t, m.Send(context.Background(), "a@b.c", "s", "<p>hi</p>", true))
	assert.Equal(t, "<p>hi</p>", got["html"])
	assert.Nil(t, got["text"])
}

func TestSendRejectedStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	m := resend.New("re_test", srv.URL, "noreply@screener.local")
	err := m.Send(context.Background(), "a@b.c", "s", "body", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestSendDisabledWithoutKey(t *testing.T) {
	t.Parallel()

	m := resend.New("", "http://127.0.0.1:1", "noreply@screener.local")
	assert.NoError(t, m.Send(context.Background(), "a@b.c", "s", "body", false))
}
