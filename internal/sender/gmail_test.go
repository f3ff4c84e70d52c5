package sender

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "remail/pkg/domain-errors"
)

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token fails before any call", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		g := New("", WithBaseURL(srv.URL))
		err := g.Send(ctx, "m@test.com", "s", "<p>b</p>")

		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(err))
		assert.False(t, called)
	})

	t.Run("posts base64url raw message with bearer token", func(t *testing.T) {
		var gotAuth string
		var gotRaw string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			gotRaw = payload["raw"]
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		g := New("tok-123", WithBaseURL(srv.URL))
		require.NoError(t, g.Send(ctx, "m@test.com", "Đơn hàng #42", "<p>body</p>"))

		assert.Equal(t, "Bearer tok-123", gotAuth)

		decoded, err := base64.URLEncoding.DecodeString(gotRaw)
		require.NoError(t, err)
		msg := string(decoded)
		assert.Contains(t, msg, "To: m@test.com\r\n")
		assert.Contains(t, msg, "Subject: ")
		assert.Contains(t, msg, "Content-Type: text/html")
		assert.Contains(t, msg, "<p>body</p>")
		assert.NotContains(t, msg, "Đơn hàng", "non-ASCII subject must be MIME encoded")
	})

	t.Run("non-2xx response surfaces as unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "invalid_grant"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		g := New("tok-123", WithBaseURL(srv.URL))
		err := g.Send(ctx, "m@test.com", "s", "b")

		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(err))
		assert.Contains(t, err.Error(), "invalid_grant")
	})

	t.Run("unreachable API surfaces as unavailable", func(t *testing.T) {
		g := New("tok-123", WithBaseURL("http://127.0.0.1:1"))

		err := g.Send(ctx, "m@test.com", "s", "b")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})
}
