package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remail/internal/resend/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureServer records every sendMessage payload it receives.
func captureServer(t *testing.T, status int) (*httptest.Server, *[]map[string]string) {
	t.Helper()
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		got = append(got, payload)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestTelegram(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("unconfigured notifier is a no-op", func(t *testing.T) {
		srv, got := captureServer(t, http.StatusOK)
		tg := New("", "", discardLogger(), WithBaseURL(srv.URL))

		tg.ResendAlert(ctx, models.ResendEvent{Time: now})
		tg.ThresholdAlert(ctx, 5, 10*time.Minute, nil, now)

		assert.Empty(t, *got)
	})

	t.Run("resend alert carries actor, merchant, subject", func(t *testing.T) {
		srv, got := captureServer(t, http.StatusOK)
		tg := New("bot-token", "chat-1", discardLogger(), WithBaseURL(srv.URL))

		tg.ResendAlert(ctx, models.ResendEvent{
			Time:          now,
			User:          "admin",
			MerchantEmail: "m@test.com",
			Subject:       "Order #42",
		})

		require.Len(t, *got, 1)
		payload := (*got)[0]
		assert.Equal(t, "chat-1", payload["chat_id"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		assert.Contains(t, payload["text"], "User: admin")
		assert.Contains(t, payload["text"], "Merchant: m@test.com")
		assert.Contains(t, payload["text"], "Subject: Order #42")
		assert.Contains(t, payload["text"], "09:30:00 14/03/2026")
	})

	t.Run("threshold alert lists breakdown in order", func(t *testing.T) {
		srv, got := captureServer(t, http.StatusOK)
		tg := New("bot-token", "chat-1", discardLogger(), WithBaseURL(srv.URL))

		tg.ThresholdAlert(ctx, 5, 10*time.Minute, []models.MerchantCount{
			{MerchantEmail: "a@x.com", Count: 3},
			{MerchantEmail: "b@y.com", Count: 2},
		}, now)

		require.Len(t, *got, 1)
		text := (*got)[0]["text"]
		assert.Contains(t, text, "<b>5</b> resend trong 10 phút")
		assert.Contains(t, text, "• a@x.com: 3\n• b@y.com: 2\n")
		assert.Less(t, strings.Index(text, "a@x.com"), strings.Index(text, "b@y.com"))
	})

	t.Run("server failure is swallowed and counted", func(t *testing.T) {
		srv, _ := captureServer(t, http.StatusBadGateway)
		counter := &stubMetrics{}
		tg := New("bot-token", "chat-1", discardLogger(), WithBaseURL(srv.URL), WithMetrics(counter))

		tg.ResendAlert(ctx, models.ResendEvent{Time: now})

		assert.Equal(t, 1, counter.errors)
	})

	t.Run("unreachable server is swallowed", func(t *testing.T) {
		tg := New("bot-token", "chat-1", discardLogger(), WithBaseURL("http://127.0.0.1:1"))

		assert.NotPanics(t, func() {
			tg.ThresholdAlert(ctx, 5, 10*time.Minute, nil, now)
		})
	})
}

type stubMetrics struct {
	errors int
}

func (s *stubMetrics) IncrementNotifierErrors() {
	s.errors++
}
