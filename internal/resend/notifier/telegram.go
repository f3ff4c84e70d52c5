// Package notifier delivers operator alerts to a Telegram chat.
//
// The notifier is best-effort by contract: it never returns an error, and a
// missing bot token or chat ID turns every call into a silent no-op. A failed
// alert must never fail the resend that triggered it.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"remail/internal/resend/models"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	sendTimeout    = 5 * time.Second

	// Alert timestamps use the operator-facing day/month format the chat
	// channel has always shown.
	alertTimeLayout = "15:04:05 02/01/2006"
)

// Telegram sends HTML-formatted messages via the Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   *slog.Logger
	metrics  Metrics
}

// Metrics is the subset of the metrics registry the notifier touches.
type Metrics interface {
	IncrementNotifierErrors()
}

type Option func(*Telegram)

// WithBaseURL overrides the Bot API host. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(t *Telegram) {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(t *Telegram) {
		t.metrics = metrics
	}
}

// New builds a Telegram notifier. An empty botToken or chatID disables it.
func New(botToken, chatID string, logger *slog.Logger, opts ...Option) *Telegram {
	t := &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: sendTimeout},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ResendAlert announces a single resend.
func (t *Telegram) ResendAlert(ctx context.Context, event models.ResendEvent) {
	msg := fmt.Sprintf(
		"📨 <b>RESEND EMAIL</b>\n\n👤 User: %s\n📧 Merchant: %s\n📝 Subject: %s\n⏱ %s",
		event.User,
		event.MerchantEmail,
		event.Subject,
		event.Time.UTC().Format(alertTimeLayout),
	)
	t.send(ctx, msg)
}

// ThresholdAlert announces excessive resend volume inside the window.
func (t *Telegram) ThresholdAlert(ctx context.Context, count int, window time.Duration, breakdown []models.MerchantCount, now time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ <b>CẢNH BÁO RESEND</b>\n\n🔁 <b>%d</b> resend trong %d phút\n\n📧 Merchant:\n",
		count, int(window.Minutes()))
	for _, mc := range breakdown {
		fmt.Fprintf(&b, "• %s: %d\n", mc.MerchantEmail, mc.Count)
	}
	fmt.Fprintf(&b, "\n⏱ %s", now.UTC().Format(alertTimeLayout))

	t.send(ctx, b.String())
}

// send performs the Bot API call, swallowing every failure.
func (t *Telegram) send(ctx context.Context, text string) {
	if t.botToken == "" || t.chatID == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		t.fail(ctx, err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.fail(ctx, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.fail(ctx, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.fail(ctx, fmt.Errorf("telegram responded %s", resp.Status))
	}
}

func (t *Telegram) fail(ctx context.Context, err error) {
	t.logger.WarnContext(ctx, "telegram alert failed", "error", err)
	if t.metrics != nil {
		t.metrics.IncrementNotifierErrors()
	}
}
