// Package monitor watches resend volume over a sliding time window and fires
// a threshold alert when it gets excessive.
//
// The monitor keeps a single piece of state: the time the last alert was
// sent. While that time is inside the window, further alerts are suppressed,
// so a burst of resends produces exactly one alert per suppression window.
// Everything else is recomputed from the audit log on every call; at this
// volume, recomputation is simpler than keeping a streaming counter in sync
// with the log file.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"remail/internal/resend/models"
	"remail/internal/resend/ports"
	"remail/pkg/requestcontext"
)

// Metrics is the subset of the metrics registry the monitor touches.
type Metrics interface {
	IncrementThresholdAlerts()
}

// Monitor evaluates resend volume after every successful resend.
type Monitor struct {
	store    ports.EventStore
	notifier ports.Notifier
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  Metrics

	mu        sync.Mutex
	lastAlert time.Time // zero until the first threshold alert
}

type Option func(*Monitor)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

// New builds a monitor. limit is the event count that triggers an alert,
// window is both the lookback interval and the alert suppression interval.
func New(store ports.EventStore, notifier ports.Notifier, limit int, window time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		store:    store,
		notifier: notifier,
		limit:    limit,
		window:   window,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate checks whether the number of resends inside the window has reached
// the limit and, if so, sends one threshold alert and enters suppression.
// "Now" comes from the request context so tests can pin the clock.
func (m *Monitor) Evaluate(ctx context.Context) {
	now := requestcontext.Now(ctx)
	windowStart := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastAlert.IsZero() && m.lastAlert.After(windowStart) {
		return
	}

	events, err := m.store.LoadAll(ctx)
	if err != nil {
		// LoadAll fails soft by contract; an error here still must not
		// disturb the resend that triggered the evaluation.
		m.logger.WarnContext(ctx, "rate evaluation skipped, audit log unavailable", "error", err)
		return
	}

	var recent []models.ResendEvent
	for _, e := range events {
		if !e.Time.Before(windowStart) {
			recent = append(recent, e)
		}
	}

	if len(recent) < m.limit {
		return
	}

	m.notifier.ThresholdAlert(ctx, len(recent), m.window, breakdown(recent), now)
	m.lastAlert = now

	m.logger.InfoContext(ctx, "resend threshold alert sent",
		"recent", len(recent),
		"limit", m.limit,
		"window", m.window,
	)
	if m.metrics != nil {
		m.metrics.IncrementThresholdAlerts()
	}
}

// breakdown groups events by merchant, preserving first-seen order.
func breakdown(events []models.ResendEvent) []models.MerchantCount {
	index := make(map[string]int, len(events))
	var out []models.MerchantCount
	for _, e := range events {
		if i, seen := index[e.MerchantEmail]; seen {
			out[i].Count++
			continue
		}
		index[e.MerchantEmail] = len(out)
		out = append(out, models.MerchantCount{MerchantEmail: e.MerchantEmail, Count: 1})
	}
	return out
}
