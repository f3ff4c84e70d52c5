package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remail/internal/resend/models"
	"remail/internal/resend/store/auditlog"
	"remail/pkg/requestcontext"
)

// recordingNotifier captures threshold alerts for assertions.
type recordingNotifier struct {
	resendAlerts    int
	thresholdCalls  int
	lastCount       int
	lastWindow      time.Duration
	lastBreakdown   []models.MerchantCount
	lastAlertedTime time.Time
}

func (n *recordingNotifier) ResendAlert(context.Context, models.ResendEvent) {
	n.resendAlerts++
}

func (n *recordingNotifier) ThresholdAlert(_ context.Context, count int, window time.Duration, breakdown []models.MerchantCount, now time.Time) {
	n.thresholdCalls++
	n.lastCount = count
	n.lastWindow = window
	n.lastBreakdown = breakdown
	n.lastAlertedTime = now
}

func appendEvents(t *testing.T, store *auditlog.InMemoryStore, merchant string, times ...time.Time) {
	t.Helper()
	for _, ts := range times {
		require.NoError(t, store.Append(context.Background(), models.ResendEvent{
			Time:          ts,
			User:          "admin",
			MerchantEmail: merchant,
			Subject:       "s",
		}))
	}
}

func at(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func TestEvaluate(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("below limit stays quiet", func(t *testing.T) {
		store := auditlog.NewInMemoryStore()
		notifier := &recordingNotifier{}
		m := New(store, notifier, 5, 10*time.Minute)

		// 4 events for the same merchant within a minute: one short of the limit.
		for i := 0; i < 4; i++ {
			appendEvents(t, store, "m@test.com", base.Add(time.Duration(i)*15*time.Second))
			m.Evaluate(at(base.Add(time.Duration(i) * 15 * time.Second)))
		}

		assert.Zero(t, notifier.thresholdCalls)
	})

	t.Run("fifth event fires exactly one alert", func(t *testing.T) {
		store := auditlog.NewInMemoryStore()
		notifier := &recordingNotifier{}
		m := New(store, notifier, 5, 10*time.Minute)

		now := base
		for i := 0; i < 5; i++ {
			now = base.Add(time.Duration(i) * 15 * time.Second)
			appendEvents(t, store, "m@test.com", now)
			m.Evaluate(at(now))
		}

		require.Equal(t, 1, notifier.thresholdCalls)
		assert.Equal(t, 5, notifier.lastCount)
		assert.Equal(t, 10*time.Minute, notifier.lastWindow)
		assert.Equal(t, []models.MerchantCount{{MerchantEmail: "m@test.com", Count: 5}}, notifier.lastBreakdown)
		assert.Equal(t, now, notifier.lastAlertedTime)
	})

	t.Run("re-evaluation at the same instant is suppressed", func(t *testing.T) {
		store := auditlog.NewInMemoryStore()
		notifier := &recordingNotifier{}
		m := New(store, notifier, 5, 10*time.Minute)

		for i := 0; i < 5; i++ {
			appendEvents(t, store, "m@test.com", base)
		}
		m.Evaluate(at(base))
		require.Equal(t, 1, notifier.thresholdCalls)

		m.Evaluate(at(base))
		m.Evaluate(at(base.Add(time.Minute)))

		assert.Equal(t, 1, notifier.thresholdCalls, "throttle must hold inside the suppression window")
	})

	t.Run("fires again after the suppression window elapses", func(t *testing.T) {
		store := auditlog.NewInMemoryStore()
		notifier := &recordingNotifier{}
		window := 10 * time.Minute
		m := New(store, notifier, 5, window)

		for i := 0; i < 5; i++ {
			appendEvents(t, store, "m@test.com", base)
		}
		m.Evaluate(at(base))
		require.Equal(t, 1, notifier.thresholdCalls)

		// Past the suppression window; seed fresh qualifying volume there.
		later := base.Add(window + time.Minute)
		for i := 0; i < 5; i++ {
			appendEvents(t, store, "m@test.com", later)
		}
		m.Evaluate(at(later))

		assert.Equal(t, 2, notifier.thresholdCalls)
	})

	t.Run("events before the window are excluded, boundary is inclusive", func(t *testing.T) {
		store := auditlog.NewInMemoryStore()
		notifier := &recordingNotifier{}
		window := 10 * time.Minute
		m := New(store, notifier, 3, window)

		now := base.Add(time.Hour)
		appendEvents(t, store, "old@x.com", now.Add(-window-time.Second)) // outside
		appendEvents(t, store, "edge@x.com", now.Add(-window))            // exactly on the boundary
		appendEvents(t, store, "m@test.com", now.Add(-time.Minute), now)

		m.Evaluate(at(now))

		require.Equal(t, 1, notifier.thresholdCalls)
		assert.Equal(t, 3, notifier.lastCount)
		assert.Equal(t, []models.MerchantCount{
			{MerchantEmail: "edge@x.com", Count: 1},
			{MerchantEmail: "m@test.com", Count: 2},
		}, notifier.lastBreakdown)
	})

	t.Run("breakdown counts per merchant in first-seen order", func(t *testing.T) {
		store := auditlog.NewInMemoryStore()
		notifier := &recordingNotifier{}
		m := New(store, notifier, 5, 10*time.Minute)

		appendEvents(t, store, "a@x.com", base, base.Add(time.Second))
		appendEvents(t, store, "b@y.com", base.Add(2*time.Second))
		appendEvents(t, store, "a@x.com", base.Add(3*time.Second))
		appendEvents(t, store, "b@y.com", base.Add(4*time.Second))

		m.Evaluate(at(base.Add(5 * time.Second)))

		require.Equal(t, 1, notifier.thresholdCalls)
		assert.Equal(t, []models.MerchantCount{
			{MerchantEmail: "a@x.com", Count: 3},
			{MerchantEmail: "b@y.com", Count: 2},
		}, notifier.lastBreakdown)
	})

	t.Run("empty store never alerts", func(t *testing.T) {
		notifier := &recordingNotifier{}
		m := New(auditlog.NewInMemoryStore(), notifier, 1, 10*time.Minute)

		m.Evaluate(at(base))

		assert.Zero(t, notifier.thresholdCalls)
	})
}
