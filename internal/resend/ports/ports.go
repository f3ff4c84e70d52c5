// Package ports defines the interfaces between the resend orchestration and
// its collaborators. Services depend on these rather than on concrete
// IMAP/Gmail/Telegram clients so unit tests can substitute stubs.
package ports

import (
	"context"
	"time"

	"remail/internal/resend/models"
)

// Mailbox reads the operator mailbox.
type Mailbox interface {
	// Search returns all messages from or to the merchant address, oldest
	// first.
	Search(ctx context.Context, merchantEmail string) ([]models.MailboxEntry, error)

	// Fetch returns the subject and HTML body of one message by ID.
	Fetch(ctx context.Context, id string) (models.MailMessage, error)
}

// Sender transmits a message to a recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EventStore persists the resend audit log. Append order is chronological
// order under the single-writer model.
type EventStore interface {
	// Append durably adds one event. Write failures propagate.
	Append(ctx context.Context, event models.ResendEvent) error

	// LoadAll returns every stored event in insertion order. Unreadable or
	// corrupt storage yields an empty slice, not an error.
	LoadAll(ctx context.Context) ([]models.ResendEvent, error)
}

// Notifier delivers operator alerts. Implementations never fail: delivery
// problems are logged and swallowed so an alert can never abort a resend.
type Notifier interface {
	// ResendAlert announces a single resend.
	ResendAlert(ctx context.Context, event models.ResendEvent)

	// ThresholdAlert announces excessive resend volume inside the window.
	ThresholdAlert(ctx context.Context, count int, window time.Duration, breakdown []models.MerchantCount, now time.Time)
}
