// Package service orchestrates resend operations: fetch the source message,
// transmit it, record the audit event, and drive the alerting pipeline.
package service

import (
	"context"
	"log/slog"

	"remail/internal/resend/models"
	"remail/internal/resend/ports"
	dErrors "remail/pkg/domain-errors"
	"remail/pkg/platform/middleware/auth"
	"remail/pkg/requestcontext"
)

// Evaluator is the rate monitor hook run after every successful resend.
type Evaluator interface {
	Evaluate(ctx context.Context)
}

// Metrics is the subset of the metrics registry the service touches.
type Metrics interface {
	IncrementResends(mode string)
	IncrementResendFailures()
}

type Service struct {
	mailbox  ports.Mailbox
	sender   ports.Sender
	store    ports.EventStore
	notifier ports.Notifier
	monitor  Evaluator
	logger   *slog.Logger
	metrics  Metrics

	alertEveryResend bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithAlertEveryResend makes every resend fire an immediate chat alert in
// addition to threshold alerts.
func WithAlertEveryResend(enabled bool) Option {
	return func(s *Service) {
		s.alertEveryResend = enabled
	}
}

func New(mailbox ports.Mailbox, sender ports.Sender, store ports.EventStore, notifier ports.Notifier, monitor Evaluator, opts ...Option) *Service {
	s := &Service{
		mailbox:  mailbox,
		sender:   sender,
		store:    store,
		notifier: notifier,
		monitor:  monitor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the mailbox messages tied to the merchant address, oldest
// first.
func (s *Service) Search(ctx context.Context, merchantEmail string) ([]models.MailboxEntry, error) {
	entries, err := s.mailbox.Search(ctx, merchantEmail)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox search failed")
	}
	return entries, nil
}

// Resend re-transmits the message with the given ID to the merchant address,
// then records and alerts. Fetch or send failures abort before any state is
// touched. An audit write failure fails the whole operation even though the
// message already went out; the audit trail is the point of this tool, so a
// resend it cannot account for is reported as a failure.
func (s *Service) Resend(ctx context.Context, emailID, merchantEmail string) error {
	msg, err := s.mailbox.Fetch(ctx, emailID)
	if err != nil {
		s.failed(ctx, "fetch", merchantEmail, err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to fetch source message")
	}

	return s.transmit(ctx, "manual", merchantEmail, msg)
}

// AutoResend searches the mailbox by merchant address and resends the most
// recent match. Returns the resent subject. No matches is a not-found
// outcome, reported before any send, log entry, or alert.
func (s *Service) AutoResend(ctx context.Context, merchantEmail string) (string, error) {
	entries, err := s.mailbox.Search(ctx, merchantEmail)
	if err != nil {
		s.failed(ctx, "search", merchantEmail, err)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox search failed")
	}
	if len(entries) == 0 {
		return "", dErrors.New(dErrors.CodeNotFound, "Không tìm thấy email")
	}

	latest := entries[len(entries)-1]
	msg, err := s.mailbox.Fetch(ctx, latest.ID)
	if err != nil {
		s.failed(ctx, "fetch", merchantEmail, err)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to fetch source message")
	}

	if err := s.transmit(ctx, "auto", merchantEmail, msg); err != nil {
		return "", err
	}
	return msg.Subject, nil
}

// Logs returns the full audit trail in store order.
func (s *Service) Logs(ctx context.Context) ([]models.ResendEvent, error) {
	return s.store.LoadAll(ctx)
}

// transmit sends the message and, on success, appends the audit event and
// drives the alerting pipeline in order.
func (s *Service) transmit(ctx context.Context, mode, merchantEmail string, msg models.MailMessage) error {
	if err := s.sender.Send(ctx, merchantEmail, msg.Subject, msg.HTMLBody); err != nil {
		s.failed(ctx, "send", merchantEmail, err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to send message")
	}

	event := models.ResendEvent{
		Time:          requestcontext.Now(ctx).UTC(),
		User:          s.actor(ctx),
		MerchantEmail: merchantEmail,
		Subject:       msg.Subject,
	}

	if err := s.store.Append(ctx, event); err != nil {
		s.failed(ctx, "log", merchantEmail, err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record resend")
	}

	s.logger.InfoContext(ctx, "message resent",
		"request_id", requestcontext.RequestID(ctx),
		"mode", mode,
		"user", event.User,
		"merchant_email", merchantEmail,
		"subject", msg.Subject,
	)
	if s.metrics != nil {
		s.metrics.IncrementResends(mode)
	}

	if s.alertEveryResend {
		s.notifier.ResendAlert(ctx, event)
	}
	s.monitor.Evaluate(ctx)

	return nil
}

func (s *Service) actor(ctx context.Context) string {
	if actor := requestcontext.Actor(ctx); actor != "" {
		return actor
	}
	return auth.DefaultActor
}

func (s *Service) failed(ctx context.Context, step, merchantEmail string, err error) {
	s.logger.ErrorContext(ctx, "resend failed",
		"request_id", requestcontext.RequestID(ctx),
		"step", step,
		"merchant_email", merchantEmail,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.IncrementResendFailures()
	}
}
