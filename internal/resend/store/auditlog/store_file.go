// Package auditlog persists the resend audit trail as a single JSON array
// file, rewritten in full on every append. Volume is low enough that
// read-modify-write beats carrying a real database for an ops tool.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"remail/internal/resend/models"
	dErrors "remail/pkg/domain-errors"
)

// Timestamp layouts accepted when reading. New records are written as
// RFC3339Nano UTC; the zoneless layout covers files produced by the previous
// generation of this tool, whose naive timestamps were implicitly UTC.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

// eventRecord is the on-disk shape. Time stays a string during decode so one
// malformed timestamp can be skipped without losing the rest of the file.
type eventRecord struct {
	Time          string `json:"time"`
	User          string `json:"user"`
	MerchantEmail string `json:"merchant_email"`
	Subject       string `json:"subject"`
}

// FileStore is a mutex-serialized, file-backed event store.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store backed by the JSON array file at path. The
// file is created on first append.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Append reads the full array, appends the event, and rewrites the file.
// Unlike reads, write failures propagate to the caller.
func (s *FileStore) Append(ctx context.Context, event models.ResendEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadRecords(ctx)
	records = append(records, eventRecord{
		Time:          event.Time.UTC().Format(time.RFC3339Nano),
		User:          event.User,
		MerchantEmail: event.MerchantEmail,
		Subject:       event.Subject,
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode resend log")
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write resend log")
	}
	return nil
}

// LoadAll returns every stored event in insertion order. A missing,
// unreadable, or corrupt file is treated as empty history; a record whose
// timestamp cannot be parsed is skipped, keeping the rest readable.
func (s *FileStore) LoadAll(ctx context.Context) ([]models.ResendEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadRecords(ctx)
	events := make([]models.ResendEvent, 0, len(records))
	for _, rec := range records {
		ts, err := parseTimestamp(rec.Time)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping resend log record with bad timestamp",
				"time", rec.Time,
				"merchant_email", rec.MerchantEmail,
				"error", err,
			)
			continue
		}
		events = append(events, models.ResendEvent{
			Time:          ts,
			User:          rec.User,
			MerchantEmail: rec.MerchantEmail,
			Subject:       rec.Subject,
		})
	}
	return events, nil
}

// loadRecords reads the raw array, failing soft. Callers hold s.mu.
func (s *FileStore) loadRecords(ctx context.Context) []eventRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.WarnContext(ctx, "resend log unreadable, treating as empty",
				"path", s.path,
				"error", err,
			)
		}
		return nil
	}

	var records []eventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.WarnContext(ctx, "resend log corrupt, treating as empty",
			"path", s.path,
			"error", err,
		)
		return nil
	}
	return records
}

func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.ParseInLocation(legacyTimeLayout, value, time.UTC)
}
