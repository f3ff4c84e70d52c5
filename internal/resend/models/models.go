// Package models holds the resend domain types shared by stores, services,
// and handlers.
package models

import "time"

// ResendEvent is one audit record per resend action. Records are created
// exactly once per successful resend, appended to the audit log, and never
// mutated or deleted.
type ResendEvent struct {
	Time          time.Time `json:"time"`
	User          string    `json:"user"`
	MerchantEmail string    `json:"merchant_email"`
	Subject       string    `json:"subject"`
}

// MailboxEntry is one search hit in the merchant's mailbox. ID is the IMAP
// sequence number of the message; Date is the raw header-style date string.
type MailboxEntry struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// MailMessage is a fetched message ready for resending.
type MailMessage struct {
	Subject  string
	HTMLBody string
}

// MerchantCount is one row of a per-merchant breakdown, ordered by first
// appearance in the evaluated window.
type MerchantCount struct {
	MerchantEmail string
	Count         int
}
