// Package mailbox implements ports.Mailbox against an IMAP server.
//
// Each call dials a fresh IMAPS connection and logs out when done. The tool
// handles a handful of operator requests per day; connection pooling would
// only add reconnect edge cases.
package mailbox

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"remail/internal/platform/config"
	"remail/internal/resend/models"
	dErrors "remail/pkg/domain-errors"
)

const (
	dialTimeout    = 10 * time.Second
	commandTimeout = 30 * time.Second
)

// Client reads the operator mailbox over IMAP.
type Client struct {
	cfg config.IMAP
}

func New(cfg config.IMAP) *Client {
	return &Client{cfg: cfg}
}

// Search returns all INBOX messages from or to the merchant address, in
// mailbox (oldest-first) order. IDs are IMAP sequence numbers.
// go-imap v1 has no context plumbing; deadlines are enforced through the
// dial and command timeouts instead.
func (c *Client) Search(_ context.Context, merchantEmail string) ([]models.MailboxEntry, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	criteria := imap.NewSearchCriteria()
	criteria.Or = [][2]*imap.SearchCriteria{{
		{Header: textproto.MIMEHeader{"From": {merchantEmail}}},
		{Header: textproto.MIMEHeader{"To": {merchantEmail}}},
	}}

	seqNums, err := conn.Search(criteria)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox search failed")
	}
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)

	messages := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	var entries []models.MailboxEntry
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		entries = append(entries, models.MailboxEntry{
			ID:      strconv.FormatUint(uint64(msg.SeqNum), 10),
			Subject: msg.Envelope.Subject,
			Date:    msg.Envelope.Date.Format(time.RFC1123Z),
		})
	}
	if err := <-done; err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox fetch failed")
	}

	sort.Slice(entries, func(i, j int) bool {
		a, _ := strconv.Atoi(entries[i].ID)
		b, _ := strconv.Atoi(entries[j].ID)
		return a < b
	})
	return entries, nil
}

// Fetch returns the subject and body of one message by sequence number,
// preferring the text/html part and falling back to text/plain.
func (c *Client) Fetch(_ context.Context, id string) (models.MailMessage, error) {
	seqNum, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return models.MailMessage{}, dErrors.New(dErrors.CodeBadRequest, "invalid email id")
	}

	conn, err := c.connect()
	if err != nil {
		return models.MailMessage{}, err
	}
	defer conn.Logout()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(seqNum))

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return models.MailMessage{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox fetch failed")
	}
	if msg == nil {
		return models.MailMessage{}, dErrors.New(dErrors.CodeNotFound, "message not found")
	}

	body := msg.GetBody(section)
	if body == nil {
		return models.MailMessage{}, dErrors.New(dErrors.CodeUnavailable, "server returned no message body")
	}

	return parseMessage(body)
}

// connect dials, logs in, and selects INBOX read-only.
func (c *Client) connect() (*imapclient.Client, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := imapclient.DialWithDialerTLS(dialer, c.cfg.Addr(), nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox unreachable")
	}
	conn.Timeout = commandTimeout

	if err := conn.Login(c.cfg.Account, c.cfg.Password); err != nil {
		conn.Logout()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "mailbox login failed")
	}
	if _, err := conn.Select("INBOX", true); err != nil {
		conn.Logout()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to open inbox")
	}
	return conn, nil
}

// parseMessage extracts subject and the preferred body part from a raw
// RFC822 message.
func parseMessage(r io.Reader) (models.MailMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return models.MailMessage{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to parse message")
	}

	subject, err := mr.Header.Subject()
	if err != nil {
		subject = ""
	}

	var htmlBody, plainBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.MailMessage{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to parse message part")
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		switch contentType {
		case "text/html":
			if data, err := io.ReadAll(part.Body); err == nil && htmlBody == "" {
				htmlBody = string(data)
			}
		case "text/plain":
			if data, err := io.ReadAll(part.Body); err == nil && plainBody == "" {
				plainBody = string(data)
			}
		}
	}

	body := htmlBody
	if body == "" {
		body = plainBody
	}
	return models.MailMessage{Subject: subject, HTMLBody: body}, nil
}
