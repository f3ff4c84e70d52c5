// Package sender implements ports.Sender against the Gmail REST API.
package sender

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	dErrors "remail/pkg/domain-errors"
)

const (
	defaultBaseURL = "https://gmail.googleapis.com"
	sendPath       = "/gmail/v1/users/me/messages/send"
	sendTimeout    = 15 * time.Second
)

// Gmail sends messages on behalf of the configured account.
type Gmail struct {
	token   string
	baseURL string
	client  *http.Client
}

type Option func(*Gmail)

// WithBaseURL overrides the API host. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(g *Gmail) {
		g.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// New builds a Gmail sender. token is the OAuth bearer token for the sending
// account; an empty token makes every Send fail, matching the "send
// credential absent" contract.
func New(token string, opts ...Option) *Gmail {
	g := &Gmail{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: sendTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send transmits an HTML message via users/me/messages/send.
func (g *Gmail) Send(ctx context.Context, to, subject, htmlBody string) error {
	if g.token == "" {
		return dErrors.New(dErrors.CodeUnavailable, "GMAIL_TOKEN not set")
	}

	raw := base64.URLEncoding.EncodeToString(buildRFC822(to, subject, htmlBody))
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode send request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+sendPath, bytes.NewReader(payload))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build send request")
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "send API unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("send API rejected the request: %s: %s", resp.Status, strings.TrimSpace(string(detail))))
	}
	return nil
}

// buildRFC822 assembles a minimal HTML mail with an encoded subject.
func buildRFC822(to, subject, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}
