// Package handler wires the resend console routes. Response shapes follow
// the tool's long-standing JSON contract: every mutation route answers with a
// "status" field, and an auto-resend that finds nothing answers 200 with an
// error body, which the console front end relies on.
package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"remail/internal/resend/models"
	dErrors "remail/pkg/domain-errors"
	"remail/pkg/platform/httputil"
	"remail/pkg/requestcontext"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Service defines the resend operations the handler drives.
type Service interface {
	Search(ctx context.Context, merchantEmail string) ([]models.MailboxEntry, error)
	Resend(ctx context.Context, emailID, merchantEmail string) error
	AutoResend(ctx context.Context, merchantEmail string) (string, error)
	Logs(ctx context.Context) ([]models.ResendEvent, error)
}

// Handler wires console endpoints to the resend service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a resend handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts console endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Post("/search", h.HandleSearch)
	r.Post("/resend", h.HandleResend)
	r.Post("/auto-resend", h.HandleAutoResend)
	r.Get("/logs", h.HandleLogs)
}

// HandleIndex renders the console landing page.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Actor(r.Context())
	if actor == "" {
		actor = "Admin"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, map[string]string{"User": actor}); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render index", "error", err)
	}
}

// HandleSearch handles POST /search. A missing merchant_email answers an
// empty array without touching the mailbox.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantEmail := r.FormValue("merchant_email")
	if merchantEmail == "" {
		httputil.WriteJSON(w, http.StatusOK, []models.MailboxEntry{})
		return
	}

	entries, err := h.service.Search(ctx, merchantEmail)
	if err != nil {
		h.logError(ctx, "search failed", merchantEmail, err)
		writeStatusError(w, http.StatusInternalServerError, dErrors.MessageOf(err))
		return
	}
	if entries == nil {
		entries = []models.MailboxEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleResend handles POST /resend.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	emailID := r.FormValue("email_id")
	merchantEmail := r.FormValue("merchant_email")
	if emailID == "" || merchantEmail == "" {
		writeStatusError(w, http.StatusBadRequest, "Missing email_id or merchant_email")
		return
	}

	if err := h.service.Resend(ctx, emailID, merchantEmail); err != nil {
		h.logError(ctx, "resend failed", merchantEmail, err)
		writeStatusError(w, http.StatusInternalServerError, dErrors.MessageOf(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleAutoResend handles POST /auto-resend.
func (h *Handler) HandleAutoResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	merchantEmail := r.FormValue("merchant_email")
	if merchantEmail == "" {
		writeStatusError(w, http.StatusBadRequest, "Missing merchant_email")
		return
	}

	subject, err := h.service.AutoResend(ctx, merchantEmail)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeNotFound {
			// Historic contract: an empty search result is a 200 with an
			// error body, not a 404.
			writeStatusError(w, http.StatusOK, dErrors.MessageOf(err))
			return
		}
		h.logError(ctx, "auto resend failed", merchantEmail, err)
		writeStatusError(w, http.StatusInternalServerError, dErrors.MessageOf(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":         "success",
		"resent_subject": subject,
	})
}

// HandleLogs handles GET /logs, returning the full audit trail in store order.
func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.Logs(r.Context())
	if err != nil {
		h.logError(r.Context(), "loading logs failed", "", err)
		writeStatusError(w, http.StatusInternalServerError, dErrors.MessageOf(err))
		return
	}
	if events == nil {
		events = []models.ResendEvent{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) logError(ctx context.Context, msg, merchantEmail string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"merchant_email", merchantEmail,
		"error", err,
	)
}

func writeStatusError(w http.ResponseWriter, status int, message string) {
	httputil.WriteJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
