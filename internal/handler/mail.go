package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/maildeck/maildeck/internal/auth"
	"github.com/maildeck/maildeck/internal/handler/dto"
	"github.com/maildeck/maildeck/internal/mail"
	"github.com/maildeck/maildeck/internal/service"
)

// MailHandler handles HTTP requests for the raw mailbox view.
type MailHandler struct {
	svc    *service.WorkspaceService
	logger *slog.Logger
}

// NewMailHandler creates a new MailHandler.
func NewMailHandler(svc *service.WorkspaceService, logger *slog.Logger) *MailHandler {
	return &MailHandler{
		svc:    svc,
		logger: logger.With("handler", "mail"),
	}
}

// Inbox handles GET /mail.
// Returns the newest mailbox page grouped by sender display name.
func (h *MailHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID

	grouped, err := h.svc.RecentBySender(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeErrorJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		case errors.Is(err, mail.ErrUpstream):
			writeErrorJSON(w, http.StatusBadGateway, "MAIL_UNAVAILABLE", "Mail provider request failed")
		default:
			h.logger.Error("internal_error", "error", err)
			writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.ToInboxResponse(grouped))
}
