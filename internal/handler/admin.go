package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/maildeck/maildeck/internal/handler/dto"
	"github.com/maildeck/maildeck/internal/model"
)

// AdminUserLister defines the interface for listing accounts.
type AdminUserLister interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// AdminHandler provides admin-only endpoints for operations.
type AdminHandler struct {
	users  AdminUserLister
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users AdminUserLister, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		users:  users,
		logger: logger.With("handler", "admin"),
	}
}

// ListUsers handles GET /admin/users.
// Returns every account; credentials are stripped by the DTO.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		h.logger.Error("admin user listing failed", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserListResponse(users))
}
