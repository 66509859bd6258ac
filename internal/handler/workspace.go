package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maildeck/maildeck/internal/auth"
	"github.com/maildeck/maildeck/internal/handler/dto"
	"github.com/maildeck/maildeck/internal/mail"
	"github.com/maildeck/maildeck/internal/service"
)

// WorkspaceHandler handles HTTP requests for workspace and list operations.
type WorkspaceHandler struct {
	svc    *service.WorkspaceService
	logger *slog.Logger
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(svc *service.WorkspaceService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		svc:    svc,
		logger: logger.With("handler", "workspace"),
	}
}

// Create handles POST /workspaces.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID

	var req dto.CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	ws, err := h.svc.CreateWorkspace(r.Context(), userID, req.Name, req.ImageURL)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("workspace_created",
		"user_id", userID,
		"workspace", ws.Name,
	)

	writeJSON(w, http.StatusCreated, dto.ToWorkspaceResponse(ws))
}

// List handles GET /workspaces.
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID

	workspaces, err := h.svc.ListWorkspaces(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWorkspaceListResponse(workspaces))
}

// Get handles GET /workspaces/{name}.
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID
	name := chi.URLParam(r, "name")

	ws, err := h.svc.GetWorkspace(r.Context(), userID, name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToWorkspaceResponse(ws))
}

// Delete handles DELETE /workspaces/{name}.
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID
	name := chi.URLParam(r, "name")

	if err := h.svc.DeleteWorkspace(r.Context(), userID, name); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("workspace_deleted", "user_id", userID, "workspace", name)
	w.WriteHeader(http.StatusNoContent)
}

// CreateList handles POST /workspaces/{name}/lists/{listName}.
// Fetches the matching mail first; the list (and, if needed, the
// workspace) is recorded only when the fetch succeeds.
func (h *WorkspaceHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID
	workspaceName := chi.URLParam(r, "name")
	listName := chi.URLParam(r, "listName")

	emails, err := h.svc.CreateList(r.Context(), userID, workspaceName, listName)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("list_created",
		"user_id", userID,
		"workspace", workspaceName,
		"list", listName,
		"matched", len(emails),
	)

	writeJSON(w, http.StatusCreated, dto.ToEmailListResponse(emails))
}

// DeleteList handles DELETE /workspaces/{name}/lists/{listName}.
func (h *WorkspaceHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID
	workspaceName := chi.URLParam(r, "name")
	listName := chi.URLParam(r, "listName")

	if err := h.svc.DeleteList(r.Context(), userID, workspaceName, listName); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("list_deleted",
		"user_id", userID,
		"workspace", workspaceName,
		"list", listName,
	)
	w.WriteHeader(http.StatusNoContent)
}

// Emails handles GET /workspaces/{name}/emails.
// Aggregates the current matches of every list in the workspace.
func (h *WorkspaceHandler) Emails(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID
	name := chi.URLParam(r, "name")

	emails, err := h.svc.WorkspaceEmails(r.Context(), userID, name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToEmailListResponse(emails))
}

// handleServiceError maps service errors to HTTP responses.
func (h *WorkspaceHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNameRequired):
		writeErrorJSON(w, http.StatusBadRequest, "NAME_REQUIRED", "Name is required")
	case errors.Is(err, service.ErrUserNotFound):
		writeErrorJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, service.ErrWorkspaceNotFound):
		writeErrorJSON(w, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace not found")
	case errors.Is(err, service.ErrWorkspaceExists):
		writeErrorJSON(w, http.StatusConflict, "WORKSPACE_EXISTS", "Workspace already exists")
	case errors.Is(err, service.ErrListNotFound):
		writeErrorJSON(w, http.StatusNotFound, "LIST_NOT_FOUND", "List not found")
	case errors.Is(err, service.ErrListExists):
		writeErrorJSON(w, http.StatusConflict, "LIST_EXISTS", "List already exists")
	case errors.Is(err, mail.ErrUpstream):
		writeErrorJSON(w, http.StatusBadGateway, "MAIL_UNAVAILABLE", "Mail provider request failed")
	default:
		h.logger.Error("internal_error", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
