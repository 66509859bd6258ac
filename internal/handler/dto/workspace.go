package dto

import (
	"time"

	"github.com/maildeck/maildeck/internal/model"
)

// CreateWorkspaceRequest represents the request body for creating a workspace.
type CreateWorkspaceRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// ListResponse represents a list in API responses.
type ListResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceResponse represents a workspace in API responses.
type WorkspaceResponse struct {
	Name      string         `json:"name"`
	ImageURL  string         `json:"image_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Lists     []ListResponse `json:"lists"`
}

// WorkspaceListResponse represents all of a user's workspaces.
type WorkspaceListResponse struct {
	Data  []WorkspaceResponse `json:"data"`
	Total int                 `json:"total"`
}

// EmailResponse represents a mail summary in API responses.
type EmailResponse struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Snippet  string `json:"snippet,omitempty"`
	ListName string `json:"list_name,omitempty"`
}

// EmailListResponse represents a set of mail summaries.
type EmailListResponse struct {
	Data  []EmailResponse `json:"data"`
	Total int             `json:"total"`
}

// InboxResponse represents the recent mailbox page grouped by sender.
type InboxResponse struct {
	Senders map[string][]EmailResponse `json:"senders"`
	Total   int                        `json:"total"`
}

// ToWorkspaceResponse converts a Workspace model to WorkspaceResponse DTO.
func ToWorkspaceResponse(ws *model.Workspace) *WorkspaceResponse {
	lists := make([]ListResponse, len(ws.Lists))
	for i, list := range ws.Lists {
		lists[i] = ListResponse{Name: list.Name, CreatedAt: list.CreatedAt}
	}
	return &WorkspaceResponse{
		Name:      ws.Name,
		ImageURL:  ws.ImageURL,
		CreatedAt: ws.CreatedAt,
		Lists:     lists,
	}
}

// ToWorkspaceListResponse converts a slice of Workspace models.
func ToWorkspaceListResponse(workspaces []model.Workspace) *WorkspaceListResponse {
	responses := make([]WorkspaceResponse, len(workspaces))
	for i := range workspaces {
		responses[i] = *ToWorkspaceResponse(&workspaces[i])
	}
	return &WorkspaceListResponse{
		Data:  responses,
		Total: len(responses),
	}
}

// ToEmailResponses converts mail summaries to DTOs.
func ToEmailResponses(emails []model.EmailMessage) []EmailResponse {
	responses := make([]EmailResponse, len(emails))
	for i, email := range emails {
		responses[i] = EmailResponse{
			ID:       email.ID,
			Subject:  email.Subject,
			From:     email.From,
			Snippet:  email.Snippet,
			ListName: email.ListName,
		}
	}
	return responses
}

// ToEmailListResponse wraps mail summaries in a list envelope.
func ToEmailListResponse(emails []model.EmailMessage) *EmailListResponse {
	responses := ToEmailResponses(emails)
	return &EmailListResponse{
		Data:  responses,
		Total: len(responses),
	}
}

// ToInboxResponse converts sender-grouped mail summaries.
func ToInboxResponse(grouped map[string][]model.EmailMessage) *InboxResponse {
	senders := make(map[string][]EmailResponse, len(grouped))
	total := 0
	for sender, emails := range grouped {
		senders[sender] = ToEmailResponses(emails)
		total += len(emails)
	}
	return &InboxResponse{
		Senders: senders,
		Total:   total,
	}
}
