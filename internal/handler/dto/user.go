// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/maildeck/maildeck/internal/model"
)

// UserResponse represents the authenticated user in API responses.
// Provider credentials never leave the server.
type UserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	ProfileImage string    `json:"profile_image,omitempty"`
	HomeImage    string    `json:"home_image,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	HasPaid      bool      `json:"has_paid"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserListResponse represents the admin account listing.
type UserListResponse struct {
	Data  []UserResponse `json:"data"`
	Total int            `json:"total"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:           user.ID.Hex(),
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		ProfileImage: user.ProfileImage,
		HomeImage:    user.HomeImage,
		Bio:          user.Bio,
		IsAdmin:      user.IsAdmin,
		HasPaid:      user.HasPaid(),
		CreatedAt:    user.CreatedAt,
	}
}

// ToUserListResponse converts a slice of User models to UserListResponse.
func ToUserListResponse(users []*model.User) *UserListResponse {
	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = *ToUserResponse(user)
	}
	return &UserListResponse{
		Data:  responses,
		Total: len(responses),
	}
}
