// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"

	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/repository"
)

// UserStore is the slice of the repository the services depend on.
// *repository.Repository implements it; tests substitute an in-memory fake.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateCredentials(ctx context.Context, id, profileImage, accessToken, refreshToken string) error
	AddWorkspace(ctx context.Context, userID string, ws model.Workspace) error
	RemoveWorkspace(ctx context.Context, userID, name string) error
	AddList(ctx context.Context, userID, workspaceName string, list model.List) error
	RemoveList(ctx context.Context, userID, workspaceName, listName string) error
	AppendTransaction(ctx context.Context, userID string, tx model.Transaction) error
}

// Service errors shared across the package.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrWorkspaceExists   = errors.New("workspace already exists")
	ErrListNotFound      = errors.New("list not found")
	ErrListExists        = errors.New("list already exists")
	ErrNameRequired      = errors.New("name is required")
	ErrAlreadyPaid       = errors.New("user already has a recorded payment")
)

// mapStoreErr translates repository sentinels into service sentinels so
// handlers only ever see this package's errors.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrWorkspaceNotFound):
		return ErrWorkspaceNotFound
	case errors.Is(err, repository.ErrWorkspaceExists):
		return ErrWorkspaceExists
	case errors.Is(err, repository.ErrListNotFound):
		return ErrListNotFound
	case errors.Is(err, repository.ErrListExists):
		return ErrListExists
	case errors.Is(err, repository.ErrAlreadyPaid):
		return ErrAlreadyPaid
	default:
		return err
	}
}
