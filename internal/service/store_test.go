package service

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/repository"
)

// fakeStore is an in-memory UserStore with the same error semantics as
// the repository.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*model.User // keyed by hex id
	writes  int                    // mutating calls that reached the store
	failAll error                  // when set, every call fails with it
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*model.User)}
}

func (f *fakeStore) seed(user *model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users[user.ID.Hex()] = user
	return user
}

func (f *fakeStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	for _, u := range f.users {
		if u.Email == user.Email || u.GoogleID == user.GoogleID {
			return repository.ErrEmailExists
		}
	}
	user.ID = primitive.NewObjectID()
	if user.Workspaces == nil {
		user.Workspaces = []model.Workspace{}
	}
	f.users[user.ID.Hex()] = user
	f.writes++
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	for _, u := range f.users {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeStore) UpdateCredentials(ctx context.Context, id, profileImage, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.ProfileImage = profileImage
	user.AccessToken = accessToken
	if refreshToken != "" {
		user.RefreshToken = refreshToken
	}
	f.writes++
	return nil
}

func (f *fakeStore) AddWorkspace(ctx context.Context, userID string, ws model.Workspace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if user.FindWorkspace(ws.Name) != nil {
		return repository.ErrWorkspaceExists
	}
	user.Workspaces = append(user.Workspaces, ws)
	f.writes++
	return nil
}

func (f *fakeStore) RemoveWorkspace(ctx context.Context, userID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for i := range user.Workspaces {
		if user.Workspaces[i].Name == name {
			user.Workspaces = append(user.Workspaces[:i], user.Workspaces[i+1:]...)
			f.writes++
			return nil
		}
	}
	return repository.ErrWorkspaceNotFound
}

func (f *fakeStore) AddList(ctx context.Context, userID, workspaceName string, list model.List) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	ws := user.FindWorkspace(workspaceName)
	if ws == nil {
		return repository.ErrWorkspaceNotFound
	}
	if ws.FindList(list.Name) != nil {
		return repository.ErrListExists
	}
	ws.Lists = append(ws.Lists, list)
	f.writes++
	return nil
}

func (f *fakeStore) RemoveList(ctx context.Context, userID, workspaceName, listName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	ws := user.FindWorkspace(workspaceName)
	if ws == nil {
		return repository.ErrWorkspaceNotFound
	}
	for i := range ws.Lists {
		if ws.Lists[i].Name == listName {
			ws.Lists = append(ws.Lists[:i], ws.Lists[i+1:]...)
			f.writes++
			return nil
		}
	}
	return repository.ErrListNotFound
}

func (f *fakeStore) AppendTransaction(ctx context.Context, userID string, tx model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if len(user.Transactions) > 0 {
		return repository.ErrAlreadyPaid
	}
	user.Transactions = append(user.Transactions, tx)
	f.writes++
	return nil
}
