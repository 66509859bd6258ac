package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/payment"
	"github.com/maildeck/maildeck/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserStore is a minimal in-memory service.UserStore for handler tests.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) seed(user *model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users[user.ID.Hex()] = user
	return user
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GoogleID == user.GoogleID {
			return repository.ErrEmailExists
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID.Hex()] = user
	return nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeUserStore) UpdateCredentials(ctx context.Context, id, profileImage, accessToken, refreshToken string) error {
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
	return nil
}

func (f *fakeUserStore) AddWorkspace(ctx context.Context, userID string, ws model.Workspace) error {
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
	return nil
}

func (f *fakeUserStore) RemoveWorkspace(ctx context.Context, userID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for i := range user.Workspaces {
		if user.Workspaces[i].Name == name {
			user.Workspaces = append(user.Workspaces[:i], user.Workspaces[i+1:]...)
			return nil
		}
	}
	return repository.ErrWorkspaceNotFound
}

func (f *fakeUserStore) AddList(ctx context.Context, userID, workspaceName string, list model.List) error {
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
	return nil
}

func (f *fakeUserStore) RemoveList(ctx context.Context, userID, workspaceName, listName string) error {
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
			return nil
		}
	}
	return repository.ErrListNotFound
}

func (f *fakeUserStore) AppendTransaction(ctx context.Context, userID string, tx model.Transaction) error {
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
	return nil
}

// fakeMail serves canned mail summaries keyed by query key.
type fakeMail struct {
	byKey  map[string][]model.EmailMessage
	recent []model.EmailMessage
	err    error
}

func (f *fakeMail) MessagesMatching(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byKey[key], nil
}

func (f *fakeMail) MessagesMatchingBroad(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byKey[key], nil
}

func (f *fakeMail) RecentMessages(ctx context.Context, refreshToken string) ([]model.EmailMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

// fakeCheckout returns a canned checkout session.
type fakeCheckout struct {
	session *payment.CheckoutSession
	err     error
}

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// fakeExchanger returns a canned identity exchange result.
type fakeExchanger struct {
	profile *identity.Profile
	creds   *identity.Credentials
	err     error
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) (*identity.Profile, *identity.Credentials, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.profile, f.creds, nil
}

// fakeSessionStore records sessions in memory.
type fakeSessionStore struct {
	mu      sync.Mutex
	byHash  map[string]*model.AuthContext
	setErr  error
	deleted []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byHash: make(map[string]*model.AuthContext)}
}

func (f *fakeSessionStore) SetSession(ctx context.Context, tokenHash string, authCtx *model.AuthContext, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.byHash[tokenHash] = authCtx
	return nil
}

func (f *fakeSessionStore) DeleteSession(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byHash, tokenHash)
	f.deleted = append(f.deleted, tokenHash)
	return nil
}

// fakeURLBuilder returns a deterministic consent URL.
type fakeURLBuilder struct{}

func (fakeURLBuilder) AuthCodeURL(state string) string {
	return "https://accounts.example/consent?state=" + state
}
