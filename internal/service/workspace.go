package service

import (
	"context"
	"strings"
	"time"

	"github.com/maildeck/maildeck/internal/mail"
	"github.com/maildeck/maildeck/internal/metrics"
	"github.com/maildeck/maildeck/internal/model"
)

// MailFetcher obtains message summaries from the mail provider using a
// stored refresh credential. *mail.Adapter implements it.
type MailFetcher interface {
	MessagesMatching(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error)
	MessagesMatchingBroad(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error)
	RecentMessages(ctx context.Context, refreshToken string) ([]model.EmailMessage, error)
}

// WorkspaceService orchestrates workspace/list mutations and the mail
// queries they imply.
type WorkspaceService struct {
	store   UserStore
	mail    MailFetcher
	metrics metrics.Recorder
	now     func() time.Time
}

// NewWorkspaceService creates a WorkspaceService.
func NewWorkspaceService(store UserStore, mail MailFetcher, recorder metrics.Recorder) *WorkspaceService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &WorkspaceService{
		store:   store,
		mail:    mail,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateWorkspace adds a workspace to the user's collection.
// Duplicate names are rejected by the store's uniqueness predicate.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, userID, name, imageURL string) (*model.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	ws := model.Workspace{
		Name:      name,
		ImageURL:  imageURL,
		CreatedAt: s.now().UTC(),
		Lists:     []model.List{},
	}
	if err := s.store.AddWorkspace(ctx, userID, ws); err != nil {
		return nil, mapStoreErr(err)
	}
	return &ws, nil
}

// ListWorkspaces returns the caller's workspaces.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, userID string) ([]model.Workspace, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user.Workspaces, nil
}

// GetWorkspace returns one workspace by name.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, userID, name string) (*model.Workspace, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	ws := user.FindWorkspace(name)
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}
	return ws, nil
}

// DeleteWorkspace removes a workspace and everything under it.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, userID, name string) error {
	return mapStoreErr(s.store.RemoveWorkspace(ctx, userID, name))
}

// CreateList fetches the messages matching the list name, then records the
// list under the workspace, creating the workspace first if it does not
// exist (an explicit create-if-absent contract).
//
// The mail fetch is all-or-nothing; nothing is recorded when it fails.
// An already-existing list is an upsert: the fetch result is returned and
// the stored list is left as it was.
func (s *WorkspaceService) CreateList(ctx context.Context, userID, workspaceName, listName string) ([]model.EmailMessage, error) {
	workspaceName = strings.TrimSpace(workspaceName)
	listName = strings.TrimSpace(listName)
	if workspaceName == "" || listName == "" {
		return nil, ErrNameRequired
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	emails, err := s.fetchForList(ctx, user.RefreshToken, listName)
	if err != nil {
		return nil, err
	}

	if err := s.ensureWorkspace(ctx, userID, workspaceName); err != nil {
		return nil, err
	}

	list := model.List{Name: listName, CreatedAt: s.now().UTC()}
	if err := mapStoreErr(s.store.AddList(ctx, userID, workspaceName, list)); err != nil && err != ErrListExists {
		return nil, err
	}

	return emails, nil
}

// DeleteList removes a list from a workspace by name.
func (s *WorkspaceService) DeleteList(ctx context.Context, userID, workspaceName, listName string) error {
	return mapStoreErr(s.store.RemoveList(ctx, userID, workspaceName, listName))
}

// WorkspaceEmails aggregates, per list, the messages matching the list
// name against sender or subject. Lists with no matches are skipped.
func (s *WorkspaceService) WorkspaceEmails(ctx context.Context, userID, workspaceName string) ([]model.EmailMessage, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	ws := user.FindWorkspace(workspaceName)
	if ws == nil {
		return nil, ErrWorkspaceNotFound
	}

	all := []model.EmailMessage{}
	for _, list := range ws.Lists {
		emails, err := s.fetchBroad(ctx, user.RefreshToken, list.Name)
		if err != nil {
			return nil, err
		}
		for i := range emails {
			emails[i].ListName = list.Name
		}
		all = append(all, emails...)
	}
	return all, nil
}

// RecentBySender returns the newest mailbox page grouped by sender
// display name.
func (s *WorkspaceService) RecentBySender(ctx context.Context, userID string) (map[string][]model.EmailMessage, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	start := s.now()
	emails, err := s.mail.RecentMessages(ctx, user.RefreshToken)
	s.observeFetch(start, err)
	if err != nil {
		return nil, err
	}
	return mail.GroupBySender(emails), nil
}

func (s *WorkspaceService) ensureWorkspace(ctx context.Context, userID, name string) error {
	ws := model.Workspace{
		Name:      name,
		CreatedAt: s.now().UTC(),
		Lists:     []model.List{},
	}
	err := mapStoreErr(s.store.AddWorkspace(ctx, userID, ws))
	if err == ErrWorkspaceExists {
		return nil
	}
	return err
}

func (s *WorkspaceService) fetchForList(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error) {
	start := s.now()
	emails, err := s.mail.MessagesMatching(ctx, refreshToken, key)
	s.observeFetch(start, err)
	return emails, err
}

func (s *WorkspaceService) fetchBroad(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error) {
	start := s.now()
	emails, err := s.mail.MessagesMatchingBroad(ctx, refreshToken, key)
	s.observeFetch(start, err)
	return emails, err
}

func (s *WorkspaceService) observeFetch(start time.Time, err error) {
	s.metrics.ObserveMailFetchDuration(time.Since(start))
	if err != nil {
		s.metrics.IncMailFetch("failed")
		return
	}
	s.metrics.IncMailFetch("success")
}
