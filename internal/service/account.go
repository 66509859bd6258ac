package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/metrics"
	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/repository"
)

// ErrDomainNotAllowed is returned when the authenticated email is not on
// the allowed consumer-mail domain. No record is created or updated.
var ErrDomainNotAllowed = errors.New("email domain not allowed")

// IdentityExchanger trades an authorization code for a profile and
// credentials. *identity.Client implements it.
type IdentityExchanger interface {
	Exchange(ctx context.Context, code string) (*identity.Profile, *identity.Credentials, error)
}

// AccountService implements the external-identity exchange rules.
type AccountService struct {
	store         UserStore
	exchanger     IdentityExchanger
	allowedDomain string
	adminEmail    string
	metrics       metrics.Recorder
	now           func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(store UserStore, exchanger IdentityExchanger, allowedDomain, adminEmail string, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		store:         store,
		exchanger:     exchanger,
		allowedDomain: strings.ToLower(allowedDomain),
		adminEmail:    adminEmail,
		metrics:       recorder,
		now:           time.Now,
	}
}

// SignIn exchanges the redirected authorization code, enforces the domain
// gate, and creates or refreshes the user record.
//
// Repeated sign-ins with unchanged profile and credentials are a no-op:
// the record is persisted only when at least one field differs.
func (s *AccountService) SignIn(ctx context.Context, code string) (*model.User, error) {
	profile, creds, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		s.metrics.IncLoginRefused("exchange")
		return nil, err
	}

	if !s.domainAllowed(profile.Email) {
		s.metrics.IncLoginRefused("domain")
		return nil, ErrDomainNotAllowed
	}

	user, err := s.store.GetUserByGoogleID(ctx, profile.ID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user, err = s.createUser(ctx, profile, creds)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := s.refreshUser(ctx, user, profile, creds); err != nil {
			return nil, err
		}
	}

	s.metrics.IncLoginSucceeded()
	return user, nil
}

// GetUser loads a user by id.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user, nil
}

// ListUsers returns all accounts. Admin-only callers.
func (s *AccountService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *AccountService) domainAllowed(email string) bool {
	_, domain, found := strings.Cut(strings.ToLower(email), "@")
	return found && domain == s.allowedDomain
}

func (s *AccountService) createUser(ctx context.Context, profile *identity.Profile, creds *identity.Credentials) (*model.User, error) {
	user := &model.User{
		GoogleID:     profile.ID,
		Email:        profile.Email,
		DisplayName:  profile.Name,
		ProfileImage: profile.Picture,
		// The admin flag is set once, at creation, and never revoked.
		IsAdmin:      s.adminEmail != "" && profile.Email == s.adminEmail,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		CreatedAt:    s.now().UTC(),
	}

	err := s.store.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrEmailExists) {
		// Lost a creation race; the other writer's record wins.
		return s.store.GetUserByGoogleID(ctx, profile.ID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// refreshUser persists the freshly received profile image and credentials,
// but only when at least one of them actually changed.
func (s *AccountService) refreshUser(ctx context.Context, user *model.User, profile *identity.Profile, creds *identity.Credentials) error {
	changed := user.ProfileImage != profile.Picture ||
		user.AccessToken != creds.AccessToken ||
		(creds.RefreshToken != "" && user.RefreshToken != creds.RefreshToken)
	if !changed {
		return nil
	}

	if err := s.store.UpdateCredentials(ctx, user.ID.Hex(), profile.Picture, creds.AccessToken, creds.RefreshToken); err != nil {
		return mapStoreErr(err)
	}

	user.ProfileImage = profile.Picture
	user.AccessToken = creds.AccessToken
	if creds.RefreshToken != "" {
		user.RefreshToken = creds.RefreshToken
	}
	return nil
}
