// Package identity adapts the Google OAuth2 authorization-code flow.
// It exchanges a redirected code for credentials and a profile; it is
// responsible for nothing else.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Scopes requested from the identity provider: profile, email, and the
// mailbox scopes the mail adapter needs.
var scopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
}

// ErrExchangeFailed is returned when the provider rejects the code exchange.
var ErrExchangeFailed = errors.New("authorization code exchange failed")

// Profile is the subset of the provider profile the application uses.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Credentials holds the provider-issued tokens. RefreshToken may be empty
// on repeat exchanges when the provider does not rotate it.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Client performs the authorization-code exchange against Google.
type Client struct {
	conf        *oauth2.Config
	userinfoURL string
	timeout     time.Duration
}

// NewClient creates an identity client for the registered OAuth2 app.
func NewClient(clientID, clientSecret, redirectURL string, timeout time.Duration) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		userinfoURL: defaultUserinfoURL,
		timeout:     timeout,
	}
}

// AuthCodeURL builds the consent page URL. Offline access with forced
// consent so a refresh token is issued on every grant.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for credentials and the profile.
func (c *Client) Exchange(ctx context.Context, code string) (*Profile, *Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	profile, err := c.fetchProfile(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	return profile, creds, nil
}

// TokenSource returns a self-refreshing token source for a stored refresh
// credential. The mail adapter authenticates with this.
func (c *Client) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

func (c *Client) fetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	resp, err := c.conf.Client(ctx, token).Get(c.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, errors.New("provider profile missing id or email")
	}
	return &profile, nil
}
