// Package mail adapts the Gmail API: it lists message ids for a query,
// fans out the per-message detail fetches, and composes message summaries.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/maildeck/maildeck/internal/model"
)

// pageSize bounds every mailbox listing to one provider page.
const pageSize = 100

// fetchConcurrency caps the number of in-flight detail fetches.
const fetchConcurrency = 10

// ErrUpstream is returned when the mail provider rejects or fails a call.
var ErrUpstream = errors.New("mail provider request failed")

// Header fallbacks when the provider omits Subject or From.
const (
	fallbackSubject = "No Subject"
	fallbackSender  = "Unknown Sender"
)

// TokenSourceFunc builds a self-refreshing token source from a stored
// refresh credential.
type TokenSourceFunc func(ctx context.Context, refreshToken string) oauth2.TokenSource

// messageDetail is the provider-shape-independent view of one message.
type messageDetail struct {
	ID      string
	Snippet string
	Headers map[string]string
}

// mailAPI is the slice of the Gmail API the adapter uses. Tests substitute
// a fake; production wraps the generated client.
type mailAPI interface {
	ListIDs(ctx context.Context, query string, max int64) ([]string, error)
	Get(ctx context.Context, id string) (*messageDetail, error)
}

// Adapter fetches message summaries for the authenticated mailbox.
type Adapter struct {
	tokenSource TokenSourceFunc
	timeout     time.Duration

	// newAPI is replaceable in tests.
	newAPI func(ctx context.Context, refreshToken string) (mailAPI, error)
}

// NewAdapter creates a Gmail adapter. tokenSource typically comes from the
// identity client, which owns the OAuth2 configuration.
func NewAdapter(tokenSource TokenSourceFunc, timeout time.Duration) *Adapter {
	a := &Adapter{
		tokenSource: tokenSource,
		timeout:     timeout,
	}
	a.newAPI = a.newGmailAPI
	return a
}

func (a *Adapter) newGmailAPI(ctx context.Context, refreshToken string) (mailAPI, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(a.tokenSource(ctx, refreshToken)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &gmailAPI{svc: svc}, nil
}

// MessagesMatching returns up to one page of messages whose sender matches
// the key, with full details fetched.
func (a *Adapter) MessagesMatching(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error) {
	return a.fetch(ctx, refreshToken, fromQuery(key))
}

// MessagesMatchingBroad matches the key against sender or subject.
func (a *Adapter) MessagesMatchingBroad(ctx context.Context, refreshToken, key string) ([]model.EmailMessage, error) {
	return a.fetch(ctx, refreshToken, fromOrSubjectQuery(key))
}

// RecentMessages returns the newest page of the mailbox, unfiltered.
func (a *Adapter) RecentMessages(ctx context.Context, refreshToken string) ([]model.EmailMessage, error) {
	return a.fetch(ctx, refreshToken, "")
}

// fetch lists matching ids and scatter/gathers the detail fetches.
// The join is all-or-nothing: the first failed sibling fails the batch.
func (a *Adapter) fetch(ctx context.Context, refreshToken, query string) ([]model.EmailMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	api, err := a.newAPI(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	ids, err := api.ListIDs(ctx, query, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", ErrUpstream, err)
	}
	if len(ids) == 0 {
		return []model.EmailMessage{}, nil
	}

	out := make([]model.EmailMessage, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			detail, err := api.Get(gctx, id)
			if err != nil {
				return fmt.Errorf("%w: get message %s: %v", ErrUpstream, id, err)
			}
			out[i] = toEmailMessage(detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// toEmailMessage extracts the summary fields with explicit fallbacks.
func toEmailMessage(d *messageDetail) model.EmailMessage {
	subject := d.Headers["Subject"]
	if subject == "" {
		subject = fallbackSubject
	}
	from := d.Headers["From"]
	if from == "" {
		from = fallbackSender
	}
	return model.EmailMessage{
		ID:      d.ID,
		Subject: subject,
		From:    from,
		Snippet: d.Snippet,
	}
}

// GroupBySender buckets messages by sender display name (the part of the
// From header before any angle-bracketed address).
func GroupBySender(messages []model.EmailMessage) map[string][]model.EmailMessage {
	grouped := make(map[string][]model.EmailMessage)
	for _, m := range messages {
		grouped[senderKey(m.From)] = append(grouped[senderKey(m.From)], m)
	}
	return grouped
}

func senderKey(from string) string {
	name, _, found := strings.Cut(from, "<")
	if found {
		name = strings.TrimSpace(name)
		if name != "" {
			return name
		}
	}
	return strings.TrimSpace(from)
}

// gmailAPI wraps the generated Gmail client.
type gmailAPI struct {
	svc *gmail.Service
}

func (g *gmailAPI) ListIDs(ctx context.Context, query string, max int64) ([]string, error) {
	call := g.svc.Users.Messages.List("me").MaxResults(max).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (g *gmailAPI) Get(ctx context.Context, id string) (*messageDetail, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).
		Format("metadata").
		MetadataHeaders("Subject", "From").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[h.Name] = h.Value
		}
	}
	return &messageDetail{
		ID:      msg.Id,
		Snippet: msg.Snippet,
		Headers: headers,
	}, nil
}
