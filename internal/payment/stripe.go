// Package payment adapts the Stripe API: hosted checkout session creation
// and webhook event verification.
package payment

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrUpstream is returned when the payment provider rejects or fails a call.
var ErrUpstream = errors.New("payment provider request failed")

// Metadata keys embedded in the checkout session. The webhook resolves the
// paying user from these; they are opaque to the provider.
const (
	metadataUserID = "user_id"
	metadataPlan   = "plan"
)

// CheckoutSession is the handle returned to the caller. Card data never
// transits this system; the provider owns the hosted page.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutInput describes one hosted checkout request.
type CheckoutInput struct {
	PriceID string
	UserID  string
	Plan    string
}

// Client creates hosted checkout sessions.
type Client struct {
	api        *client.API
	successURL string
	cancelURL  string
}

// NewClient creates a payment client with the given secret key.
func NewClient(secretKey, successURL, cancelURL string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api:        api,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateCheckoutSession requests a subscription-mode hosted checkout
// session with the user's identifier embedded as metadata.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, in.UserID)
	params.AddMetadata(metadataPlan, in.Plan)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrUpstream, err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
