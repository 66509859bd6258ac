package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only notification kind acted upon; every
// other kind is acknowledged and ignored.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrSignatureInvalid is returned when the signature header does not
// authenticate the payload. Nothing downstream may run in that case.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// CompletedCheckout is the payload slice the billing service consumes.
type CompletedCheckout struct {
	SessionID   string
	UserID      string
	Plan        string
	AmountMinor int64
	Status      string
}

// VerifyEvent authenticates an asynchronously delivered notification
// against the shared signing secret before its payload is trusted.
// The provider's scheme includes a timestamped HMAC with a replay window.
func VerifyEvent(payload []byte, signatureHeader, secret string) (*stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return &event, nil
}

// ParseCompletedCheckout extracts the completed-checkout fields from a
// verified event.
func ParseCompletedCheckout(event *stripe.Event) (*CompletedCheckout, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	return &CompletedCheckout{
		SessionID:   sess.ID,
		UserID:      sess.Metadata[metadataUserID],
		Plan:        sess.Metadata[metadataPlan],
		AmountMinor: sess.AmountTotal,
		Status:      string(sess.PaymentStatus),
	}, nil
}
