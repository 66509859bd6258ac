package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/maildeck/maildeck/internal/metrics"
	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/payment"
)

// ErrInvalidPlan is returned for plans other than monthly or yearly.
var ErrInvalidPlan = errors.New("invalid subscription plan")

// Subscription periods per plan.
const (
	monthlyPeriod = 30 * 24 * time.Hour
	yearlyPeriod  = 365 * 24 * time.Hour
)

// CheckoutCreator requests hosted checkout sessions from the payment
// provider. *payment.Client implements it.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error)
}

// BillingService drives the checkout flow and records completed payments.
//
// The payment state machine is NoPayment -> CheckoutCreated ->
// PaymentConfirmed; the confirmed state is a one-way gate. Renewal is not
// modelled: any recorded transaction rejects further ones.
type BillingService struct {
	store        UserStore
	checkout     CheckoutCreator
	priceForPlan func(plan string) string
	metrics      metrics.Recorder
	now          func() time.Time
}

// NewBillingService creates a BillingService. priceForPlan maps a plan
// name to the provider's price identifier.
func NewBillingService(store UserStore, checkout CheckoutCreator, priceForPlan func(plan string) string, recorder metrics.Recorder) *BillingService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &BillingService{
		store:        store,
		checkout:     checkout,
		priceForPlan: priceForPlan,
		metrics:      recorder,
		now:          time.Now,
	}
}

// CreateCheckout requests a hosted checkout session for the caller.
// Only the session handle is returned; the provider owns card data.
func (s *BillingService) CreateCheckout(ctx context.Context, userID, plan string) (*payment.CheckoutSession, error) {
	if !model.IsValidPlan(plan) {
		return nil, ErrInvalidPlan
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if user.HasPaid() {
		return nil, ErrAlreadyPaid
	}

	sess, err := s.checkout.CreateCheckoutSession(ctx, payment.CheckoutInput{
		PriceID: s.priceForPlan(plan),
		UserID:  userID,
		Plan:    plan,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCheckoutCreated()
	return sess, nil
}

// RecordCompletedCheckout appends the transaction for a verified
// completion notification. The amount arrives in minor currency units.
// The store's empty-history predicate enforces the one-time gate even
// under concurrent redelivery.
func (s *BillingService) RecordCompletedCheckout(ctx context.Context, checkout *payment.CompletedCheckout) (*model.Transaction, error) {
	if checkout.UserID == "" {
		return nil, ErrUserNotFound
	}
	if !model.IsValidPlan(checkout.Plan) {
		return nil, ErrInvalidPlan
	}

	now := s.now().UTC()
	period := monthlyPeriod
	if checkout.Plan == model.PlanYearly {
		period = yearlyPeriod
	}

	tx := model.Transaction{
		ID:              ulid.Make().String(),
		Amount:          float64(checkout.AmountMinor) / 100,
		Status:          checkout.Status,
		Plan:            checkout.Plan,
		OccurredAt:      now,
		SubscriptionEnd: now.Add(period),
	}

	if err := mapStoreErr(s.store.AppendTransaction(ctx, checkout.UserID, tx)); err != nil {
		if errors.Is(err, ErrAlreadyPaid) {
			s.metrics.IncWebhookEvent("duplicate")
		}
		return nil, err
	}

	s.metrics.IncWebhookEvent("recorded")
	return &tx, nil
}
