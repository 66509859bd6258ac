package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maildeck/maildeck/internal/model"
	"github.com/maildeck/maildeck/internal/payment"
	"github.com/maildeck/maildeck/internal/service"
)

const testWebhookSecret = "whsec_test"

func priceTable(plan string) string {
	switch plan {
	case model.PlanMonthly:
		return "price_monthly"
	case model.PlanYearly:
		return "price_yearly"
	}
	return ""
}

func newBillingFixture(checkout *fakeCheckout) (*fakeUserStore, *model.User, *BillingHandler) {
	store := newFakeUserStore()
	user := store.seed(&model.User{
		GoogleID: "g-1",
		Email:    "alice@gmail.com",
	})
	svc := service.NewBillingService(store, checkout, priceTable, nil)
	h := NewBillingHandler(svc, testWebhookSecret, discardLogger())
	return store, user, h
}

// signPayload builds a Stripe-Signature header for the payload.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func completedEventPayload(userID, plan string, amount int64) []byte {
	object := map[string]any{
		"id":             "cs_test_1",
		"amount_total":   amount,
		"payment_status": "paid",
		"metadata": map[string]string{
			"user_id": userID,
			"plan":    plan,
		},
	}
	raw, _ := json.Marshal(object)
	event := map[string]any{
		"id":          "evt_1",
		"api_version": "2023-10-16",
		"type":        "checkout.session.completed",
		"data": map[string]any{"object": json.RawMessage(raw)},
	}
	payload, _ := json.Marshal(event)
	return payload
}

func TestBillingHandlerCreateCheckout(t *testing.T) {
	checkout := &fakeCheckout{session: &payment.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}}
	_, user, h := newBillingFixture(checkout)

	req := authedRequest(t, http.MethodPost, "/checkout-session",
		strings.NewReader(`{"plan":"monthly"}`), user.ID.Hex())
	rec := httptest.NewRecorder()
	h.CreateCheckout(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["url"] != "https://pay.example/cs_1" {
		t.Errorf("url = %q", response["url"])
	}
}

func TestBillingHandlerCreateCheckoutRejections(t *testing.T) {
	checkout := &fakeCheckout{session: &payment.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}}
	_, user, h := newBillingFixture(checkout)

	t.Run("invalid plan", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/checkout-session",
			strings.NewReader(`{"plan":"weekly"}`), user.ID.Hex())
		rec := httptest.NewRecorder()
		h.CreateCheckout(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("already paid", func(t *testing.T) {
		user.Transactions = []model.Transaction{{ID: "tx-1", Status: "paid"}}
		defer func() { user.Transactions = nil }()

		req := authedRequest(t, http.MethodPost, "/checkout-session",
			strings.NewReader(`{"plan":"monthly"}`), user.ID.Hex())
		rec := httptest.NewRecorder()
		h.CreateCheckout(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := authedRequest(t, http.MethodPost, "/checkout-session",
			strings.NewReader(`{"plan":`), user.ID.Hex())
		rec := httptest.NewRecorder()
		h.CreateCheckout(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestBillingHandlerWebhookRecordsPayment(t *testing.T) {
	_, user, h := newBillingFixture(&fakeCheckout{})

	payload := completedEventPayload(user.ID.Hex(), model.PlanMonthly, 2900)
	req := httptest.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}
	if len(user.Transactions) != 1 {
		t.Fatalf("stored %d transaction(s), want 1", len(user.Transactions))
	}
	if user.Transactions[0].Amount != 29.00 {
		t.Errorf("amount = %v, want 29.00", user.Transactions[0].Amount)
	}
}

func TestBillingHandlerWebhookBadSignature(t *testing.T) {
	_, user, h := newBillingFixture(&fakeCheckout{})

	payload := completedEventPayload(user.ID.Hex(), model.PlanMonthly, 2900)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong secret", header: signPayload(payload, "whsec_other", time.Now())},
		{name: "stale timestamp", header: signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(string(payload)))
			if tt.header != "" {
				req.Header.Set("Stripe-Signature", tt.header)
			}
			rec := httptest.NewRecorder()
			h.Webhook(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	if len(user.Transactions) != 0 {
		t.Errorf("unverified deliveries stored %d transaction(s), want 0", len(user.Transactions))
	}
}

func TestBillingHandlerWebhookDuplicateAcknowledged(t *testing.T) {
	_, user, h := newBillingFixture(&fakeCheckout{})

	payload := completedEventPayload(user.ID.Hex(), model.PlanMonthly, 2900)
	deliver := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(string(payload)))
		req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
		rec := httptest.NewRecorder()
		h.Webhook(rec, req)
		return rec
	}

	if rec := deliver(); rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}
	// Redelivery is acknowledged so the provider stops retrying.
	if rec := deliver(); rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rec.Code)
	}
	if len(user.Transactions) != 1 {
		t.Errorf("stored %d transaction(s) after redelivery, want 1", len(user.Transactions))
	}
}

func TestBillingHandlerWebhookIgnoresOtherEvents(t *testing.T) {
	_, user, h := newBillingFixture(&fakeCheckout{})

	event := map[string]any{
		"id":          "evt_2",
		"api_version": "2023-10-16",
		"type":        "invoice.paid",
		"data": map[string]any{"object": map[string]any{}},
	}
	payload, _ := json.Marshal(event)

	req := httptest.NewRequest(http.MethodPost, "/payment-webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret, time.Now()))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(user.Transactions) != 0 {
		t.Errorf("ignored event stored %d transaction(s), want 0", len(user.Transactions))
	}
}
