package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/maildeck/maildeck/internal/auth"
	"github.com/maildeck/maildeck/internal/handler/dto"
	"github.com/maildeck/maildeck/internal/payment"
	"github.com/maildeck/maildeck/internal/service"
)

// maxWebhookBody bounds the webhook payload read. Stripe events are small.
const maxWebhookBody = 64 * 1024

// BillingHandler handles checkout and the payment provider's webhook.
type BillingHandler struct {
	svc           *service.BillingService
	webhookSecret string
	logger        *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc *service.BillingService, webhookSecret string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		svc:           svc,
		webhookSecret: webhookSecret,
		logger:        logger.With("handler", "billing"),
	}
}

// CreateCheckout handles POST /checkout-session.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustAuthFromContext(r.Context()).UserID

	var req dto.CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	sess, err := h.svc.CreateCheckout(r.Context(), userID, req.Plan)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("checkout_created",
		"user_id", userID,
		"plan", req.Plan,
		"session_id", sess.ID,
	)

	writeJSON(w, http.StatusCreated, dto.CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
	})
}

// Webhook handles POST /payment-webhook.
//
// An unverifiable request gets a 400 so the provider retries. Once the
// signature checks out the response is always 200: a failure past that
// point (duplicate delivery, unknown user) will not be fixed by a
// retry, so it is logged and acknowledged instead.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Could not read payload")
		return
	}

	event, err := payment.VerifyEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("webhook signature rejected",
			"error", err,
			"ip", r.RemoteAddr,
		)
		writeErrorJSON(w, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed")
		return
	}

	if string(event.Type) != payment.EventCheckoutCompleted {
		h.logger.Info("webhook event ignored", "type", event.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	checkout, err := payment.ParseCompletedCheckout(event)
	if err != nil {
		h.logger.Error("webhook payload malformed", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	tx, err := h.svc.RecordCompletedCheckout(r.Context(), checkout)
	if err != nil {
		// Acknowledged regardless; see the status convention above.
		level := slog.LevelError
		if errors.Is(err, service.ErrAlreadyPaid) {
			level = slog.LevelInfo
		}
		h.logger.Log(r.Context(), level, "webhook completion not recorded",
			"error", err,
			"session_id", checkout.SessionID,
			"user_id", checkout.UserID,
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info("payment recorded",
		"user_id", checkout.UserID,
		"transaction_id", tx.ID,
		"plan", tx.Plan,
		"amount", tx.Amount,
	)
	w.WriteHeader(http.StatusOK)
}

func (h *BillingHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlan):
		writeErrorJSON(w, http.StatusBadRequest, "INVALID_PLAN", "Plan must be monthly or yearly")
	case errors.Is(err, service.ErrAlreadyPaid):
		writeErrorJSON(w, http.StatusConflict, "ALREADY_PAID", "A payment is already recorded for this account")
	case errors.Is(err, service.ErrUserNotFound):
		writeErrorJSON(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, payment.ErrUpstream):
		writeErrorJSON(w, http.StatusBadGateway, "PAYMENT_UNAVAILABLE", "Payment provider request failed")
	default:
		h.logger.Error("internal_error", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
