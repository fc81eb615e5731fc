package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

type checkoutRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// PaymentCheckout creates a Stripe Checkout session for an appointment.
func (h *Handler) PaymentCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.payments.Configured() {
		http.Error(w, "stripe checkout not configured (STRIPE_SECRET_KEY missing)", http.StatusNotImplemented)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	appt, ok := h.store.AppointmentByID(strings.TrimSpace(req.AppointmentID))
	if !ok {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	if appt.PaymentStatus == model.PaymentPaid {
		http.Error(w, "appointment already paid", http.StatusConflict)
		return
	}
	client, ok := h.store.ClientByID(appt.ClientID)
	if !ok {
		http.Error(w, "client not found", http.StatusNotFound)
		return
	}
	svc, ok := h.store.ServiceByID(appt.ServiceID)
	if !ok {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}

	url, err := h.payments.CreateCheckout(appt, client, svc)
	if err != nil {
		http.Error(w, "failed to create checkout session", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkout_url": url})
}

// StripeWebhook ingests payment events (no bearer auth; the signature is the
// auth). checkout.session.completed marks the appointment paid,
// charge.refunded marks it refunded.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.payments.WebhookConfigured() {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	evt, err := h.payments.VerifyEvent(body, sigHeader)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("stripe event received", "event_id", evt.ID, "event_type", evtType)

	switch evtType {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		h.applyPaymentStatus(r, session.Metadata["appointment_id"], model.PaymentPaid)

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(evt.Data.Raw, &charge); err != nil {
			h.logger.Error("stripe: invalid charge payload", "err", err)
			break
		}
		h.applyPaymentStatus(r, charge.Metadata["appointment_id"], model.PaymentRefunded)
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

// applyPaymentStatus is idempotent: replayed events settle on the same state.
func (h *Handler) applyPaymentStatus(r *http.Request, appointmentID string, status model.PaymentStatus) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		h.logger.Warn("stripe: event without appointment_id metadata")
		return
	}
	appt, ok := h.store.AppointmentByID(appointmentID)
	if !ok {
		h.logger.Warn("stripe: event for unknown appointment", "appointment_id", appointmentID)
		return
	}
	if appt.PaymentStatus == status {
		return
	}
	appt.PaymentStatus = status
	if h.store.ReplaceAppointment(r.Context(), appt) {
		h.logger.Info("payment status updated", "appointment_id", appointmentID, "payment_status", string(status))
	}
}
