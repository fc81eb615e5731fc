package payments

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

const webhookTolerance = 5 * time.Minute

// Service wraps the Stripe checkout flow for one-off appointment payments.
// The appointment id rides in the session and payment intent metadata so
// webhook events can be tied back to the booking.
type Service struct {
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *slog.Logger
}

func NewService(secretKey, webhookSecret, successURL, cancelURL string, logger *slog.Logger) *Service {
	return &Service{
		secretKey:     strings.TrimSpace(secretKey),
		webhookSecret: strings.TrimSpace(webhookSecret),
		successURL:    strings.TrimSpace(successURL),
		cancelURL:     strings.TrimSpace(cancelURL),
		logger:        logger,
	}
}

func (s *Service) Configured() bool {
	return s != nil && s.secretKey != ""
}

func (s *Service) WebhookConfigured() bool {
	return s != nil && s.webhookSecret != ""
}

// CreateCheckout opens a payment-mode checkout session priced from the
// service catalog and returns the hosted checkout URL.
func (s *Service) CreateCheckout(appt model.Appointment, client model.Client, svc model.Service) (string, error) {
	if !s.Configured() {
		return "", errors.New("stripe not configured")
	}
	if s.successURL == "" || s.cancelURL == "" {
		return "", errors.New("checkout return urls not configured")
	}

	// Stripe uses a global API key. Keep usage limited to this call.
	stripe.Key = s.secretKey

	meta := map[string]string{
		"appointment_id": appt.ID,
		"client_id":      client.ID,
		"service_id":     svc.ID,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(appt.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("brl"),
					UnitAmount: stripe.Int64(svc.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(svc.Name),
					},
				},
			},
		},
		Metadata: meta,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	if client.Email != "" {
		params.CustomerEmail = stripe.String(client.Email)
	}
	// Stripe-level idempotency: retries of the same appointment reuse the session.
	params.IdempotencyKey = stripe.String("checkout:" + appt.ID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error("stripe checkout session create failed", "appointment_id", appt.ID, "err", err)
		return "", err
	}
	return sess.URL, nil
}

// VerifyEvent checks the webhook signature and returns the decoded event.
func (s *Service) VerifyEvent(body []byte, sigHeader string) (stripe.Event, error) {
	if !s.WebhookConfigured() {
		return stripe.Event{}, errors.New("stripe webhook not configured")
	}
	return webhook.ConstructEventWithTolerance(body, sigHeader, s.webhookSecret, webhookTolerance)
}
