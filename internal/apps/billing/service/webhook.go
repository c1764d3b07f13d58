package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"otp-gateway/internal/apps/billing/models"
	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
	"gorm.io/datatypes"
)

// Handled event types
const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutExpired            = "checkout.session.expired"
	EventCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventInvoicePaymentSucceeded    = "invoice.payment_succeeded"
	EventSubscriptionDeleted        = "customer.subscription.deleted"
)

// HandleWebhook verifies a provider event and reconciles it into local and proxy state.
// Only verification failures are returned; processing failures are recorded and alerted.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !json.Valid(payload) {
		return ErrInvalidPayload
	}

	if s.cfg.WebhookSecret == "" {
		s.Log.WithField("component", "billing").Warn("Webhook rejected: STRIPE_WEBHOOK_SECRET is not configured")
		return ErrInvalidSignature
	}

	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		if isSignatureError(err) {
			return ErrInvalidSignature
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	eventType := string(event.Type)
	s.Metrics.WebhookEventsTotal.WithLabelValues(eventType).Inc()
	entry := s.Log.WithFields(logrus.Fields{
		"component": "billing",
		"event_id":  event.ID,
		"type":      eventType,
	})

	record := &models.BillingEvent{
		EventID: event.ID,
		Type:    eventType,
		Payload: datatypes.JSON(payload),
		Status:  models.EventStatusReceived,
	}
	created, err := s.Events.Record(ctx, record)
	if err != nil {
		s.reconciliationFailed(ctx, event.ID, eventType, fmt.Errorf("failed to record event: %w", err))
		return nil
	}
	if !created {
		existing, err := s.Events.FindByEventID(ctx, event.ID)
		if err != nil {
			s.reconciliationFailed(ctx, event.ID, eventType, fmt.Errorf("failed to load event: %w", err))
			return nil
		}
		if existing.Settled() {
			entry.Info("Duplicate billing event acknowledged")
			return nil
		}
		record = existing
	}

	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}
	handled, procErr := s.dispatch(ctx, eventType, raw)

	fields := map[string]interface{}{"processed_at": s.now().UTC(), "error": ""}
	switch {
	case procErr != nil:
		fields["status"] = models.EventStatusFailed
		fields["error"] = procErr.Error()
	case handled:
		fields["status"] = models.EventStatusProcessed
	default:
		fields["status"] = models.EventStatusIgnored
	}
	if err := s.Events.Update(ctx, record.ID, fields); err != nil {
		entry.WithError(err).Error("Failed to update billing event status")
	}

	if procErr != nil {
		s.reconciliationFailed(ctx, event.ID, eventType, procErr)
		return nil
	}
	if handled {
		entry.Info("Billing event processed")
	}
	return nil
}

func (s *billingService) dispatch(ctx context.Context, eventType string, raw json.RawMessage) (bool, error) {
	switch eventType {
	case EventCheckoutCompleted:
		return true, s.handleCheckoutCompleted(ctx, raw)
	case EventInvoicePaymentSucceeded:
		return true, s.handleInvoicePaid(ctx, raw)
	case EventSubscriptionDeleted:
		return true, s.handleSubscriptionDeleted(ctx, raw)
	case EventCheckoutExpired:
		return true, s.handleCheckoutClosed(ctx, raw, models.TransactionStatusCanceled)
	case EventCheckoutAsyncPaymentFailed:
		return true, s.handleCheckoutClosed(ctx, raw, models.TransactionStatusFailed)
	default:
		return false, nil
	}
}

// handleCheckoutCompleted settles the transaction, activates the plan and pushes its limits.
// A failed push leaves the committed activation in place.
func (s *billingService) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	phone := session.Metadata["phone_number"]
	planName := session.Metadata["plan_type"]
	if phone == "" || planName == "" {
		return fmt.Errorf("checkout session %s has no phone_number/plan_type metadata", session.ID)
	}

	plan, err := s.Plans.GetPlan(ctx, planName)
	if err != nil {
		return err
	}

	req := subservice.ActivateRequest{
		PhoneNumber: phone,
		Plan:        plan,
		ExpiresAt:   s.now().UTC().Add(subservice.BillingPeriod),
	}
	if session.Customer != nil {
		req.StripeCustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		req.StripeSubscriptionID = session.Subscription.ID
	}

	err = s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		fields := map[string]interface{}{"status": models.TransactionStatusSucceeded}
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			fields["stripe_payment_intent_id"] = session.PaymentIntent.ID
		}
		rows, err := s.Transactions.UpdateBySessionID(ctx, session.ID, fields)
		if err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		if rows == 0 {
			s.Log.WithFields(logrus.Fields{
				"component":  "billing",
				"session_id": session.ID,
			}).Warn("No transaction recorded for checkout session")
		}

		_, err = s.Subs.Activate(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"component": "billing",
		"phone":     utils.MaskPhone(phone),
		"plan":      plan.Name,
	}).Info("Subscription activated")

	if err := s.Limits.Push(ctx, phone, plan); err != nil {
		return fmt.Errorf("subscription activated but proxy limits not updated: %w", err)
	}
	return nil
}

// handleInvoicePaid extends the subscription of the invoiced customer
func (s *billingService) handleInvoicePaid(ctx context.Context, raw json.RawMessage) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		return nil
	}

	sub, err := s.Subs.RenewByCustomer(ctx, invoice.Customer.ID, s.now().UTC().Add(subservice.BillingPeriod))
	if err != nil {
		if errors.Is(err, subservice.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"component": "billing",
		"phone":     utils.MaskPhone(sub.PhoneNumber),
	}).Info("Subscription renewed")
	return nil
}

// handleSubscriptionDeleted downgrades the cancelled subscription to free and pushes free limits
func (s *billingService) handleSubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(raw, &stripeSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	sub, err := s.Subs.DowngradeBySubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		if errors.Is(err, subservice.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"component": "billing",
		"phone":     utils.MaskPhone(sub.PhoneNumber),
	}).Info("Subscription canceled, downgraded to free")

	if err := s.Limits.Push(ctx, sub.PhoneNumber, &sub.Plan); err != nil {
		return fmt.Errorf("subscription downgraded but proxy limits not updated: %w", err)
	}
	return nil
}

// handleCheckoutClosed closes a pending transaction whose checkout did not complete
func (s *billingService) handleCheckoutClosed(ctx context.Context, raw json.RawMessage, status models.TransactionStatus) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}
	_, err := s.Transactions.UpdateBySessionID(ctx, session.ID, map[string]interface{}{"status": status})
	return err
}

// reconciliationFailed counts, logs and alerts a failure the provider will never see
func (s *billingService) reconciliationFailed(ctx context.Context, eventID, eventType string, err error) {
	s.Metrics.ReconciliationFailuresTotal.WithLabelValues(eventType).Inc()
	s.Alerter.Alert(ctx, "Billing reconciliation failed", map[string]string{
		"event_id": eventID,
		"type":     eventType,
		"error":    err.Error(),
	})
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
