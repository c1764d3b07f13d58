package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apikeyservice "otp-gateway/internal/apps/apikey/service"
	"otp-gateway/internal/apps/billing/models"
	"otp-gateway/internal/apps/billing/repository"
	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"
	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/common/alert"
	"otp-gateway/internal/common/database"
	"otp-gateway/internal/common/metrics"
	"otp-gateway/internal/common/validation"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// MockSessionID is the session id returned by checkout in mock mode
const MockSessionID = "cs_mock_123"

var (
	// ErrInvalidPlan is returned for checkout requests that cannot be billed
	ErrInvalidPlan = errors.New("cannot create checkout for free plan")
	// ErrInvalidPayload is returned for webhook bodies that are not valid events
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidSignature is returned when the webhook signature does not verify
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrCheckoutUnavailable is returned in mock mode when the mock payment page is not served
	ErrCheckoutUnavailable = errors.New("checkout is not configured")
	// ErrBillingProvider wraps failures reported by the billing provider
	ErrBillingProvider = errors.New("stripe error")
)

// ProviderError carries a failure reported by the billing provider
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string { return "stripe error: " + e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches ErrBillingProvider
func (e *ProviderError) Is(target error) bool { return target == ErrBillingProvider }

// BillingService defines business logic for checkout and billing reconciliation
type BillingService interface {
	CreateCheckout(ctx context.Context, req models.CreateCheckoutRequest) (*models.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	MockUpgrade(ctx context.Context, req models.MockWebhookRequest) (*models.MockWebhookResponse, error)
}

// Config holds the billing settings taken from the application config
type Config struct {
	WebhookSecret string
	Currency      string
	BackendOrigin string
	MockMode      bool
	// DebugRoutes reports whether /mock-payment and /webhook-mock are mounted
	DebugRoutes bool
}

// Dependencies are the collaborators of the billing service
type Dependencies struct {
	Gateway      PaymentGateway
	Transactions repository.TransactionRepository
	Events       repository.EventRepository
	Transactor   database.Transactor
	Plans        planservice.PlanService
	Subs         subservice.SubscriptionService
	Limits       apikeyservice.LimitSynchronizer
	Alerter      alert.Alerter
	Metrics      *metrics.Metrics
	Log          *logrus.Logger
}

// billingService implements BillingService
type billingService struct {
	Dependencies
	cfg Config
	now func() time.Time
}

// NewBillingService creates a new instance of BillingService
func NewBillingService(cfg Config, deps Dependencies) BillingService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &billingService{Dependencies: deps, cfg: cfg, now: time.Now}
}

// CreateCheckout starts a hosted checkout for a paid plan
func (s *billingService) CreateCheckout(ctx context.Context, req models.CreateCheckoutRequest) (*models.CheckoutResponse, error) {
	if req.PlanType == planmodels.PlanFree {
		return nil, ErrInvalidPlan
	}

	plan, err := s.Plans.GetPlan(ctx, req.PlanType)
	if err != nil {
		return nil, err
	}

	phone := validation.NormalizePhone(req.PhoneNumber)

	if s.cfg.MockMode {
		if !s.cfg.DebugRoutes {
			return nil, ErrCheckoutUnavailable
		}
		query := url.Values{}
		query.Set("session_id", MockSessionID)
		query.Set("phone", phone)
		query.Set("plan", plan.Name)
		return &models.CheckoutResponse{
			CheckoutURL: fmt.Sprintf("%s/mock-payment?%s", strings.TrimRight(s.cfg.BackendOrigin, "/"), query.Encode()),
			SessionID:   MockSessionID,
			Message:     "Mock response - Set STRIPE_SECRET_KEY for real payments",
		}, nil
	}

	customerID, err := s.customerFor(ctx, phone)
	if err != nil {
		return nil, err
	}

	session, err := s.Gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		CustomerID:  customerID,
		ProductName: fmt.Sprintf("%s Plan", plan.Name),
		Description: fmt.Sprintf("LiteLLM %s subscription - $%s/month", plan.Name, plan.PriceUSD.StringFixed(2)),
		UnitAmount:  plan.PriceCents(),
		Currency:    s.cfg.Currency,
		SuccessURL:  req.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   req.CancelURL,
		Metadata: map[string]string{
			"phone_number": phone,
			"plan_type":    plan.Name,
		},
	})
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	metadata, _ := json.Marshal(map[string]string{
		"success_url": req.SuccessURL,
		"cancel_url":  req.CancelURL,
		"customer_id": customerID,
	})
	if err := s.Transactions.Create(ctx, &models.PaymentTransaction{
		PhoneNumber:     phone,
		StripeSessionID: session.ID,
		AmountUSD:       plan.PriceUSD,
		PlanName:        plan.Name,
		Status:          models.TransactionStatusPending,
		Metadata:        datatypes.JSON(metadata),
	}); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.Log.WithFields(logrus.Fields{
		"component":  "billing",
		"phone":      utils.MaskPhone(phone),
		"plan":       plan.Name,
		"session_id": session.ID,
	}).Info("Checkout session created")

	return &models.CheckoutResponse{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// customerFor returns the phone's billing customer, creating and caching it on first checkout
func (s *billingService) customerFor(ctx context.Context, phone string) (string, error) {
	sub, err := s.Subs.GetOrCreate(ctx, phone)
	if err != nil {
		return "", err
	}
	if id := sub.CustomerID(); id != "" {
		return id, nil
	}

	id, err := s.Gateway.CreateCustomer(ctx, phone)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	if err := s.Subs.SetCustomerID(ctx, phone, id); err != nil {
		return "", fmt.Errorf("failed to store customer id: %w", err)
	}
	return id, nil
}

// MockUpgrade applies a paid plan without a billing provider (development only)
func (s *billingService) MockUpgrade(ctx context.Context, req models.MockWebhookRequest) (*models.MockWebhookResponse, error) {
	plan, err := s.Plans.GetPlan(ctx, req.PlanType)
	if err != nil {
		return nil, err
	}

	phone := validation.NormalizePhone(req.PhoneNumber)
	if _, err := s.Subs.Activate(ctx, subservice.ActivateRequest{
		PhoneNumber: phone,
		Plan:        plan,
		ExpiresAt:   s.now().UTC().Add(subservice.BillingPeriod),
	}); err != nil {
		return nil, err
	}

	resp := &models.MockWebhookResponse{
		Status:        "success",
		Message:       fmt.Sprintf("Mock upgrade to %s successful", plan.Name),
		PhoneNumber:   phone,
		PlanType:      plan.Name,
		PlanID:        plan.ID,
		LiteLLMUpdate: "LiteLLM limits updated successfully",
	}
	if err := s.Limits.Push(ctx, phone, plan); err != nil {
		resp.LiteLLMUpdate = "Failed to update LiteLLM limits"
		s.Log.WithFields(logrus.Fields{
			"component": "billing",
			"phone":     utils.MaskPhone(phone),
			"plan":      plan.Name,
		}).WithError(err).Warn("Mock upgrade could not update proxy limits")
	}
	return resp, nil
}
