package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"otp-gateway/internal/apps/billing/models"
	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"
	submodels "otp-gateway/internal/apps/subscription/models"
	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/common/logger"
	"otp-gateway/internal/common/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

type fakeGateway struct {
	customers   int
	sessions    []CheckoutSessionRequest
	customerErr error
	sessionErr  error
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, phone string) (string, error) {
	if g.customerErr != nil {
		return "", g.customerErr
	}
	g.customers++
	return fmt.Sprintf("cus_%d", g.customers), nil
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	g.sessions = append(g.sessions, req)
	id := fmt.Sprintf("cs_test_%d", len(g.sessions))
	return &CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

type fakeTransactionRepository struct {
	rows map[string]*models.PaymentTransaction
}

func (r *fakeTransactionRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if r.rows == nil {
		r.rows = map[string]*models.PaymentTransaction{}
	}
	r.rows[txn.StripeSessionID] = txn
	return nil
}

func (r *fakeTransactionRepository) UpdateBySessionID(ctx context.Context, sessionID string, fields map[string]interface{}) (int64, error) {
	row, ok := r.rows[sessionID]
	if !ok {
		return 0, nil
	}
	if status, ok := fields["status"].(models.TransactionStatus); ok {
		row.Status = status
	}
	if pi, ok := fields["stripe_payment_intent_id"].(string); ok {
		row.StripePaymentIntentID = &pi
	}
	return 1, nil
}

type fakeEventRepository struct {
	rows      map[string]*models.BillingEvent
	recordErr error
}

func (r *fakeEventRepository) Record(ctx context.Context, event *models.BillingEvent) (bool, error) {
	if r.recordErr != nil {
		return false, r.recordErr
	}
	if r.rows == nil {
		r.rows = map[string]*models.BillingEvent{}
	}
	if _, ok := r.rows[event.EventID]; ok {
		return false, nil
	}
	event.ID = uuid.New()
	r.rows[event.EventID] = event
	return true, nil
}

func (r *fakeEventRepository) FindByEventID(ctx context.Context, eventID string) (*models.BillingEvent, error) {
	if row, ok := r.rows[eventID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEventRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	for _, row := range r.rows {
		if row.ID != id {
			continue
		}
		row.Status = fields["status"].(models.EventStatus)
		row.Error = fields["error"].(string)
		return nil
	}
	return gorm.ErrRecordNotFound
}

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePlanService struct {
	planservice.PlanService
	plans map[string]planmodels.SubscriptionPlan
}

func newFakePlanService() *fakePlanService {
	s := &fakePlanService{plans: map[string]planmodels.SubscriptionPlan{}}
	for _, p := range planmodels.DefaultCatalog() {
		p.ID = uuid.New()
		s.plans[p.Name] = p
	}
	return s
}

func (s *fakePlanService) GetPlan(ctx context.Context, name string) (*planmodels.SubscriptionPlan, error) {
	p, ok := s.plans[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", planservice.ErrPlanNotFound, name)
	}
	return &p, nil
}

type fakeSubscriptionService struct {
	subservice.SubscriptionService
	plans       *fakePlanService
	rows        map[string]*submodels.UserSubscription
	activateErr error
}

func (s *fakeSubscriptionService) row(phone string) *submodels.UserSubscription {
	if s.rows == nil {
		s.rows = map[string]*submodels.UserSubscription{}
	}
	if _, ok := s.rows[phone]; !ok {
		free := s.plans.plans[planmodels.PlanFree]
		s.rows[phone] = &submodels.UserSubscription{ID: uuid.New(), PhoneNumber: phone, PlanID: free.ID, Plan: free, IsActive: true}
	}
	return s.rows[phone]
}

func (s *fakeSubscriptionService) GetOrCreate(ctx context.Context, phone string) (*submodels.UserSubscription, error) {
	out := *s.row(phone)
	return &out, nil
}

func (s *fakeSubscriptionService) SetCustomerID(ctx context.Context, phone, customerID string) error {
	s.row(phone).StripeCustomerID = &customerID
	return nil
}

func (s *fakeSubscriptionService) Activate(ctx context.Context, req subservice.ActivateRequest) (*submodels.UserSubscription, error) {
	if s.activateErr != nil {
		return nil, s.activateErr
	}
	sub := s.row(req.PhoneNumber)
	sub.PlanID = req.Plan.ID
	sub.Plan = *req.Plan
	sub.ExpiresAt = &req.ExpiresAt
	if req.StripeSubscriptionID != "" {
		id := req.StripeSubscriptionID
		sub.StripeSubscriptionID = &id
	}
	if req.StripeCustomerID != "" && sub.StripeCustomerID == nil {
		id := req.StripeCustomerID
		sub.StripeCustomerID = &id
	}
	out := *sub
	return &out, nil
}

func (s *fakeSubscriptionService) RenewByCustomer(ctx context.Context, customerID string, expiresAt time.Time) (*submodels.UserSubscription, error) {
	for _, sub := range s.rows {
		if sub.CustomerID() == customerID {
			sub.ExpiresAt = &expiresAt
			out := *sub
			return &out, nil
		}
	}
	return nil, subservice.ErrSubscriptionNotFound
}

func (s *fakeSubscriptionService) DowngradeBySubscriptionID(ctx context.Context, subscriptionID string) (*submodels.UserSubscription, error) {
	for _, sub := range s.rows {
		if sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID == subscriptionID {
			free := s.plans.plans[planmodels.PlanFree]
			sub.PlanID = free.ID
			sub.Plan = free
			sub.ExpiresAt = nil
			sub.StripeSubscriptionID = nil
			out := *sub
			return &out, nil
		}
	}
	return nil, subservice.ErrSubscriptionNotFound
}

type limitPush struct {
	phone string
	plan  string
}

type fakeLimits struct {
	pushes []limitPush
	err    error
}

func (l *fakeLimits) Push(ctx context.Context, phone string, plan *planmodels.SubscriptionPlan) error {
	l.pushes = append(l.pushes, limitPush{phone: phone, plan: plan.Name})
	return l.err
}

type fakeAlerter struct {
	alerts []map[string]string
}

func (a *fakeAlerter) Alert(ctx context.Context, title string, fields map[string]string) {
	a.alerts = append(a.alerts, fields)
}

type billingFixture struct {
	gateway *fakeGateway
	txns    *fakeTransactionRepository
	events  *fakeEventRepository
	plans   *fakePlanService
	subs    *fakeSubscriptionService
	limits  *fakeLimits
	alerter *fakeAlerter
	metrics *metrics.Metrics
	svc     *billingService
}

func newBillingFixture(cfg Config) *billingFixture {
	plans := newFakePlanService()
	f := &billingFixture{
		gateway: &fakeGateway{},
		txns:    &fakeTransactionRepository{},
		events:  &fakeEventRepository{},
		plans:   plans,
		subs:    &fakeSubscriptionService{plans: plans},
		limits:  &fakeLimits{},
		alerter: &fakeAlerter{},
		metrics: metrics.NewUnregistered(),
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = testWebhookSecret
	}
	svc := NewBillingService(cfg, Dependencies{
		Gateway:      f.gateway,
		Transactions: f.txns,
		Events:       f.events,
		Transactor:   passthroughTransactor{},
		Plans:        plans,
		Subs:         f.subs,
		Limits:       f.limits,
		Alerter:      f.alerter,
		Metrics:      f.metrics,
		Log:          logger.Discard(),
	})
	f.svc = svc.(*billingService)
	return f
}

// eventPayload builds a provider event envelope around object
func eventPayload(t *testing.T, id, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return payload
}

// signatureHeader signs payload the way the provider does: HMAC-SHA256 over "<timestamp>.<payload>"
func signatureHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
