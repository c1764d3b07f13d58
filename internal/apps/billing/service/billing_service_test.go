package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"otp-gateway/internal/apps/billing/models"
	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutRequest(plan string) models.CreateCheckoutRequest {
	return models.CreateCheckoutRequest{
		PhoneNumber: "+1 555 1234",
		PlanType:    plan,
		SuccessURL:  "https://app.example.com/success",
		CancelURL:   "https://app.example.com/cancel",
	}
}

func TestCreateCheckout_RejectsFreePlan(t *testing.T) {
	f := newBillingFixture(Config{})
	_, err := f.svc.CreateCheckout(context.Background(), checkoutRequest(planmodels.PlanFree))
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Zero(t, f.gateway.customers)
}

func TestCreateCheckout_UnknownPlan(t *testing.T) {
	f := newBillingFixture(Config{})
	_, err := f.svc.CreateCheckout(context.Background(), checkoutRequest("enterprise"))
	assert.ErrorIs(t, err, planservice.ErrPlanNotFound)
}

func TestCreateCheckout_MockMode(t *testing.T) {
	f := newBillingFixture(Config{MockMode: true, DebugRoutes: true, BackendOrigin: "http://localhost:8000/"})

	resp, err := f.svc.CreateCheckout(context.Background(), checkoutRequest(planmodels.PlanBasic))
	require.NoError(t, err)
	assert.Equal(t, MockSessionID, resp.SessionID)
	assert.NotEmpty(t, resp.Message)

	u, err := url.Parse(resp.CheckoutURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8000", u.Host)
	assert.Equal(t, "/mock-payment", u.Path)
	assert.Equal(t, "+15551234", u.Query().Get("phone"))
	assert.Equal(t, planmodels.PlanBasic, u.Query().Get("plan"))
	assert.Equal(t, MockSessionID, u.Query().Get("session_id"))

	assert.Zero(t, f.gateway.customers)
	assert.Empty(t, f.txns.rows)
}

func TestCreateCheckout_MockModeWithoutDebugRoutes(t *testing.T) {
	f := newBillingFixture(Config{MockMode: true, BackendOrigin: "http://localhost:8000"})

	resp, err := f.svc.CreateCheckout(context.Background(), checkoutRequest(planmodels.PlanBasic))
	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
	assert.Nil(t, resp)
	assert.Zero(t, f.gateway.customers)
	assert.Empty(t, f.txns.rows)
}

func TestCreateCheckout_CreatesCustomerOnce(t *testing.T) {
	f := newBillingFixture(Config{})
	ctx := context.Background()

	first, err := f.svc.CreateCheckout(ctx, checkoutRequest(planmodels.PlanPro))
	require.NoError(t, err)
	second, err := f.svc.CreateCheckout(ctx, checkoutRequest(planmodels.PlanPro))
	require.NoError(t, err)

	assert.Equal(t, 1, f.gateway.customers)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	require.Len(t, f.gateway.sessions, 2)

	req := f.gateway.sessions[0]
	assert.Equal(t, "cus_1", req.CustomerID)
	assert.Equal(t, int64(500), req.UnitAmount)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "https://app.example.com/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://app.example.com/cancel", req.CancelURL)
	assert.Equal(t, "+15551234", req.Metadata["phone_number"])
	assert.Equal(t, planmodels.PlanPro, req.Metadata["plan_type"])
	assert.Equal(t, "LiteLLM pro subscription - $5.00/month", req.Description)

	txn := f.txns.rows[first.SessionID]
	require.NotNil(t, txn)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)
	assert.Equal(t, "5.00", txn.AmountUSD.StringFixed(2))
	assert.Equal(t, planmodels.PlanPro, txn.PlanName)
}

func TestCreateCheckout_ProviderFailure(t *testing.T) {
	f := newBillingFixture(Config{})
	f.gateway.sessionErr = errors.New("card declined")

	_, err := f.svc.CreateCheckout(context.Background(), checkoutRequest(planmodels.PlanBasic))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBillingProvider)

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "card declined", providerErr.Err.Error())
	assert.Empty(t, f.txns.rows)
}

func TestMockUpgrade(t *testing.T) {
	f := newBillingFixture(Config{MockMode: true})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	resp, err := f.svc.MockUpgrade(context.Background(), models.MockWebhookRequest{
		PhoneNumber: "+15551234",
		PlanType:    planmodels.PlanPremium,
	})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, f.plans.plans[planmodels.PlanPremium].ID, resp.PlanID)
	assert.Equal(t, "LiteLLM limits updated successfully", resp.LiteLLMUpdate)

	sub := f.subs.rows["+15551234"]
	assert.Equal(t, planmodels.PlanPremium, sub.Plan.Name)
	assert.Equal(t, now.Add(30*24*time.Hour), *sub.ExpiresAt)
	assert.Equal(t, []limitPush{{phone: "+15551234", plan: planmodels.PlanPremium}}, f.limits.pushes)
}

func TestMockUpgrade_PushFailureIsReported(t *testing.T) {
	f := newBillingFixture(Config{MockMode: true})
	f.limits.err = errors.New("proxy down")

	resp, err := f.svc.MockUpgrade(context.Background(), models.MockWebhookRequest{
		PhoneNumber: "+15551234",
		PlanType:    planmodels.PlanBasic,
	})
	require.NoError(t, err)
	assert.Equal(t, "Failed to update LiteLLM limits", resp.LiteLLMUpdate)
	assert.Equal(t, planmodels.PlanBasic, f.subs.rows["+15551234"].Plan.Name)
}

func TestMockUpgrade_UnknownPlan(t *testing.T) {
	f := newBillingFixture(Config{MockMode: true})
	_, err := f.svc.MockUpgrade(context.Background(), models.MockWebhookRequest{PhoneNumber: "+15551234", PlanType: "gold"})
	assert.ErrorIs(t, err, planservice.ErrPlanNotFound)
	assert.Empty(t, f.limits.pushes)
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{Err: errors.New("rate limited")}
	assert.Equal(t, "stripe error: rate limited", err.Error())
	assert.True(t, errors.Is(err, ErrBillingProvider))
}
