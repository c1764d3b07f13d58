package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan names
const (
	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPro     = "pro"
	PlanPremium = "premium"
)

// SubscriptionPlan is a named tier bundling a price with proxy rate and budget limits
type SubscriptionPlan struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string              `gorm:"size:32;not null;uniqueIndex" json:"name"`
	PriceUSD            decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"price_usd"`
	MaxBudget           decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"max_budget"`
	RPMLimit            int                 `gorm:"not null" json:"rpm_limit"`
	TPMLimit            int                 `gorm:"not null" json:"tpm_limit"`
	MaxParallelRequests int                 `gorm:"not null" json:"max_parallel_requests"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsFree reports whether the plan is the free tier
func (p *SubscriptionPlan) IsFree() bool {
	return p.Name == PlanFree
}

// Budget returns the monthly spend ceiling, nil meaning unlimited
func (p *SubscriptionPlan) Budget() *float64 {
	if !p.MaxBudget.Valid {
		return nil
	}
	v := p.MaxBudget.Decimal.InexactFloat64()
	return &v
}

// PriceCents returns the price in the smallest currency unit
func (p *SubscriptionPlan) PriceCents() int64 {
	return p.PriceUSD.Shift(2).Round(0).IntPart()
}

// PlanResponse is the public representation of a plan
type PlanResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	PriceUSD            float64   `json:"price_usd"`
	MaxBudget           *float64  `json:"max_budget"`
	RPMLimit            int       `json:"rpm_limit"`
	TPMLimit            int       `json:"tpm_limit"`
	MaxParallelRequests int       `json:"max_parallel_requests"`
}

// ToResponse converts SubscriptionPlan model to PlanResponse
func (p *SubscriptionPlan) ToResponse() PlanResponse {
	return PlanResponse{
		ID:                  p.ID,
		Name:                p.Name,
		PriceUSD:            p.PriceUSD.InexactFloat64(),
		MaxBudget:           p.Budget(),
		RPMLimit:            p.RPMLimit,
		TPMLimit:            p.TPMLimit,
		MaxParallelRequests: p.MaxParallelRequests,
	}
}

// PlansResponse wraps the catalog listing
type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

// DefaultCatalog returns the built-in plan tiers
func DefaultCatalog() []SubscriptionPlan {
	return []SubscriptionPlan{
		newPlan(PlanFree, "0", "", 2, 1000, 1),
		newPlan(PlanBasic, "2.00", "2.00", 10, 10000, 3),
		newPlan(PlanPro, "5.00", "5.00", 50, 50000, 5),
		newPlan(PlanPremium, "10.00", "10.00", 100, 100000, 10),
	}
}

// DefaultPlan returns the built-in definition of name, if any
func DefaultPlan(name string) (SubscriptionPlan, bool) {
	for _, p := range DefaultCatalog() {
		if p.Name == name {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}

func newPlan(name, price, budget string, rpm, tpm, parallel int) SubscriptionPlan {
	p := SubscriptionPlan{
		Name:                name,
		PriceUSD:            decimal.RequireFromString(price),
		RPMLimit:            rpm,
		TPMLimit:            tpm,
		MaxParallelRequests: parallel,
	}
	if budget != "" {
		p.MaxBudget = decimal.NewNullDecimal(decimal.RequireFromString(budget))
	}
	return p
}
