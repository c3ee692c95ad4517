package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionInactive  = "inactive"
	SubscriptionCancelled = "cancelled"
)

// Subscription ties a partner identity to a plan.
type Subscription struct {
	ID             string          `json:"id,omitempty"`
	PartnerID      string          `json:"partner_id"`
	Plan           PlanID          `json:"plan"`
	Status         string          `json:"status"`
	StartDate      Date            `json:"start_date"`
	RenewalDate    Date            `json:"renewal_date"`
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
	ProductsCount  int             `json:"products_count"`
	UsersCount     int             `json:"users_count"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
}

// RenewalDate is one calendar year after start.
func RenewalDate(start Date) Date {
	return start.AddYears(1)
}

// IsActive reports whether the subscription counts towards revenue.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

// PartnerSummary is a subscription enriched with its partner's profile.
type PartnerSummary struct {
	Subscription
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// PartnerList is the admin partners page payload.
type PartnerList struct {
	Partners       []PartnerSummary `json:"partners"`
	Total          int              `json:"total"`
	Active         int              `json:"active"`
	MonthlyRevenue decimal.Decimal  `json:"monthlyRevenue"`
}

// SubscriptionOverview is the partner settings page payload.
type SubscriptionOverview struct {
	Subscription      Subscription `json:"subscription"`
	Plan              PlanView     `json:"plan"`
	ProductsUsed      int          `json:"productsUsed"`
	ProductsRemaining int          `json:"productsRemaining"`
	ProductsLabel     string       `json:"productsLabel"`
	Upgrades          []PlanView   `json:"upgrades"`
}
