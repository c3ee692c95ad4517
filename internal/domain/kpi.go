package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// KPI inputs and report
// ============================================================

// KPIAssumptions are the business constants the KPI formulas depend on.
// They come from configuration rather than from the data store.
type KPIAssumptions struct {
	ChurnRatePct       decimal.Decimal `json:"churnRatePct"`
	AvgRetentionMonths decimal.Decimal `json:"avgRetentionMonths"`
	CAC                decimal.Decimal `json:"cac"`
	ProfitMarginPct    decimal.Decimal `json:"profitMarginPct"`
}

// PartnerActivity is the slice of a profile the partner KPIs read.
type PartnerActivity struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessAt *time.Time `json:"last_access_at"`
}

// PlanShare is one row of the plan distribution.
type PlanShare struct {
	Plan    PlanID          `json:"plan"`
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Percent float64         `json:"percent"`
	Revenue decimal.Decimal `json:"revenue"`
}

// KPIReport is the admin KPI page payload.
type KPIReport struct {
	GeneratedAt time.Time `json:"generatedAt"`

	TotalPartners       int     `json:"totalPartners"`
	ActivePartners      int     `json:"activePartners"`
	NewPartnersMonth    int     `json:"newPartnersThisMonth"`
	NewPartnersPrevious int     `json:"newPartnersLastMonth"`
	GrowthRatePct       float64 `json:"growthRate"`

	MRR          decimal.Decimal `json:"mrr"`
	ARR          decimal.Decimal `json:"arr"`
	ARPU         decimal.Decimal `json:"arpu"`
	LTV          decimal.Decimal `json:"ltv"`
	PaybackMonth decimal.Decimal `json:"paybackMonths"`
	ChurnMRR     decimal.Decimal `json:"churnMrr"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`

	TotalProducts         int            `json:"totalProducts"`
	ActiveProducts        int            `json:"activeProducts"`
	PendingProducts       int            `json:"pendingProducts"`
	AvgProductsPerPartner float64        `json:"avgProductsPerPartner"`
	ActiveSubscriptions   int            `json:"activeSubscriptions"`
	PlanDistribution      []PlanShare    `json:"planDistribution"`
	Assumptions           KPIAssumptions `json:"assumptions"`
}

// AdminDashboard is the admin landing page payload.
type AdminDashboard struct {
	Partners            int             `json:"partners"`
	ActiveSubscriptions int             `json:"activeSubscriptions"`
	MRR                 decimal.Decimal `json:"mrr"`
	PendingProducts     int             `json:"pendingProducts"`
	PendingCampaigns    int             `json:"pendingCampaigns"`
	Customers           int             `json:"customers"`
	BlockedCustomers    int             `json:"blockedCustomers"`
}

// PartnerDashboard is the partner landing page payload.
type PartnerDashboard struct {
	Products          map[string]int `json:"products"`
	TotalProducts     int            `json:"totalProducts"`
	StockUnits        int            `json:"stockUnits"`
	Campaigns         map[string]int `json:"campaigns"`
	Impressions       int            `json:"impressions"`
	Clicks            int            `json:"clicks"`
	Plan              PlanID         `json:"plan,omitempty"`
	ProductsRemaining int            `json:"productsRemaining"`
	ProductsLabel     string         `json:"productsLabel"`
}
