package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product statuses.
const (
	ProductPending  = "pending"
	ProductActive   = "active"
	ProductInactive = "inactive"
	ProductRejected = "rejected"
)

// Compatibility names a vehicle a part fits.
type Compatibility struct {
	Brand string `json:"brand" validate:"required"`
	Model string `json:"model" validate:"required"`
	Year  string `json:"year,omitempty"`
}

// Product is a catalog item owned by a partner.
type Product struct {
	ID              string          `json:"id"`
	PartnerID       string          `json:"partner_id"`
	PartnerName     string          `json:"partner_name,omitempty"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Brand           string          `json:"brand,omitempty"`
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	Status          string          `json:"status"`
	Images          []string        `json:"images,omitempty"`
	Compatibility   []Compatibility `json:"compatibility,omitempty"`
	TechnicalSpecs  map[string]any  `json:"technical_specs,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	ApprovedBy      *string         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// ProductInput is the partner-editable part of a product.
type ProductInput struct {
	Name           string          `json:"name" validate:"required,min=3,max=200"`
	Code           string          `json:"code" validate:"required,max=60"`
	Brand          string          `json:"brand" validate:"max=100"`
	Category       string          `json:"category" validate:"required"`
	Description    string          `json:"description" validate:"max=2000"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock" validate:"gte=0"`
	Images         []string        `json:"images" validate:"dive,url"`
	Compatibility  []Compatibility `json:"compatibility" validate:"dive"`
	TechnicalSpecs map[string]any  `json:"technical_specs"`
}

// ProductUpdate carries optional changes to an existing product.
type ProductUpdate struct {
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=3,max=200"`
	Brand          *string          `json:"brand,omitempty" validate:"omitempty,max=100"`
	Category       *string          `json:"category,omitempty"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Stock          *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Status         *string          `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	Images         []string         `json:"images,omitempty" validate:"omitempty,dive,url"`
	Compatibility  []Compatibility  `json:"compatibility,omitempty" validate:"omitempty,dive"`
	TechnicalSpecs map[string]any   `json:"technical_specs,omitempty"`
}

// CanReactivate reports whether the owner may put p back on sale. Only a
// product that passed moderation and was later deactivated qualifies.
func (p *Product) CanReactivate() bool {
	return p.Status == ProductInactive && p.ApprovedAt != nil
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	PartnerID string
	Status    string
	Code      string
}

// ImportRowError explains why a spreadsheet row was skipped.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk product import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
	Products []Product        `json:"products"`
}

// ImportColumns is the header expected in product spreadsheets.
var ImportColumns = []string{"code", "name", "category", "brand", "price", "stock", "description"}

// RejectRequest carries the reason an admin gives when rejecting a product
// or campaign.
type RejectRequest struct {
	Reason string `json:"reason"`
}
