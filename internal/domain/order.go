package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a read-only purchase record.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	ProductID   string          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CustomerDetail is a profile with its order history, newest first.
type CustomerDetail struct {
	Profile    Profile         `json:"profile"`
	Orders     []Order         `json:"orders"`
	OrderCount int             `json:"orderCount"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

// BlockRequest is the admin input for blocking a customer.
type BlockRequest struct {
	Reason string `json:"reason"`
}
