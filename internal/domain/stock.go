package domain

import (
	"encoding/json"
	"fmt"
)

// StockMovementERPSync tags movements coming from the ERP integration.
const StockMovementERPSync = "erp_sync"

// StockSyncRequest is posted by the external ERP.
type StockSyncRequest struct {
	ProductCode    string  `json:"product_code" validate:"required"`
	QuantityChange int     `json:"quantity_change"`
	ERPReference   string  `json:"erp_reference" validate:"required"`
	Notes          *string `json:"notes,omitempty"`
}

// MovementNotes returns the caller's notes or the default audit text.
func (r *StockSyncRequest) MovementNotes() string {
	if r.Notes != nil && *r.Notes != "" {
		return *r.Notes
	}
	return fmt.Sprintf("ERP sync from reference: %s", r.ERPReference)
}

// StockProduct is the product slice the sync operation resolves by code.
type StockProduct struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Code  string `json:"code"`
	Stock int    `json:"stock"`
}

// StockMovement is the argument set of the stock update procedure.
type StockMovement struct {
	ProductID      string  `json:"_product_id"`
	QuantityChange int     `json:"_quantity_change"`
	MovementType   string  `json:"_movement_type"`
	ReferenceID    string  `json:"_reference_id"`
	Notes          string  `json:"_notes"`
	UserID         *string `json:"_user_id"`
}

// StockSyncResult is returned to the ERP.
type StockSyncResult struct {
	Success bool `json:"success"`
	Product struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"product"`
	StockUpdate json.RawMessage `json:"stock_update"`
}
