package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// StockSyncService applies stock movements reported by the partner ERP.
type StockSyncService struct {
	stock      port.StockStore
	erpKeyHash []byte // bcrypt hash of the integration key; empty disables key auth
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewStockSyncService creates the ERP sync service.
func NewStockSyncService(stock port.StockStore, erpKeyHash string, metrics *observability.Metrics, logger *zap.Logger) *StockSyncService {
	return &StockSyncService{
		stock:      stock,
		erpKeyHash: []byte(strings.TrimSpace(erpKeyHash)),
		metrics:    metrics,
		logger:     logger,
	}
}

// AuthorizeIntegrationKey reports whether key is the configured ERP key.
func (s *StockSyncService) AuthorizeIntegrationKey(key string) bool {
	if len(s.erpKeyHash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.erpKeyHash, []byte(key)) == nil
}

// Sync resolves the product by code and applies the movement through the
// stock procedure. An unknown code changes nothing.
func (s *StockSyncService) Sync(ctx context.Context, req *domain.StockSyncRequest) (*domain.StockSyncResult, error) {
	ctx, span := tracer.Start(ctx, "StockSyncService.Sync")
	defer span.End()

	req.ProductCode = strings.TrimSpace(req.ProductCode)
	req.ERPReference = strings.TrimSpace(req.ERPReference)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("product.code", req.ProductCode),
		attribute.String("erp.reference", req.ERPReference),
	)

	product, err := s.stock.FindProductByCode(ctx, req.ProductCode)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			s.metrics.IncrStockSync("not_found")
			s.logger.Warn("stock sync for unknown product", zap.String("code", req.ProductCode))
		} else {
			s.metrics.IncrStockSync("error")
		}
		return nil, err
	}

	update, err := s.stock.ApplyStockMovement(ctx, &domain.StockMovement{
		ProductID:      product.ID,
		QuantityChange: req.QuantityChange,
		MovementType:   domain.StockMovementERPSync,
		ReferenceID:    req.ERPReference,
		Notes:          req.MovementNotes(),
		UserID:         nil,
	})
	if err != nil {
		var rejected *domain.ErrStockUpdate
		if errors.As(err, &rejected) {
			s.metrics.IncrStockSync("rejected")
		} else {
			s.metrics.IncrStockSync("error")
		}
		s.logger.Error("stock movement failed",
			zap.String("product_id", product.ID),
			zap.Int("quantity_change", req.QuantityChange),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrStockSync("success")
	s.logger.Info("stock synced",
		zap.String("product_id", product.ID),
		zap.String("code", product.Code),
		zap.Int("quantity_change", req.QuantityChange),
		zap.String("erp_reference", req.ERPReference),
	)

	result := &domain.StockSyncResult{Success: true, StockUpdate: update}
	result.Product.ID = product.ID
	result.Product.Name = product.Name
	result.Product.Code = req.ProductCode
	return result, nil
}
