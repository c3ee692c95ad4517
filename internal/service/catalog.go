package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// CatalogService manages partner products and the admin product listing.
type CatalogService struct {
	products port.ProductStore
	subs     port.SubscriptionStore
	profiles port.ProfileStore
	images   port.ImageStore // nil when object storage is not configured
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewCatalogService creates the catalog service. images may be nil.
func NewCatalogService(
	products port.ProductStore,
	subs port.SubscriptionStore,
	profiles port.ProfileStore,
	images port.ImageStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		subs:     subs,
		profiles: profiles,
		images:   images,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ============================================================
// Admin
// ============================================================

// ListAll returns every partner's products, newest first, with the
// partner name resolved in one batched lookup.
func (s *CatalogService) ListAll(ctx context.Context, session *domain.Session, status string) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.ListAll")
	defer span.End()

	if err := requireRole(session, domain.RoleAdmin, "list products"); err != nil {
		return nil, err
	}

	products, err := s.products.ListProducts(ctx, domain.ProductFilter{Status: status})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(products))
	for i := range products {
		ids = append(ids, products[i].PartnerID)
	}
	byID, err := profilesByID(ctx, s.profiles, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if p, ok := byID[products[i].PartnerID]; ok {
			products[i].PartnerName = partnerDisplayName(p)
		}
	}
	return nonNil(products), nil
}

func partnerDisplayName(p domain.Profile) string {
	if p.Company != "" {
		return p.Company
	}
	return p.Name
}

// ============================================================
// Partner
// ============================================================

func (s *CatalogService) ListOwn(ctx context.Context, session *domain.Session) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.ListOwn")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "list own products"); err != nil {
		return nil, err
	}
	products, err := s.products.ListProducts(ctx, domain.ProductFilter{PartnerID: session.UserID})
	if err != nil {
		return nil, err
	}
	return nonNil(products), nil
}

// Create adds a product as pending, within the plan quota.
func (s *CatalogService) Create(ctx context.Context, session *domain.Session, in *domain.ProductInput) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.Create")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "create products"); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	plan, count, err := s.quota(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !plan.AllowsProducts(count) {
		return nil, &domain.ErrQuotaExceeded{Resource: "products", Limit: plan.MaxProducts, Current: count}
	}

	existing, err := s.products.ListProducts(ctx, domain.ProductFilter{PartnerID: session.UserID, Code: in.Code})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, duplicateCode(in.Code)
	}

	created, err := s.products.CreateProducts(ctx, []domain.Product{{
		PartnerID:      session.UserID,
		Name:           in.Name,
		Code:           in.Code,
		Brand:          strings.TrimSpace(in.Brand),
		Category:       in.Category,
		Description:    strings.TrimSpace(in.Description),
		Price:          in.Price,
		Stock:          in.Stock,
		Status:         domain.ProductPending,
		Images:         in.Images,
		Compatibility:  in.Compatibility,
		TechnicalSpecs: in.TechnicalSpecs,
	}})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, &domain.ErrExternalService{Service: "supabase", Err: errors.New("insert returned no rows")}
	}

	s.syncProductsCount(ctx, session.UserID, count+1)
	s.logger.Info("product created",
		zap.String("partner_id", session.UserID),
		zap.String("product_id", created[0].ID),
		zap.String("code", in.Code),
	)
	return &created[0], nil
}

// Update changes a product the caller owns. Partners can only move a
// product to inactive; every other status is set by moderation.
func (s *CatalogService) Update(ctx context.Context, session *domain.Session, id string, in *domain.ProductUpdate) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if err := requireRole(session, domain.RolePartner, "update products"); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, &domain.ErrValidation{Field: "price", Message: "Deve ser maior ou igual a 0"}
	}

	current, err := s.owned(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && *in.Status == domain.ProductActive && !current.CanReactivate() {
		return nil, &domain.ErrValidationSet{Fields: map[string]string{
			"status": "Só produtos aprovados e inativos podem ser reativados",
		}}
	}

	fields := map[string]any{"updated_at": s.now().UTC()}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Brand != nil {
		fields["brand"] = strings.TrimSpace(*in.Brand)
	}
	if in.Category != nil {
		fields["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.Stock != nil {
		fields["stock"] = *in.Stock
	}
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.Images != nil {
		fields["images"] = in.Images
	}
	if in.Compatibility != nil {
		fields["compatibility"] = in.Compatibility
	}
	if in.TechnicalSpecs != nil {
		fields["technical_specs"] = in.TechnicalSpecs
	}

	return s.products.UpdateProduct(ctx, id, fields)
}

func (s *CatalogService) Delete(ctx context.Context, session *domain.Session, id string) error {
	ctx, span := tracer.Start(ctx, "CatalogService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if err := requireRole(session, domain.RolePartner, "delete products"); err != nil {
		return err
	}
	if _, err := s.owned(ctx, session, id); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}

	if count, err := s.products.CountProducts(ctx, session.UserID); err == nil {
		s.syncProductsCount(ctx, session.UserID, count)
	}
	s.logger.Info("product deleted", zap.String("partner_id", session.UserID), zap.String("product_id", id))
	return nil
}

// owned loads a product and checks the caller is its partner.
func (s *CatalogService) owned(ctx context.Context, session *domain.Session, id string) (*domain.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PartnerID != session.UserID {
		return nil, &domain.ErrForbidden{Action: "modify another partner's product"}
	}
	return p, nil
}

// quota returns the partner's plan and how many products they hold.
func (s *CatalogService) quota(ctx context.Context, partnerID string) (domain.Plan, int, error) {
	sub, err := s.subs.GetSubscriptionByPartner(ctx, partnerID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return domain.Plan{}, 0, &domain.ErrForbidden{Action: "add products without a subscription"}
		}
		return domain.Plan{}, 0, err
	}
	if !sub.IsActive() {
		return domain.Plan{}, 0, &domain.ErrForbidden{Action: "add products with an inactive subscription"}
	}
	plan, ok := domain.LookupPlan(string(sub.Plan))
	if !ok {
		return domain.Plan{}, 0, &domain.ErrNotFound{Resource: "plan", ID: string(sub.Plan)}
	}

	count, err := s.products.CountProducts(ctx, partnerID)
	if err != nil {
		return domain.Plan{}, 0, err
	}
	return plan, count, nil
}

// syncProductsCount mirrors the catalog size onto the subscription. It is
// informational, so a failure is only logged.
func (s *CatalogService) syncProductsCount(ctx context.Context, partnerID string, count int) {
	if err := s.subs.UpdateProductsCount(ctx, partnerID, count); err != nil {
		s.logger.Warn("products_count not updated", zap.String("partner_id", partnerID), zap.Error(err))
	}
}

func validateProductInput(in *domain.ProductInput) error {
	var price error
	if in.Price.IsNegative() {
		price = &domain.ErrValidationSet{Fields: map[string]string{"price": "Deve ser maior ou igual a 0"}}
	}
	return mergeValidation(validateStruct(in), price)
}

func duplicateCode(code string) error {
	return &domain.ErrConflict{Message: fmt.Sprintf("Já existe um produto com o código %s", code)}
}

// ============================================================
// Images
// ============================================================

// UploadImage stores an image under the caller's folder and returns its
// public URL.
func (s *CatalogService) UploadImage(ctx context.Context, session *domain.Session, filename string, body io.Reader, size int64) (string, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.UploadImage")
	defer span.End()

	if session == nil {
		return "", &domain.ErrUnauthorized{Message: "Sessão ausente"}
	}
	if !session.IsAdmin() && !session.IsPartner() {
		return "", &domain.ErrForbidden{Action: "upload images"}
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", &domain.ErrValidation{Field: "file", Message: "Formato de imagem não suportado"}
	}
	if s.images == nil {
		return "", &domain.ErrExternalService{Service: "storage", Err: errors.New("object storage not configured")}
	}

	key := imageKey(session.UserID, s.now(), ext)
	span.SetAttributes(attribute.String("object.key", key))

	url, err := s.images.PutImage(ctx, key, contentType, body, size)
	if err != nil {
		s.metrics.IncrExternalError("storage")
		return "", err
	}
	s.logger.Info("image uploaded", zap.String("user_id", session.UserID), zap.String("key", key))
	return url, nil
}

// imageKey is <owner>/<unix millis>-<uuid>.<ext>.
func imageKey(ownerID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", ownerID, at.UnixMilli(), uuid.NewString(), ext)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
