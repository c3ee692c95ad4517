package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Products (implements port.ProductStore and port.StockStore)
// ============================================================

func (c *Client) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProducts")
	defer span.End()

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if filter.PartnerID != "" {
		q.Set("partner_id", "eq."+filter.PartnerID)
	}
	if filter.Status != "" {
		q.Set("status", "eq."+filter.Status)
	}
	if filter.Code != "" {
		q.Set("code", "eq."+filter.Code)
	}

	var products []domain.Product
	err := c.read(ctx, "supabase/products", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "products?"+q.Encode())
		if err != nil {
			return err
		}
		return decodeRows(body, &products)
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	var products []domain.Product
	err := c.read(ctx, "supabase/products", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("products?id=%s&limit=1", eq(id)))
		if err != nil {
			return err
		}
		return decodeRows(body, &products)
	})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return &products[0], nil
}

// CountProducts reads the exact row count from the Content-Range header.
func (c *Client) CountProducts(ctx context.Context, partnerID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountProducts")
	defer span.End()

	var count int
	err := c.read(ctx, "supabase/products", func() error {
		u := fmt.Sprintf("%s/rest/v1/products?select=id&partner_id=%s&limit=1", c.baseURL, eq(partnerID))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		c.setServiceHeaders(req, "count=exact")

		resp, err := c.send(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := readBody(resp)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return newAPIError(resp.StatusCode, body)
		}
		count, err = parseContentRangeTotal(resp.Header.Get("Content-Range"))
		return err
	})
	return count, err
}

// parseContentRangeTotal reads the total out of "0-0/42" or "*/0".
func parseContentRangeTotal(v string) (int, error) {
	i := strings.LastIndex(v, "/")
	if i < 0 || i == len(v)-1 {
		return 0, fmt.Errorf("unexpected Content-Range %q", v)
	}
	return strconv.Atoi(v[i+1:])
}

// CreateProducts inserts all rows with a single bulk request.
func (c *Client) CreateProducts(ctx context.Context, products []domain.Product) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProducts")
	defer span.End()
	span.SetAttributes(attribute.Int("products.count", len(products)))

	rows := make([]map[string]any, 0, len(products))
	for i := range products {
		rows = append(rows, productRow(&products[i]))
	}

	var created []domain.Product
	err := c.write("supabase/products", func() error {
		body, err := c.doPost(ctx, "products", rows)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func productRow(p *domain.Product) map[string]any {
	row := map[string]any{
		"partner_id":  p.PartnerID,
		"name":        p.Name,
		"code":        p.Code,
		"brand":       p.Brand,
		"category":    p.Category,
		"description": p.Description,
		"price":       p.Price,
		"stock":       p.Stock,
		"status":      p.Status,
		"images":      p.Images,
	}
	if p.Images == nil {
		row["images"] = []string{}
	}
	if len(p.Compatibility) > 0 {
		row["compatibility"] = p.Compatibility
	}
	if len(p.TechnicalSpecs) > 0 {
		row["technical_specs"] = p.TechnicalSpecs
	}
	return row
}

func (c *Client) UpdateProduct(ctx context.Context, id string, fields map[string]any) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	p, err := c.patchProduct(ctx, fmt.Sprintf("products?id=%s", eq(id)), fields)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return p, nil
}

func (c *Client) TransitionProduct(ctx context.Context, id, fromStatus string, fields map[string]any) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.TransitionProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id), attribute.String("from", fromStatus))

	return c.patchProduct(ctx, fmt.Sprintf("products?id=%s&status=%s", eq(id), eq(fromStatus)), fields)
}

// patchProduct returns the updated row, or nil when the filter matched nothing.
func (c *Client) patchProduct(ctx context.Context, path string, fields map[string]any) (*domain.Product, error) {
	var updated []domain.Product
	err := c.write("supabase/products", func() error {
		body, err := c.doPatchReturning(ctx, path, fields)
		if err != nil {
			return err
		}
		return decodeRows(body, &updated)
	})
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, nil
	}
	return &updated[0], nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	return c.write("supabase/products", func() error {
		return c.doDelete(ctx, fmt.Sprintf("products?id=%s", eq(id)))
	})
}

// FindProductByCode resolves the product an ERP movement refers to.
func (c *Client) FindProductByCode(ctx context.Context, code string) (*domain.StockProduct, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindProductByCode")
	defer span.End()
	span.SetAttributes(attribute.String("product.code", code))

	var rows []domain.StockProduct
	err := c.read(ctx, "supabase/products", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("products?select=id,stock,name,code&code=%s&limit=1", eq(code)))
		if err != nil {
			return err
		}
		return decodeRows(body, &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "product", ID: code}
	}
	return &rows[0], nil
}

// ApplyStockMovement calls the update_product_stock procedure, which
// records the movement and adjusts stock atomically.
func (c *Client) ApplyStockMovement(ctx context.Context, m *domain.StockMovement) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ApplyStockMovement")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", m.ProductID),
		attribute.Int("quantity_change", m.QuantityChange),
	)

	var result json.RawMessage
	err := c.write("supabase/rpc", func() error {
		body, err := c.doRPC(ctx, "update_product_stock", m)
		if err != nil {
			return err
		}
		result = body
		return nil
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.ClientError() {
			msg := apiErr.Message
			if msg == "" {
				msg = apiErr.Body
			}
			return nil, &domain.ErrStockUpdate{Message: msg}
		}
		return nil, err
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return result, nil
}
