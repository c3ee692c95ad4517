package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ListOrdersByCustomer returns the customer's orders, newest first.
func (c *Client) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrdersByCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var orders []domain.Order
	err := c.read(ctx, "supabase/orders", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("orders?select=*&customer_id=%s&order=created_at.desc", eq(customerID)))
		if err != nil {
			return err
		}
		return decodeRows(body, &orders)
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
