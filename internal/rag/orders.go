package rag

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/prompts"
	"github.com/bebo-assistant/backend/internal/vector"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// userHistoryLimit bounds how many of the user's own orders are added to
// the answer context.
const userHistoryLimit = 10

const serviceTypePrompt = "You are a service type extraction assistant. Determine which service the user is asking about: food, delivery, hotel or other. Only return one of these words, nothing else."

// NewOrders builds the order history domain: parents are orders, children
// are the ordered line items. Besides similarity search, the user's own
// orders are scanned by exact user id and added to the context, so "have I
// ordered X before" style questions work without a semantic match.
func NewOrders(deps Deps, templates *prompts.Templates) *Domain {
	d := &Domain{
		name:         "orders",
		contextType:  "order",
		index:        deps.Index,
		embedder:     deps.Embedder,
		generator:    deps.Generator,
		prompt:       templates.Orders(),
		childKey:     "items",
		apology:      templates.Apology(),
		refresher:    deps.Refresher,
		buildContext: buildOrdersContext,
	}

	d.extraContext = func(ctx context.Context, q Query) string {
		if q.UserID == "" || q.UserID == "anonymous" {
			return ""
		}
		serviceType := extractServiceType(ctx, deps.Generator, q.Text)
		return buildUserOrderHistory(ctx, deps.Index, q.UserID, serviceType)
	}

	return d
}

// extractServiceType narrows the user-history scan when the question names
// a specific service. "other" or a failed call means no narrowing.
func extractServiceType(ctx context.Context, generator Generator, query string) string {
	serviceType, err := generator.CompleteLight(ctx, serviceTypePrompt, query)
	if err != nil {
		logger.Warn("Service type extraction failed", zap.Error(err))
		return ""
	}

	serviceType = strings.ToLower(strings.TrimSpace(serviceType))
	switch serviceType {
	case "food", "delivery", "hotel":
		return serviceType
	}
	return ""
}

// SearchOrdersByUser returns the stored orders of one user, unordered.
func SearchOrdersByUser(ctx context.Context, index vector.Index, userID string, limit int) ([]vector.Payload, error) {
	return index.Scan(ctx, map[string]string{"user_id": userID}, time.Time{}, limit)
}

func buildUserOrderHistory(ctx context.Context, index vector.Index, userID, serviceType string) string {
	orders, err := SearchOrdersByUser(ctx, index, userID, userHistoryLimit)
	if err != nil {
		logger.Warn("Failed to scan user orders",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return ""
	}

	if serviceType != "" {
		filtered := orders[:0]
		for _, order := range orders {
			if strings.EqualFold(order.String("service_type"), serviceType) {
				filtered = append(filtered, order)
			}
		}
		orders = filtered
	}

	if len(orders) == 0 {
		return "The user has no recorded orders.\n"
	}

	var b strings.Builder
	b.WriteString("This user's own order history:\n")
	for _, order := range orders {
		writeLine(&b, "- Order %s: %s (%s) - Total: %s",
			order.String("id"),
			order.String("service_type"),
			order.String("status"),
			formatOrderTotal(order),
		)
	}
	return b.String()
}

func buildOrdersContext(parents []ParentMatch, childs []ChildMatch) string {
	var b strings.Builder
	b.WriteString("Order information:\n")

	for _, parent := range parents {
		p := parent.Payload
		writeLine(&b, "Order %s - Service: %s - Status: %s",
			p.String("id"), p.String("service_type"), p.String("status"))
		if placed := p.String("timestamp"); placed != "" {
			writeLine(&b, "Placed: %s", placed)
		}

		items := p.Objects("items")
		if len(items) > 0 {
			b.WriteString("Items:\n")
			for _, item := range items {
				writeLine(&b, "- %s x%v - %s",
					item.String("name"), item.Float("quantity"), formatPrice(item))
			}
		}
		b.WriteString("\n")
	}

	if len(childs) > 0 {
		b.WriteString("Items that match the question:\n")
		for _, child := range childs {
			writeLine(&b, "- %s - %s (order %s)",
				child.Payload.String("name"), formatPrice(child.Payload), child.ParentID)
		}
	}

	return b.String()
}

func formatOrderTotal(order vector.Payload) string {
	if total := order.Float("total"); total > 0 {
		return formatPrice(vector.Payload{"price": total})
	}
	return "liên hệ"
}
