package rag

import (
	"strings"

	"github.com/bebo-assistant/backend/internal/prompts"
)

// NewDelivery builds the delivery domain: parents are delivery services,
// children are their per-route detail records (pricing tiers, coverage).
func NewDelivery(deps Deps, templates *prompts.Templates) *Domain {
	return &Domain{
		name:         "delivery",
		contextType:  "delivery",
		index:        deps.Index,
		embedder:     deps.Embedder,
		generator:    deps.Generator,
		prompt:       templates.Delivery(),
		childKey:     "details",
		apology:      templates.Apology(),
		refresher:    deps.Refresher,
		buildContext: buildDeliveryContext,
	}
}

func buildDeliveryContext(parents []ParentMatch, childs []ChildMatch) string {
	var b strings.Builder
	b.WriteString("Delivery service information:\n")

	for _, parent := range parents {
		p := parent.Payload
		writeLine(&b, "Service: %s", p.String("name"))
		if area := p.String("service_area"); area != "" {
			writeLine(&b, "Service area: %s", area)
		}
		if hours := p.String("operating_hours"); hours != "" {
			writeLine(&b, "Operating hours: %s", hours)
		}
		if phone := p.String("phone"); phone != "" {
			writeLine(&b, "Contact: %s", phone)
		}

		details := p.Objects("details")
		if len(details) > 0 {
			b.WriteString("Pricing and coverage:\n")
			for i, detail := range details {
				if i >= 3 {
					break
				}
				writeLine(&b, "- %s - Price: %s", detail.String("name"), formatPrice(detail))
			}
		}
		b.WriteString("\n")
	}

	if len(childs) > 0 {
		b.WriteString("Specific options that match the question:\n")
		for _, child := range childs {
			writeLine(&b, "- %s - Price: %s (%s)",
				child.Payload.String("name"), formatPrice(child.Payload), child.ParentName)
		}
	}

	return b.String()
}
