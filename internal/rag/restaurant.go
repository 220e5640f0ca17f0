package rag

import (
	"strings"

	"github.com/bebo-assistant/backend/internal/prompts"
)

// NewRestaurant builds the restaurant domain: parents are restaurants,
// children are their menu items. Answers are recorded in interaction
// memory.
func NewRestaurant(deps Deps, templates *prompts.Templates) *Domain {
	return &Domain{
		name:         "restaurant",
		contextType:  "restaurant",
		index:        deps.Index,
		embedder:     deps.Embedder,
		generator:    deps.Generator,
		prompt:       templates.Restaurant(),
		childKey:     "menu_items",
		apology:      templates.Apology(),
		recorder:     deps.Recorder,
		refresher:    deps.Refresher,
		buildContext: buildRestaurantContext,
	}
}

func buildRestaurantContext(parents []ParentMatch, childs []ChildMatch) string {
	var b strings.Builder
	b.WriteString("Restaurant information:\n")

	for _, parent := range parents {
		p := parent.Payload
		writeLine(&b, "Restaurant: %s", p.String("name"))
		writeLine(&b, "Address: %s", p.String("address"))
		if cuisine := p.String("cuisine"); cuisine != "" {
			writeLine(&b, "Cuisine: %s", cuisine)
		}
		if rating := p.Float("rating"); rating > 0 {
			writeLine(&b, "Rating: %.1f", rating)
		}

		items := p.Objects("menu_items")
		if len(items) > 0 {
			b.WriteString("Sample menu items:\n")
			for i, item := range items {
				if i >= 3 {
					break
				}
				writeLine(&b, "- %s - Price: %s", item.String("name"), formatPrice(item))
			}
		}
		b.WriteString("\n")
	}

	if len(childs) > 0 {
		b.WriteString("Specific dishes that match the question:\n")
		for _, child := range childs {
			writeLine(&b, "- %s - Price: %s at %s",
				child.Payload.String("name"), formatPrice(child.Payload), child.ParentName)
		}
	}

	return b.String()
}
