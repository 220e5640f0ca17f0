package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/prompts"
	"github.com/bebo-assistant/backend/pkg/logger"
)

const locationExtractionPrompt = "You are a location extraction assistant. Extract any location or place names mentioned in the query. If no location is mentioned, return 'None'. Only return the location name, nothing else."

// NewHotel builds the hotel domain: parents are hotels, children are their
// rooms. When the question names a location, an extra generation call
// extracts it and location awareness is appended to the system prompt.
// Answers are recorded in interaction memory.
func NewHotel(deps Deps, templates *prompts.Templates) *Domain {
	d := &Domain{
		name:         "hotel",
		contextType:  "accommodation",
		index:        deps.Index,
		embedder:     deps.Embedder,
		generator:    deps.Generator,
		prompt:       templates.Hotel(),
		childKey:     "rooms",
		apology:      templates.Apology(),
		recorder:     deps.Recorder,
		refresher:    deps.Refresher,
		buildContext: buildHotelContext,
	}

	d.extraInstructions = func(ctx context.Context, q Query) string {
		location := extractLocation(ctx, deps.Generator, q.Text)
		if location == "" {
			return ""
		}
		return fmt.Sprintf("Người dùng đang hỏi về khách sạn gần '%s'. "+
			"Hãy chú ý đặc biệt đến vị trí khách sạn và khoảng cách đến địa điểm này. "+
			"Nếu có tọa độ, hãy sử dụng chúng để xác định khách sạn nào gần địa điểm được đề cập nhất.", location)
	}

	return d
}

func extractLocation(ctx context.Context, generator Generator, query string) string {
	location, err := generator.CompleteLight(ctx, locationExtractionPrompt, query)
	if err != nil {
		logger.Warn("Location extraction failed", zap.Error(err))
		return ""
	}

	location = strings.TrimSpace(location)
	if strings.EqualFold(location, "none") {
		return ""
	}
	return location
}

func buildHotelContext(parents []ParentMatch, childs []ChildMatch) string {
	var b strings.Builder
	b.WriteString("Hotel information:\n")

	for _, parent := range parents {
		p := parent.Payload
		writeLine(&b, "Hotel: %s", p.String("name"))
		writeLine(&b, "Address: %s", p.String("address"))

		if lat, lon := p.Float("latitude"), p.Float("longitude"); lat != 0 && lon != 0 {
			writeLine(&b, "Coordinates: %v, %v", lat, lon)
		}

		if amenities := p.Objects("amenities"); len(amenities) > 0 {
			b.WriteString("Amenities:\n")
			seen := make(map[string]bool)
			for _, amenity := range amenities {
				name := amenity.String("name")
				if name == "" || seen[name] {
					continue
				}
				seen[name] = true
				writeLine(&b, "- %s", name)
			}
		}

		rooms := p.Objects("rooms")
		if len(rooms) > 0 {
			b.WriteString("Sample rooms:\n")
			for i, room := range rooms {
				if i >= 3 {
					break
				}
				writeLine(&b, "- %s - Price: %s", room.String("name"), formatPrice(room))
			}
		}
		b.WriteString("\n")
	}

	if len(childs) > 0 {
		b.WriteString("Specific rooms that match the question:\n")
		for _, child := range childs {
			writeLine(&b, "- %s - Price: %s at %s",
				child.Payload.String("name"), formatPrice(child.Payload), child.ParentName)
		}
	}

	return b.String()
}
