package vector

import (
	"context"
	"time"
)

// Payload is the document stored alongside a vector. Payload shapes differ
// per collection (restaurants carry menu items, hotels carry rooms and
// amenities), so it stays schemaless the way the ingestion pipeline writes
// it.
type Payload map[string]interface{}

type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

type Match struct {
	Payload Payload
	Score   float32
}

// Index is a collection-scoped similarity store. Collections are populated
// by the external ingestion pipeline; the request path only reads, except
// for the chat history collection which is append-only.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	// Search returns up to k matches ranked by cosine similarity, optionally
	// restricted to payloads whose fields equal the given filters.
	Search(ctx context.Context, vector []float32, k int, filters map[string]string) ([]Match, error)
	// Scan returns up to limit payloads matching the filters, unordered.
	// A zero since means no time bound; otherwise only payloads with a
	// "timestamp" at or after since are returned.
	Scan(ctx context.Context, filters map[string]string, since time.Time, limit int) ([]Payload, error)
}

// String reads a string field, returning "" for missing or mistyped values.
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Float reads a numeric field, tolerating the types JSON decoding produces.
func (p Payload) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Objects reads a field holding a list of nested objects, such as a
// restaurant's menu items or a hotel's rooms.
func (p Payload) Objects(key string) []Payload {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Payload, 0, len(raw))
	for _, item := range raw {
		switch m := item.(type) {
		case map[string]interface{}:
			out = append(out, Payload(m))
		case Payload:
			out = append(out, m)
		}
	}
	return out
}

// Timestamp parses the payload's RFC 3339 "timestamp" field.
func (p Payload) Timestamp() time.Time {
	t, err := time.Parse(time.RFC3339, p.String("timestamp"))
	if err != nil {
		return time.Time{}
	}
	return t
}
