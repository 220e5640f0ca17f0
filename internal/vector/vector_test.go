package vector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadString(t *testing.T) {
	p := Payload{"name": "Quán Biển Xanh", "rating": 4.5}

	assert.Equal(t, "Quán Biển Xanh", p.String("name"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, "", p.String("rating"))
}

func TestPayloadFloatToleratesJSONTypes(t *testing.T) {
	p := Payload{
		"a": 1.5,
		"b": float32(2.5),
		"c": 3,
		"d": int64(4),
		"e": "not a number",
	}

	assert.Equal(t, 1.5, p.Float("a"))
	assert.Equal(t, 2.5, p.Float("b"))
	assert.Equal(t, 3.0, p.Float("c"))
	assert.Equal(t, 4.0, p.Float("d"))
	assert.Equal(t, 0.0, p.Float("e"))
	assert.Equal(t, 0.0, p.Float("missing"))
}

func TestPayloadObjects(t *testing.T) {
	p := Payload{
		"menu_items": []interface{}{
			map[string]interface{}{"name": "Tôm hùm nướng"},
			Payload{"name": "Ghẹ hấp bia"},
			"not an object",
		},
	}

	items := p.Objects("menu_items")
	require.Len(t, items, 2)
	assert.Equal(t, "Tôm hùm nướng", items[0].String("name"))
	assert.Equal(t, "Ghẹ hấp bia", items[1].String("name"))

	assert.Nil(t, p.Objects("missing"))
}

func TestPayloadTimestamp(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	p := Payload{"timestamp": now.Format(time.RFC3339)}
	assert.True(t, p.Timestamp().Equal(now))

	assert.True(t, Payload{}.Timestamp().IsZero())
	assert.True(t, Payload{"timestamp": "garbage"}.Timestamp().IsZero())
}
