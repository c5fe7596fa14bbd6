package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	shapes := []Shape{
		{AuthorID: "m1", Geometry: Rectangle{X: 10, Y: 10, Width: -40.5, Height: 30}},
		{AuthorID: "m1", Geometry: Circle{CenterX: 1.25, CenterY: -3, Radius: 7}},
		{AuthorID: "m2", Geometry: Line{X1: 0, Y1: 0, X2: 99.9, Y2: 12}},
		{AuthorID: "m2", Geometry: Freehand{Points: []Point{Pt(1, 2), Pt(3, 4), Pt(5, 6)}}},
	}
	for _, s := range shapes {
		t.Run(string(s.Geometry.Kind()), func(t *testing.T) {
			body, err := Encode(s)
			require.NoError(t, err)

			got, err := Decode("shape-1", body)
			require.NoError(t, err)
			assert.Equal(t, "shape-1", got.ID)
			assert.Equal(t, "shape-1", got.Key)
			assert.Equal(t, s.AuthorID, got.AuthorID)
			assert.Equal(t, s.Geometry, got.Geometry)
		})
	}
}

func TestEncodeUsesStoredFieldNames(t *testing.T) {
	body, err := Encode(Shape{AuthorID: "m1", Geometry: Freehand{Points: []Point{Pt(1, 2), Pt(3, 4)}}})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	assert.Equal(t, "pen", raw["type"])
	assert.Equal(t, "m1", raw["memberId"])
	assert.Equal(t, []any{[]any{1.0, 2.0}, []any{3.0, 4.0}}, raw["inputpoint"])
}

func TestDecodeStoredBody(t *testing.T) {
	s, err := Decode("k1", `{"type":"ract","x":10,"y":10,"width":40,"height":30,"memberId":"m9"}`)
	require.NoError(t, err)
	assert.Equal(t, Rectangle{X: 10, Y: 10, Width: 40, Height: 30}, s.Geometry)
	assert.Equal(t, "m9", s.AuthorID)

	c, err := Decode("k2", `{"type":"circle","centerX":5,"centerY":5,"radius":-3}`)
	require.NoError(t, err)
	assert.Equal(t, Circle{CenterX: 5, CenterY: 5, Radius: 3}, c.Geometry)
}

func TestDecodeRejectsBadBodies(t *testing.T) {
	bodies := map[string]string{
		"not json":         `{{{`,
		"unknown type":     `{"type":"hexagon","x":1}`,
		"missing fields":   `{"type":"ract","x":1,"y":2}`,
		"missing type":     `{"x1":1,"y1":2,"x2":3,"y2":4}`,
		"wrong coord type": `{"type":"line","x1":"a","y1":2,"x2":3,"y2":4}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := Decode("bad", body)
			assert.Error(t, err)
		})
	}
	_, err := Decode("bad", `{"type":"hexagon"}`)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
