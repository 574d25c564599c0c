package surface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layoutJSON = `{
	"surfaces": [
		{
			"name": "Monitor",
			"width": 1920,
			"height": 1080,
			"markers": [
				{"id": 0, "corners": [[32, 32], [96, 32], [96, 96], [32, 96]]},
				{"id": 1, "corners": [[1824, 32], [1888, 32], [1888, 96], [1824, 96]]}
			]
		}
	]
}`

func TestLoadLayouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surfaces.json")
	require.NoError(t, os.WriteFile(path, []byte(layoutJSON), 0o600))

	layouts, err := LoadLayouts(path)
	require.NoError(t, err)
	require.Len(t, layouts, 1)

	reg := NewRegistry()
	defs, err := reg.RegisterLayouts(layouts)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Monitor", defs[0].Name)
	assert.Equal(t, 1920.0, defs[0].Size.Width)
	assert.Equal(t, []int{0, 1}, defs[0].MarkerIDs())
}

func TestParseLayouts_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no surfaces", `{"surfaces": []}`},
		{"three corners", `{"surfaces": [{"width": 10, "height": 10, "markers": [{"id": 0, "corners": [[0,0],[1,0],[1,1]]}]}]}`},
		{"zero width", `{"surfaces": [{"width": 0, "height": 10, "markers": [{"id": 0, "corners": [[0,0],[1,0],[1,1],[0,1]]}]}]}`},
		{"negative id", `{"surfaces": [{"width": 10, "height": 10, "markers": [{"id": -3, "corners": [[0,0],[1,0],[1,1],[0,1]]}]}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLayouts([]byte(tc.data))
			assert.ErrorIs(t, err, ErrInvalidSurfaceGeometry)
		})
	}
}

func TestLayout_DuplicateMarkerInOneSurface(t *testing.T) {
	l := Layout{
		Name:  "Twice",
		Width: 10, Height: 10,
		Markers: []MarkerLayout{
			{ID: 1, Corners: [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
			{ID: 1, Corners: [][2]float64{{5, 5}, {6, 5}, {6, 6}, {5, 6}}},
		},
	}
	_, err := l.Quads()
	assert.ErrorIs(t, err, ErrInvalidSurfaceGeometry)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout([]byte(`{"name": "Tablet", "width": 100, "height": 60,
		"markers": [{"id": 4, "corners": [[0, 0], [10, 0], [10, 10], [0, 10]]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Tablet", l.Name)
	assert.Equal(t, 60.0, l.Size().Height)

	_, err = ParseLayout([]byte(`{"name": "Tablet", "width": 100, "height": 60, "markers": []}`))
	assert.ErrorIs(t, err, ErrInvalidSurfaceGeometry)

	_, err = ParseLayout([]byte(`[`))
	assert.Error(t, err)
}
