package gaze

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := `timestamp_ns,x,y,worn
1000,360.5,250,1
2000, 12, 14, 0
3000,1,2
`
	points, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, 360.5, points[0].X)
	assert.True(t, points[0].Valid)
	assert.Equal(t, time.Unix(0, 1000), points[0].Timestamp)
	assert.False(t, points[1].Valid)
	assert.Equal(t, 14.0, points[1].Y)
	assert.True(t, points[2].Valid, "missing worn column means worn")
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few fields", "1000,3\n"},
		{"bad timestamp", "1000,1,1\nsoon,1,1\n"},
		{"bad x", "1000,left,1\n"},
		{"bad worn", "1000,1,1,maybe\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.in))
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaze.csv")
	require.NoError(t, os.WriteFile(path, []byte("5,1,2\n"), 0o644))

	points, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
