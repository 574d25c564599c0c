package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

func TestOnUnitSquare(t *testing.T) {
	tests := []struct {
		name string
		p    geometry.Point
		want bool
	}{
		{"centre", geometry.Pt(0.5, 0.5), true},
		{"exact top left", geometry.Pt(0, 0), true},
		{"top left round-off", geometry.Pt(-4.7e-16, 0), true},
		{"bottom right round-off", geometry.Pt(1.0000000000000007, 0.99999999999999978), true},
		{"left of surface", geometry.Pt(-0.01, 0.5), false},
		{"below surface", geometry.Pt(0.5, 1.001), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, onUnitSquare(tc.p))
		})
	}
}
