package geometry

import (
	"math"
	"testing"
)

func TestQuad_SignedArea(t *testing.T) {
	tests := []struct {
		name   string
		quad   Quad
		expect float64
	}{
		{
			name:   "unit square clockwise on screen",
			quad:   Quad{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)},
			expect: 1,
		},
		{
			name:   "mirrored winding",
			quad:   Quad{Pt(0, 0), Pt(0, 1), Pt(1, 1), Pt(1, 0)},
			expect: -1,
		},
		{
			name:   "marker on display",
			quad:   Quad{Pt(32, 32), Pt(96, 32), Pt(96, 96), Pt(32, 96)},
			expect: 64 * 64,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.quad.SignedArea(); math.Abs(got-tc.expect) > 1e-9 {
				t.Errorf("SignedArea: got %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestQuad_IsConvex(t *testing.T) {
	square := Quad{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)}
	if !square.IsConvex() {
		t.Error("square should be convex")
	}

	bowtie := Quad{Pt(0, 0), Pt(1, 1), Pt(1, 0), Pt(0, 1)}
	if bowtie.IsConvex() {
		t.Error("self-intersecting quad should not be convex")
	}

	flat := Quad{Pt(0, 0), Pt(1, 0), Pt(2, 0), Pt(3, 0)}
	if flat.IsConvex() {
		t.Error("degenerate quad should not be convex")
	}
}

func TestQuad_Centroid(t *testing.T) {
	q := Quad{Pt(310, 200), Pt(410, 200), Pt(410, 300), Pt(310, 300)}
	c := q.Centroid()
	if c != Pt(360, 250) {
		t.Errorf("Centroid: got %+v, want (360, 250)", c)
	}
}

func TestCollinear(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		expect bool
	}{
		{"too few", []Point{Pt(0, 0), Pt(1, 1)}, true},
		{"diagonal line", []Point{Pt(0, 0), Pt(1, 1), Pt(2, 2), Pt(5, 5)}, true},
		{"repeated point", []Point{Pt(3, 3), Pt(3, 3), Pt(3, 3), Pt(3, 3)}, true},
		{"square", []Point{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)}, false},
		{"nearly flat", []Point{Pt(0, 0), Pt(100, 0), Pt(50, 1e-9), Pt(25, 0)}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Collinear(tc.points, 1e-6); got != tc.expect {
				t.Errorf("Collinear: got %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestSize_Valid(t *testing.T) {
	if !(Size{Width: 1920, Height: 1080}).Valid() {
		t.Error("1920x1080 should be valid")
	}
	if (Size{Width: 0, Height: 1080}).Valid() {
		t.Error("zero width should be invalid")
	}
	if (Size{Width: 10, Height: -1}).Valid() {
		t.Error("negative height should be invalid")
	}
}
