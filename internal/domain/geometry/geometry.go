// Package geometry holds the pixel-space primitives shared by every detector.
package geometry

import "math"

// Point is a position in pixel space of the sampled frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is an axis-aligned bounding box. X and Y are the top-left corner.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the box center.
func (b BBox) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Bottom returns the y coordinate of the lower edge.
func (b BBox) Bottom() float64 { return b.Y + b.H }

// Valid reports whether all coordinates are finite and the dimensions are non-negative.
func (b BBox) Valid() bool {
	for _, v := range []float64{b.X, b.Y, b.W, b.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.W >= 0 && b.H >= 0
}

// Contains reports whether p lies inside the box (edges inclusive).
func (b BBox) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W && p.Y >= b.Y && p.Y <= b.Y+b.H
}

// LowerHalf returns the bottom half of the box.
func (b BBox) LowerHalf() BBox {
	return BBox{X: b.X, Y: b.Y + b.H/2, W: b.W, H: b.H / 2}
}

// Distance is the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// CenterDistance is the distance between two box centers.
func CenterDistance(a, b BBox) float64 {
	return Distance(a.Center(), b.Center())
}

// Normalize maps p into [0,1] frame coordinates. A non-positive frame
// dimension yields 0 on that axis.
func Normalize(p Point, width, height float64) Point {
	var n Point
	if width > 0 {
		n.X = p.X / width
	}
	if height > 0 {
		n.Y = p.Y / height
	}
	return n
}
