package math3d

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateGeometry is returned when a computation would divide by a
// zero extent, such as rescaling an empty or single-point scene.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// Box is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox as the starting point for unions.
type Box struct {
	Min, Max Vec3
}

// EmptyBox returns the identity element for Union: Min is +Inf and Max is
// -Inf on every axis.
func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: V3(inf, inf, inf),
		Max: V3(-inf, -inf, -inf),
	}
}

// NewBox creates a box from two corners.
func NewBox(min, max Vec3) Box {
	return Box{Min: min, Max: max}
}

// BoxFromPoints returns the bounds of points, or EmptyBox for no points.
func BoxFromPoints(points []Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b Box) Extend(p Vec3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Center returns the box midpoint; the origin for an empty box.
func (b Box) Center() Vec3 {
	if b.IsEmpty() {
		return Zero3()
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent on each axis; zero for an empty box.
func (b Box) Size() Vec3 {
	if b.IsEmpty() {
		return Zero3()
	}
	return b.Max.Sub(b.Min)
}

// Translate returns the box moved by offset.
func (b Box) Translate(offset Vec3) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Corners returns the eight box corners, bottom face first.
func (b Box) Corners() [8]Vec3 {
	lo, hi := b.Min, b.Max
	return [8]Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z},
	}
}

// ComputeCenter returns the midpoint of the axis-aligned bounds of points.
// This is the box center, not the vertex average, so dense regions of a
// mesh do not pull it. Empty input yields the origin.
func ComputeCenter(points []Vec3) Vec3 {
	return BoxFromPoints(points).Center()
}

// ComputeDimensions returns, per axis, twice the largest distance of any
// point from center. With center from ComputeCenter this equals max-min.
func ComputeDimensions(points []Vec3, center Vec3) Vec3 {
	var half Vec3
	for _, p := range points {
		half = half.Max(p.Sub(center).Abs())
	}
	return half.Scale(2)
}

// ScaleAndTranslate returns a copy of points with every position multiplied
// by factor and then moved by translation.
func ScaleAndTranslate(points []Vec3, factor float64, translation Vec3) []Vec3 {
	out := make([]Vec3, len(points))
	for i, p := range points {
		out[i] = p.Scale(factor).Add(translation)
	}
	return out
}

// ScaleFactor returns target/extent, refusing zero or non-finite extents
// and non-positive targets.
func ScaleFactor(target, extent float64) (float64, error) {
	if !(target > 0) || math.IsInf(target, 0) {
		return 0, fmt.Errorf("%w: target size %v must be positive", ErrDegenerateGeometry, target)
	}
	if extent == 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		return 0, fmt.Errorf("%w: cannot scale against extent %v", ErrDegenerateGeometry, extent)
	}
	return target / extent, nil
}
