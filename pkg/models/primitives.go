package models

import (
	"fmt"
	"math"

	"github.com/taigrr/papercraft/pkg/math3d"
)

// PrimitiveKind selects the shape generated by NewPrimitive.
type PrimitiveKind int

const (
	PrimitiveBox PrimitiveKind = iota
	PrimitiveCylinder
)

// DefaultCylinderSegments is used when a cylinder is fitted to bounds.
// A multiple of 4 keeps the X and Z extents at exactly 2r.
const DefaultCylinderSegments = 32

func (k PrimitiveKind) String() string {
	switch k {
	case PrimitiveBox:
		return "box"
	case PrimitiveCylinder:
		return "cylinder"
	default:
		return fmt.Sprintf("PrimitiveKind(%d)", int(k))
	}
}

// ParsePrimitiveKind converts "box" or "cylinder" to a PrimitiveKind.
func ParsePrimitiveKind(s string) (PrimitiveKind, error) {
	switch s {
	case "box":
		return PrimitiveBox, nil
	case "cylinder":
		return PrimitiveCylinder, nil
	default:
		return 0, fmt.Errorf("unknown primitive %q (use box or cylinder)", s)
	}
}

// boxTriangles lists the 12 outward-facing triangles over the corner
// order of math3d.Box.Corners.
var boxTriangles = [][3]int{
	{0, 1, 2}, {0, 2, 3}, // bottom (-Y)
	{4, 6, 5}, {4, 7, 6}, // top (+Y)
	{0, 4, 5}, {0, 5, 1}, // front (-Z)
	{3, 2, 6}, {3, 6, 7}, // back (+Z)
	{0, 3, 7}, {0, 7, 4}, // left (-X)
	{1, 5, 6}, {1, 6, 2}, // right (+X)
}

// NewBoxMesh creates an axis-aligned box with the given center and full
// dimensions: 8 shared vertices and 12 triangles. Zero dimensions are
// allowed and produce a flat box.
func NewBoxMesh(center, dims math3d.Vec3) *Mesh {
	half := dims.Abs().Scale(0.5)
	box := math3d.NewBox(center.Sub(half), center.Add(half))
	corners := box.Corners()

	vertices := make([]math3d.Vec3, len(corners))
	copy(vertices, corners[:])
	triangles := make([][3]int, len(boxTriangles))
	copy(triangles, boxTriangles)
	return NewMesh(vertices, triangles)
}

// NewCylinderMesh creates a capped cylinder along the Y axis centered at
// center. Ring vertices come first (bottom, then top), then the two cap
// centers.
func NewCylinderMesh(center math3d.Vec3, radius, height float64, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	lo := center.Y - height/2
	hi := center.Y + height/2

	vertices := make([]math3d.Vec3, 0, 2*segments+2)
	for _, y := range []float64{lo, hi} {
		for i := range segments {
			s, c := math.Sincos(2 * math.Pi * float64(i) / float64(segments))
			vertices = append(vertices, math3d.V3(center.X+radius*c, y, center.Z+radius*s))
		}
	}
	bottomCenter := len(vertices)
	vertices = append(vertices, math3d.V3(center.X, lo, center.Z))
	topCenter := len(vertices)
	vertices = append(vertices, math3d.V3(center.X, hi, center.Z))

	triangles := make([][3]int, 0, 4*segments)
	for i := range segments {
		j := (i + 1) % segments
		bi, bj := i, j
		ti, tj := segments+i, segments+j
		triangles = append(triangles,
			[3]int{bi, ti, bj},
			[3]int{bj, ti, tj},
			[3]int{bottomCenter, bi, bj},
			[3]int{topCenter, tj, ti},
		)
	}
	return NewMesh(vertices, triangles)
}

// NewPrimitive fits a primitive of the given kind to center and dims.
// Cylinders stand on Y with a radius covering the wider of X and Z.
func NewPrimitive(kind PrimitiveKind, center, dims math3d.Vec3) (*Mesh, error) {
	switch kind {
	case PrimitiveBox:
		return NewBoxMesh(center, dims), nil
	case PrimitiveCylinder:
		radius := math.Max(dims.X, dims.Z) / 2
		return NewCylinderMesh(center, radius, dims.Y, DefaultCylinderSegments), nil
	default:
		return nil, fmt.Errorf("unsupported primitive %v", kind)
	}
}
