package models

import (
	"math"
	"testing"

	"github.com/taigrr/papercraft/pkg/math3d"
)

// signedVolume is positive for a closed mesh with outward winding.
func signedVolume(m *Mesh) float64 {
	var v float64
	for i := range m.Triangles {
		a, b, c := m.TrianglePoints(i)
		v += a.Dot(b.Cross(c)) / 6
	}
	return v
}

func TestNewBoxMesh(t *testing.T) {
	center := math3d.V3(1, 2, 3)
	dims := math3d.V3(2, 4, 6)
	m := NewBoxMesh(center, dims)

	if m.VertexCount() != 8 || m.TriangleCount() != 12 {
		t.Fatalf("box has %d vertices, %d triangles", m.VertexCount(), m.TriangleCount())
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !m.Center().ApproxEqual(center, 1e-12) {
		t.Errorf("Center() = %v, want %v", m.Center(), center)
	}
	if !m.Dimensions().ApproxEqual(dims, 1e-12) {
		t.Errorf("Dimensions() = %v, want %v", m.Dimensions(), dims)
	}
	if got := signedVolume(m); math.Abs(got-48) > 1e-9 {
		t.Errorf("signed volume = %v, want 48", got)
	}
	// 12 box edges plus one diagonal per face.
	if n := len(m.Edges()); n != 18 {
		t.Errorf("len(Edges()) = %d, want 18", n)
	}
}

func TestNewBoxMeshFlat(t *testing.T) {
	m := NewBoxMesh(math3d.Zero3(), math3d.V3(2, 2, 0))
	if !m.Dimensions().ApproxEqual(math3d.V3(2, 2, 0), 1e-12) {
		t.Errorf("Dimensions() = %v", m.Dimensions())
	}
}

func TestNewCylinderMesh(t *testing.T) {
	center := math3d.V3(0, 1, 0)
	m := NewCylinderMesh(center, 2, 4, 16)

	if m.VertexCount() != 34 {
		t.Errorf("VertexCount() = %d, want 34", m.VertexCount())
	}
	if m.TriangleCount() != 64 {
		t.Errorf("TriangleCount() = %d, want 64", m.TriangleCount())
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !m.Dimensions().ApproxEqual(math3d.V3(4, 4, 4), 1e-9) {
		t.Errorf("Dimensions() = %v, want (4, 4, 4)", m.Dimensions())
	}
	if !m.Center().ApproxEqual(center, 1e-9) {
		t.Errorf("Center() = %v, want %v", m.Center(), center)
	}

	// Inscribed polygon area times height.
	want := 0.5 * 16 * 4 * math.Sin(2*math.Pi/16) * 4
	if got := signedVolume(m.ScaleAndTranslate(1, center.Negate())); math.Abs(got-want) > 1e-9 {
		t.Errorf("signed volume = %v, want %v", got, want)
	}

	if n := NewCylinderMesh(center, 1, 1, 1).VertexCount(); n != 8 {
		t.Errorf("segments clamp: VertexCount() = %d, want 8", n)
	}
}

func TestNewPrimitive(t *testing.T) {
	center := math3d.V3(5, 0, 0)
	dims := math3d.V3(2, 3, 4)

	box, err := NewPrimitive(PrimitiveBox, center, dims)
	if err != nil {
		t.Fatal(err)
	}
	if !box.Dimensions().ApproxEqual(dims, 1e-12) {
		t.Errorf("box Dimensions() = %v", box.Dimensions())
	}

	cyl, err := NewPrimitive(PrimitiveCylinder, center, dims)
	if err != nil {
		t.Fatal(err)
	}
	if !cyl.Dimensions().ApproxEqual(math3d.V3(4, 3, 4), 1e-9) {
		t.Errorf("cylinder Dimensions() = %v, want (4, 3, 4)", cyl.Dimensions())
	}

	if _, err := NewPrimitive(PrimitiveKind(9), center, dims); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParsePrimitiveKind(t *testing.T) {
	for _, k := range []PrimitiveKind{PrimitiveBox, PrimitiveCylinder} {
		got, err := ParsePrimitiveKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParsePrimitiveKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParsePrimitiveKind("sphere"); err == nil {
		t.Error("expected error for sphere")
	}
}
