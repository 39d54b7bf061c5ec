package models

import (
	"image/color"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/taigrr/papercraft/pkg/math3d"
)

func randomMesh(rng *rand.Rand, vertices, triangles int) *Mesh {
	m := &Mesh{}
	for range vertices {
		m.Vertices = append(m.Vertices, math3d.V3(rng.Float64()*10-5, rng.Float64()*10-5, rng.Float64()*10-5))
	}
	for range triangles {
		m.Triangles = append(m.Triangles, [3]int{rng.Intn(vertices), rng.Intn(vertices), rng.Intn(vertices)})
	}
	return m
}

func checkBuffer(t *testing.T, e *Entity) {
	t.Helper()
	buf := e.RenderBuffer()
	if buf.VertexCount() != e.Mesh().VertexCount() {
		t.Fatalf("render vertices = %d, mesh vertices = %d", buf.VertexCount(), e.Mesh().VertexCount())
	}
	if buf.TriangleCount() != e.Mesh().TriangleCount() {
		t.Fatalf("render triangles = %d, mesh triangles = %d", buf.TriangleCount(), e.Mesh().TriangleCount())
	}
	for i, idx := range buf.Indices {
		if int(idx) >= buf.VertexCount() {
			t.Fatalf("index %d = %d out of range %d", i, idx, buf.VertexCount())
		}
	}
}

func TestEntityRenderBufferConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := range 50 {
		m := randomMesh(rng, 3+rng.Intn(40), 1+rng.Intn(60))
		if i%2 == 0 {
			m.CalculateSmoothNormals()
		}
		checkBuffer(t, NewEntity(m))
	}
}

func TestRenderBufferLayout(t *testing.T) {
	plain := NewEntity(triangleMesh())
	buf := plain.RenderBuffer()
	if buf.HasNormals || buf.Stride != 3 {
		t.Errorf("position-only buffer: HasNormals=%v Stride=%d", buf.HasNormals, buf.Stride)
	}
	if buf.Position(1) != [3]float32{1, -1, 0} {
		t.Errorf("Position(1) = %v", buf.Position(1))
	}
	if buf.Normal(1) != [3]float32{} {
		t.Errorf("Normal(1) = %v, want zero", buf.Normal(1))
	}

	m := triangleMesh()
	m.CalculateSmoothNormals()
	lit := NewEntity(m).RenderBuffer()
	if !lit.HasNormals || lit.Stride != 6 {
		t.Errorf("interleaved buffer: HasNormals=%v Stride=%d", lit.HasNormals, lit.Stride)
	}
	if lit.Position(2) != [3]float32{-1, 1, 0} {
		t.Errorf("Position(2) = %v", lit.Position(2))
	}
	if lit.Normal(2) != [3]float32{0, 0, 1} {
		t.Errorf("Normal(2) = %v, want +Z", lit.Normal(2))
	}
	if len(lit.Data) != 18 {
		t.Errorf("len(Data) = %d, want 18", len(lit.Data))
	}
}

func TestEntityDefaults(t *testing.T) {
	e := NewEntity(triangleMesh())
	if e.ID() == uuid.Nil {
		t.Error("entity has nil ID")
	}
	if e.Color() != DefaultColor {
		t.Errorf("Color() = %v, want %v", e.Color(), DefaultColor)
	}
	if e.Highlighted() {
		t.Error("new entity should not be highlighted")
	}
	if e.Orientation() != math3d.QuatIdentity() {
		t.Errorf("Orientation() = %v, want identity", e.Orientation())
	}
	if len(e.Edges()) != 3 {
		t.Errorf("len(Edges()) = %d, want 3", len(e.Edges()))
	}
	if !e.Dimensions().ApproxEqual(math3d.V3(2, 2, 0), 1e-12) {
		t.Errorf("Dimensions() = %v", e.Dimensions())
	}
}

func TestEntityOptions(t *testing.T) {
	id := uuid.New()
	e := NewEntity(triangleMesh(),
		WithID(id),
		WithName("panel"),
		WithColor(color.RGBA{10, 20, 30, 0}),
		WithHighlighted(true),
	)
	if e.ID() != id {
		t.Errorf("ID() = %v, want %v", e.ID(), id)
	}
	if e.Name() != "panel" {
		t.Errorf("Name() = %q", e.Name())
	}
	if e.Color() != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("Color() = %v, alpha must be opaque", e.Color())
	}
	if !e.Highlighted() {
		t.Error("Highlighted() = false")
	}
}

func TestEntityRotate(t *testing.T) {
	e := NewEntity(triangleMesh())
	before := append([]math3d.Vec3(nil), e.Mesh().Vertices...)

	q := math3d.QuatFromAxisAngle(math3d.Up(), math.Pi/2)
	for range 4 {
		e.Rotate(q)
	}
	// Four quarter turns return to the start.
	if !e.Orientation().ApproxEqual(math3d.QuatIdentity(), 1e-9) {
		t.Errorf("Orientation() = %v, want identity", e.Orientation())
	}
	if math.Abs(e.Orientation().Len()-1) > 1e-12 {
		t.Errorf("orientation not normalized: len = %v", e.Orientation().Len())
	}
	for i, v := range e.Mesh().Vertices {
		if v != before[i] {
			t.Fatalf("Rotate moved vertex %d", i)
		}
	}

	// Pre-multiplication: the new rotation applies after the existing one.
	e.ResetOrientation()
	qx := math3d.QuatFromAxisAngle(math3d.V3(1, 0, 0), math.Pi/2)
	e.Rotate(q)
	e.Rotate(qx)
	want := qx.Mul(q)
	if !e.Orientation().ApproxEqual(want, 1e-12) {
		t.Errorf("Orientation() = %v, want %v", e.Orientation(), want)
	}
}

func TestEntityAttributesKeepGeometry(t *testing.T) {
	e := NewEntity(triangleMesh())
	buf := e.RenderBuffer()
	data := append([]float32(nil), buf.Data...)

	e.SetColor(color.RGBA{255, 0, 0, 255})
	e.SetHighlighted(true)
	e.SetName("red")

	for i, f := range e.RenderBuffer().Data {
		if f != data[i] {
			t.Fatal("attribute change touched the render buffer")
		}
	}
	if e.Color().R != 255 || !e.Highlighted() || e.Name() != "red" {
		t.Error("attributes not applied")
	}
}

func TestEntityRebuild(t *testing.T) {
	orig := NewEntity(triangleMesh(), WithName("tri"), WithColor(color.RGBA{1, 2, 3, 255}))
	orig.Rotate(math3d.QuatFromAxisAngle(math3d.Up(), 0.3))

	next := orig.Rebuild(triangleMesh().ScaleAndTranslate(2, math3d.Zero3()))
	if next.ID() == orig.ID() {
		t.Error("Rebuild should assign a new ID")
	}
	if next.Name() != "tri" || next.Color() != orig.Color() {
		t.Error("Rebuild lost name or color")
	}
	if !next.Orientation().ApproxEqual(orig.Orientation(), 1e-12) {
		t.Error("Rebuild lost orientation")
	}
	if !next.Dimensions().ApproxEqual(math3d.V3(4, 4, 0), 1e-12) {
		t.Errorf("Dimensions() = %v", next.Dimensions())
	}
	checkBuffer(t, next)
}

func TestEntityConcurrentAttributes(t *testing.T) {
	e := NewEntity(triangleMesh())
	q := math3d.QuatFromAxisAngle(math3d.Up(), 0.01)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				e.Rotate(q)
				_ = e.Orientation()
				e.SetHighlighted(!e.Highlighted())
			}
		}()
	}
	wg.Wait()

	if math.Abs(e.Orientation().Len()-1) > 1e-9 {
		t.Errorf("orientation drifted: len = %v", e.Orientation().Len())
	}
}
