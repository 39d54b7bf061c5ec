package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
)

var background = color.RGBA{10, 10, 20, 255}

func boxEntity(center math3d.Vec3, size float64, opts ...models.EntityOption) *models.Entity {
	return models.NewEntity(models.NewBoxMesh(center, math3d.V3(size, size, size)), opts...)
}

func count(fb *Framebuffer, c color.RGBA) int {
	n := 0
	for _, p := range fb.Pixels {
		if p == c {
			n++
		}
	}
	return n
}

func TestSnapshotDrawsEntityColor(t *testing.T) {
	red := color.RGBA{220, 30, 30, 255}
	e := boxEntity(math3d.Zero3(), 2, models.WithColor(red))

	fb := Snapshot([]*models.Entity{e}, 80, 60, background)
	if count(fb, red) == 0 {
		t.Fatal("no pixels drawn in the entity color")
	}
	if count(fb, background) == 0 {
		t.Fatal("wireframe should not fill the whole frame")
	}
}

func TestSnapshotHighlight(t *testing.T) {
	plain := boxEntity(math3d.V3(-3, 0, 0), 2)
	lit := boxEntity(math3d.V3(3, 0, 0), 2, models.WithHighlighted(true))

	fb := Snapshot([]*models.Entity{plain, lit}, 120, 60, background)
	if count(fb, DefaultHighlight) == 0 {
		t.Error("highlighted entity not drawn in the highlight color")
	}
	if count(fb, models.DefaultColor) == 0 {
		t.Error("plain entity not drawn in its own color")
	}
}

func TestSnapshotEmpty(t *testing.T) {
	fb := Snapshot(nil, 10, 10, background)
	if count(fb, background) != 100 {
		t.Error("empty scene should leave only background")
	}

	fb = Snapshot([]*models.Entity{boxEntity(math3d.Zero3(), 1)}, 0, 0, background)
	if len(fb.Pixels) != 0 {
		t.Error("zero-size snapshot should have no pixels")
	}
}

func TestDrawSceneCulls(t *testing.T) {
	cam := NewCamera()
	fb := NewFramebuffer(40, 40)
	w := NewWireframe(cam, fb)

	visible := boxEntity(math3d.Zero3(), 1)
	behind := boxEntity(math3d.V3(0, 0, 50), 1)
	aside := boxEntity(math3d.V3(500, 0, 0), 1)

	drawn := w.DrawScene([]*models.Entity{visible, behind, aside})
	if drawn != 1 || w.Culled != 2 {
		t.Errorf("drawn = %d, culled = %d, want 1 and 2", drawn, w.Culled)
	}
}

func TestDrawLine3DNearClip(t *testing.T) {
	cam := NewCamera()
	fb := NewFramebuffer(40, 40)
	w := NewWireframe(cam, fb)

	// From in front of the camera to far behind it: only the visible part
	// is drawn and nothing wraps around.
	w.DrawLine3D(math3d.V3(0, -1, 0), math3d.V3(0, -1, 100), ColorWhite)
	if count(fb, ColorWhite) == 0 {
		t.Fatal("visible part of the segment was not drawn")
	}
	for y := 0; y < fb.Height/2; y++ {
		for x := 0; x < fb.Width; x++ {
			if fb.GetPixel(x, y) == ColorWhite {
				t.Fatalf("pixel (%d, %d) above the horizon is lit", x, y)
			}
		}
	}

	fb.Clear(color.RGBA{})
	w.DrawLine3D(math3d.V3(0, 0, 10), math3d.V3(1, 1, 20), ColorWhite)
	if count(fb, ColorWhite) != 0 {
		t.Error("segment fully behind the camera was drawn")
	}
}

func TestEntityTransformPivotsOnCenter(t *testing.T) {
	center := math3d.V3(5, 1, -2)
	e := boxEntity(center, 2)
	e.Rotate(math3d.QuatFromAxisAngle(math3d.V3(0, 1, 0), math.Pi/3))

	m := EntityTransform(e)
	if got := m.MulVec3(center); !got.ApproxEqual(center, 1e-9) {
		t.Errorf("center moved to %v", got)
	}

	// Orientation is presentation only; the mesh is untouched.
	if got := e.Bounds(); !got.Center().ApproxEqual(center, 1e-9) {
		t.Errorf("bounds center = %v", got.Center())
	}
}

func TestEntityTransformUnrotated(t *testing.T) {
	e := boxEntity(math3d.V3(5, 1, -2), 2)
	if got := EntityTransform(e); got != math3d.Identity() {
		t.Errorf("unrotated transform = %v, want identity", got)
	}

	e.Rotate(math3d.QuatFromAxisAngle(math3d.Up(), 0.2))
	e.ResetOrientation()
	if got := EntityTransform(e); got != math3d.Identity() {
		t.Errorf("reset transform = %v, want identity", got)
	}
}

func TestDrawBoxEmpty(t *testing.T) {
	fb := NewFramebuffer(10, 10)
	w := NewWireframe(NewCamera(), fb)
	w.DrawBox(math3d.EmptyBox(), math3d.Identity(), ColorWhite)
	if count(fb, ColorWhite) != 0 {
		t.Error("empty box drew pixels")
	}
}

func TestDrawAxes(t *testing.T) {
	fb := NewFramebuffer(40, 40)
	w := NewWireframe(NewCamera(), fb)
	w.DrawAxes(1)
	if count(fb, ColorRed) == 0 || count(fb, ColorGreen) == 0 {
		t.Error("x and y axes should be visible from the default camera")
	}
}
