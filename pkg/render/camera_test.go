package render

import (
	"math"
	"testing"

	"github.com/taigrr/papercraft/pkg/math3d"
)

func TestWorldToScreenCenter(t *testing.T) {
	cam := NewCamera()
	x, y, _, ok := cam.WorldToScreen(math3d.Zero3(), 100, 50)
	if !ok {
		t.Fatal("origin should be visible from the default camera")
	}
	if math.Abs(x-50) > 1e-9 || math.Abs(y-25) > 1e-9 {
		t.Errorf("origin projected to (%v, %v), want (50, 25)", x, y)
	}

	if _, _, _, ok := cam.WorldToScreen(math3d.V3(0, 0, 10), 100, 50); ok {
		t.Error("point behind the camera should not be visible")
	}
}

func TestWorldToScreenYUp(t *testing.T) {
	cam := NewCamera()
	_, y, _, ok := cam.WorldToScreen(math3d.V3(0, 1, 0), 100, 100)
	if !ok {
		t.Fatal("point should be visible")
	}
	if y >= 50 {
		t.Errorf("+Y projected to row %v, want above center", y)
	}
}

func TestLookAt(t *testing.T) {
	tests := []struct {
		name   string
		target math3d.Vec3
	}{
		{"down -z", math3d.V3(0, 0, 0)},
		{"to the side", math3d.V3(10, 0, 5)},
		{"above", math3d.V3(0, 8, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := NewCamera()
			cam.LookAt(tc.target)
			want := tc.target.Sub(cam.Position).Normalize()
			if got := cam.Forward(); !got.ApproxEqual(want, 1e-9) {
				t.Errorf("Forward() = %v, want %v", got, want)
			}
		})
	}
}

func TestLookAtOwnPosition(t *testing.T) {
	cam := NewCamera()
	cam.LookAt(math3d.V3(3, 0, 0))
	yaw, pitch := cam.Yaw, cam.Pitch

	cam.LookAt(cam.Position)
	if cam.Yaw != yaw || cam.Pitch != pitch {
		t.Errorf("looking at own position changed orientation to yaw=%v pitch=%v", cam.Yaw, cam.Pitch)
	}
}

func TestViewProjectionTracksChanges(t *testing.T) {
	cam := NewCamera()
	before := cam.ViewProjectionMatrix()

	// Reading the view matrix alone must not leave the combined matrix stale.
	cam.SetPosition(math3d.V3(0, 0, 20))
	cam.ViewMatrix()
	after := cam.ViewProjectionMatrix()
	if before == after {
		t.Fatal("view-projection did not change after moving the camera")
	}
	if want := cam.ProjectionMatrix().Mul(cam.ViewMatrix()); after != want {
		t.Error("view-projection is not projection * view")
	}
}

func TestFrameFitsBox(t *testing.T) {
	boxes := []math3d.Box{
		math3d.NewBox(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1)),
		math3d.NewBox(math3d.V3(40, 0, -3), math3d.V3(60, 100, 3)),
		math3d.NewBox(math3d.V3(2, 2, 2), math3d.V3(2, 2, 2)),
	}

	for _, aspect := range []float64{0.5, 1, 2} {
		for _, box := range boxes {
			cam := NewCamera()
			cam.SetAspectRatio(aspect)
			if dist := cam.Frame(box); dist <= 0 {
				t.Fatalf("Frame returned %v", dist)
			}
			for _, c := range box.Corners() {
				if _, _, _, ok := cam.WorldToScreen(c, 200, 100); !ok {
					t.Errorf("aspect %v box %v: corner %v not visible", aspect, box, c)
				}
			}
		}
	}
}

func TestFrameEmptyBox(t *testing.T) {
	cam := NewCamera()
	cam.Frame(math3d.EmptyBox())
	if _, _, _, ok := cam.WorldToScreen(math3d.Zero3(), 10, 10); !ok {
		t.Error("origin should be visible after framing an empty box")
	}
}

func TestOrbit(t *testing.T) {
	target := math3d.V3(1, 2, 3)
	cam := NewCamera()

	cam.Orbit(target, 10, 0, 0)
	if !cam.Position.ApproxEqual(math3d.V3(1, 2, 13), 1e-9) {
		t.Errorf("position = %v", cam.Position)
	}

	cam.Orbit(target, 10, math.Pi/2, 0)
	if !cam.Position.ApproxEqual(math3d.V3(11, 2, 3), 1e-9) {
		t.Errorf("position = %v", cam.Position)
	}

	// Pitch is clamped short of the pole.
	cam.Orbit(target, 10, 0, math.Pi)
	if d := cam.Position.Sub(target).Len(); math.Abs(d-10) > 1e-9 {
		t.Errorf("distance = %v, want 10", d)
	}
	if cam.Position.Y >= 12 {
		t.Errorf("camera reached the pole: %v", cam.Position)
	}
	if _, _, _, ok := cam.WorldToScreen(target, 10, 10); !ok {
		t.Error("target should stay visible")
	}
}
