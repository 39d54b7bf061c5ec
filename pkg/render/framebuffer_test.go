package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestFramebufferPixels(t *testing.T) {
	fb := NewFramebuffer(4, 2)
	fb.Clear(ColorBlack)
	fb.SetPixel(1, 1, ColorRed)
	fb.SetPixel(-1, 0, ColorRed)
	fb.SetPixel(4, 0, ColorRed)

	if got := fb.GetPixel(1, 1); got != ColorRed {
		t.Errorf("GetPixel(1, 1) = %v, want red", got)
	}
	if got := fb.GetPixel(0, 0); got != ColorBlack {
		t.Errorf("GetPixel(0, 0) = %v, want black", got)
	}
	if got := fb.GetPixel(10, 10); got.A != 0 {
		t.Errorf("out of bounds pixel = %v, want transparent", got)
	}
}

func TestNewFramebufferNegativeSize(t *testing.T) {
	fb := NewFramebuffer(-3, 5)
	if fb.Width != 0 || len(fb.Pixels) != 0 {
		t.Errorf("got %dx%d with %d pixels", fb.Width, fb.Height, len(fb.Pixels))
	}
}

func countColor(fb *Framebuffer, c [4]uint8) int {
	n := 0
	for _, p := range fb.Pixels {
		if p.R == c[0] && p.G == c[1] && p.B == c[2] && p.A == c[3] {
			n++
		}
	}
	return n
}

func TestDrawLine(t *testing.T) {
	white := [4]uint8{255, 255, 255, 255}

	tests := []struct {
		name           string
		x0, y0, x1, y1 float64
		want           int
	}{
		{"horizontal", 0, 0, 9, 0, 10},
		{"vertical", 3, 0, 3, 9, 10},
		{"diagonal", 0, 0, 9, 9, 10},
		{"clipped both ends", -100, 5, 100, 5, 10},
		{"fully outside", -10, -10, -1, -5, 0},
		{"far endpoint", 5, 5, 1e9, 5, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fb := NewFramebuffer(10, 10)
			fb.DrawLine(tc.x0, tc.y0, tc.x1, tc.y1, ColorWhite)
			if got := countColor(fb, white); got != tc.want {
				t.Errorf("lit pixels = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSavePNG(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.Clear(ColorBlue)
	fb.SetPixel(2, 1, ColorGreen)

	path := filepath.Join(t.TempDir(), "out.png")
	if err := fb.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	r, g, b, _ := img.At(2, 1).RGBA()
	if r != 0 || g == 0 || b != 0 {
		t.Errorf("pixel (2,1) = %d,%d,%d, want green", r, g, b)
	}
}

func TestSavePNGBadPath(t *testing.T) {
	fb := NewFramebuffer(1, 1)
	if err := fb.SavePNG(filepath.Join(t.TempDir(), "missing", "out.png")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestCellSize(t *testing.T) {
	w, h := CellSize(80, 24)
	if w != 80 || h != 48 {
		t.Errorf("CellSize(80, 24) = %d, %d", w, h)
	}
}
