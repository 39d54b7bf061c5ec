package render

import (
	"image/color"

	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
)

// DefaultHighlight is the line color of highlighted entities.
var DefaultHighlight = color.RGBA{255, 200, 0, 255}

// Wireframe draws entity edges through a camera into a framebuffer.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer

	// Highlight replaces the entity color for highlighted entities, whose
	// bounds are outlined as well.
	Highlight color.RGBA

	// Culled counts entities skipped by the last DrawScene.
	Culled int
}

// NewWireframe creates a wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera:    camera,
		fb:        fb,
		Highlight: DefaultHighlight,
	}
}

// EntityTransform returns the model matrix for e: its orientation applied
// around its own bounds center.
func EntityTransform(e *models.Entity) math3d.Mat4 {
	if e.Orientation() == math3d.QuatIdentity() {
		return math3d.Identity()
	}
	center := e.Center()
	return math3d.Model(e.Orientation(), 1, center).Mul(math3d.Translate(center.Negate()))
}

// DrawScene draws every entity that may be visible and returns how many
// were drawn.
func (w *Wireframe) DrawScene(entities []*models.Entity) int {
	frustum := w.camera.Frustum()
	w.Culled = 0
	drawn := 0
	for _, e := range entities {
		m := EntityTransform(e)
		if !frustum.IntersectBox(TransformBox(e.Bounds(), m)) {
			w.Culled++
			continue
		}
		w.drawEntity(e, m)
		drawn++
	}
	return drawn
}

// DrawEntity draws a single entity without culling.
func (w *Wireframe) DrawEntity(e *models.Entity) {
	w.drawEntity(e, EntityTransform(e))
}

func (w *Wireframe) drawEntity(e *models.Entity, m math3d.Mat4) {
	c := e.Color()
	if e.Highlighted() {
		c = w.Highlight
		w.DrawBox(e.Bounds(), m, c)
	}
	for _, edge := range e.Edges() {
		w.DrawLine3D(m.MulVec3(edge[0]), m.MulVec3(edge[1]), c)
	}
}

// DrawLine3D draws a world-space segment, clipped against the near plane.
func (w *Wireframe) DrawLine3D(a, b math3d.Vec3, c color.RGBA) {
	ca := w.camera.Project(a)
	cb := w.camera.Project(b)

	// Inside the near plane when z + w >= 0.
	da := ca.Z + ca.W
	db := cb.Z + cb.W
	if da < 0 && db < 0 {
		return
	}
	if da < 0 {
		ca = lerp4(ca, cb, da/(da-db))
	} else if db < 0 {
		cb = lerp4(cb, ca, db/(db-da))
	}
	if ca.W <= 0 || cb.W <= 0 {
		return
	}

	x0, y0 := ndcToScreen(ca.PerspectiveDivide(), w.fb.Width, w.fb.Height)
	x1, y1 := ndcToScreen(cb.PerspectiveDivide(), w.fb.Width, w.fb.Height)
	w.fb.DrawLine(x0, y0, x1, y1, c)
}

func lerp4(a, b math3d.Vec4, t float64) math3d.Vec4 {
	return math3d.Vec4{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
		W: a.W + (b.W-a.W)*t,
	}
}

// boxEdges pairs corner indices of math3d.Box.Corners.
var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawBox outlines box after transform.
func (w *Wireframe) DrawBox(box math3d.Box, transform math3d.Mat4, c color.RGBA) {
	if box.IsEmpty() {
		return
	}
	corners := box.Corners()
	for i := range corners {
		corners[i] = transform.MulVec3(corners[i])
	}
	for _, e := range boxEdges {
		w.DrawLine3D(corners[e[0]], corners[e[1]], c)
	}
}

// DrawAxes draws the world axes from the origin in red, green and blue.
func (w *Wireframe) DrawAxes(length float64) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// Snapshot renders entities into a new framebuffer with a camera framed
// on their union bounds.
func Snapshot(entities []*models.Entity, width, height int, bg color.RGBA) *Framebuffer {
	fb := NewFramebuffer(width, height)
	fb.Clear(bg)
	if width == 0 || height == 0 {
		return fb
	}

	bounds := math3d.EmptyBox()
	for _, e := range entities {
		bounds = bounds.Union(TransformBox(e.Bounds(), EntityTransform(e)))
	}

	cam := NewCamera()
	cam.SetAspectRatio(float64(width) / float64(height))
	cam.Frame(bounds)
	NewWireframe(cam, fb).DrawScene(entities)
	return fb
}
