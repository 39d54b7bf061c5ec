package render

import (
	"math"

	"github.com/taigrr/papercraft/pkg/math3d"
)

// Camera is a perspective camera with Euler orientation.
type Camera struct {
	Position math3d.Vec3

	// Orientation in radians.
	Pitch float64
	Yaw   float64
	Roll  float64

	FOV         float64 // vertical, radians
	AspectRatio float64 // width / height
	Near        float64
	Far         float64

	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
	vpDirty        bool
}

// NewCamera creates a camera at (0, 0, 5) looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		Position:    math3d.V3(0, 0, 5),
		FOV:         math.Pi / 3,
		AspectRatio: 1,
		Near:        0.1,
		Far:         1000,
		viewDirty:   true,
		projDirty:   true,
	}
}

// SetPosition moves the camera.
func (c *Camera) SetPosition(pos math3d.Vec3) {
	c.Position = pos
	c.viewDirty = true
}

// SetFOV sets the vertical field of view in radians.
func (c *Camera) SetFOV(fov float64) {
	c.FOV = fov
	c.projDirty = true
}

// SetAspectRatio sets width / height.
func (c *Camera) SetAspectRatio(aspect float64) {
	if aspect <= 0 {
		return
	}
	c.AspectRatio = aspect
	c.projDirty = true
}

// SetClipPlanes sets the near and far clipping distances.
func (c *Camera) SetClipPlanes(near, far float64) {
	c.Near = near
	c.Far = far
	c.projDirty = true
}

// Forward returns the view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return math3d.V3(
		-math.Sin(c.Yaw)*math.Cos(c.Pitch),
		math.Sin(c.Pitch),
		-math.Cos(c.Yaw)*math.Cos(c.Pitch),
	)
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		rot := math3d.RotateZ(-c.Roll).Mul(
			math3d.RotateX(-c.Pitch)).Mul(
			math3d.RotateY(-c.Yaw))
		c.viewMatrix = rot.Mul(math3d.Translate(c.Position.Negate()))
		c.viewDirty = false
		c.vpDirty = true
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the perspective projection.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
		c.projDirty = false
		c.vpDirty = true
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	view := c.ViewMatrix()
	proj := c.ProjectionMatrix()
	if c.vpDirty {
		c.viewProjMatrix = proj.Mul(view)
		c.vpDirty = false
	}
	return c.viewProjMatrix
}

// LookAt turns the camera toward target. Roll is reset.
func (c *Camera) LookAt(target math3d.Vec3) {
	if target.ApproxEqual(c.Position, 1e-12) {
		return
	}
	dir := target.Sub(c.Position).Normalize()
	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
	c.Roll = 0
	c.viewDirty = true
}

// Frame places the camera on the +Z side of box at a distance where the
// whole box fits the narrower field of view, and points it at the box
// center. It returns that distance. An empty box frames the unit cube.
func (c *Camera) Frame(box math3d.Box) float64 {
	if box.IsEmpty() {
		box = math3d.NewBox(math3d.V3(-0.5, -0.5, -0.5), math3d.V3(0.5, 0.5, 0.5))
	}
	center := box.Center()
	radius := box.Size().Len() / 2
	if radius == 0 {
		radius = 0.5
	}

	half := c.FOV / 2
	if c.AspectRatio < 1 {
		half = math.Atan(math.Tan(half) * c.AspectRatio)
	}
	dist := radius / math.Sin(half) * 1.05

	c.SetPosition(center.Add(math3d.V3(0, 0, dist)))
	c.LookAt(center)
	c.SetClipPlanes(dist*0.01, dist+radius*4)
	return dist
}

// Orbit places the camera dist away from target at the given yaw and
// pitch and points it at target. Zero angles put it on the +Z side.
func (c *Camera) Orbit(target math3d.Vec3, dist, yaw, pitch float64) {
	const limit = math.Pi/2 - 0.01
	pitch = max(-limit, min(limit, pitch))
	offset := math3d.V3(
		dist*math.Cos(pitch)*math.Sin(yaw),
		dist*math.Sin(pitch),
		dist*math.Cos(pitch)*math.Cos(yaw),
	)
	c.SetPosition(target.Add(offset))
	c.LookAt(target)
}

// Project returns the clip-space position of a world point.
func (c *Camera) Project(worldPos math3d.Vec3) math3d.Vec4 {
	return c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))
}

// WorldToScreen maps a world point to pixel coordinates in a screen of
// the given size. visible is false for points outside the view volume.
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clip := c.Project(worldPos)
	if clip.W <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}
	x, y = ndcToScreen(ndc, screenWidth, screenHeight)
	return x, y, ndc.Z, true
}

func ndcToScreen(ndc math3d.Vec3, w, h int) (float64, float64) {
	return (ndc.X + 1) * 0.5 * float64(w), (1 - ndc.Y) * 0.5 * float64(h)
}
