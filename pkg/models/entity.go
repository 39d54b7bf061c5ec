package models

import (
	"image/color"
	"sync"

	"github.com/google/uuid"
	"github.com/taigrr/papercraft/pkg/math3d"
)

// DefaultColor is applied to entities created without WithColor.
var DefaultColor = color.RGBA{200, 200, 200, 255}

// Entity is one mesh in a scene. Its geometry (topology, render buffer,
// edges, bounds) is fixed at construction; presentation attributes can
// change. Editing geometry means building a new Entity with Rebuild and
// swapping it into the scene.
type Entity struct {
	id     uuid.UUID
	mesh   *Mesh
	buffer RenderBuffer
	edges  [][2]math3d.Vec3
	bounds math3d.Box

	mu          sync.RWMutex
	name        string
	color       color.RGBA
	highlighted bool
	orientation math3d.Quat
}

// EntityOption configures NewEntity.
type EntityOption func(*Entity)

// WithID overrides the generated ID.
func WithID(id uuid.UUID) EntityOption {
	return func(e *Entity) { e.id = id }
}

// WithName sets the display name.
func WithName(name string) EntityOption {
	return func(e *Entity) { e.name = name }
}

// WithColor sets the RGB color. Alpha is forced opaque.
func WithColor(c color.RGBA) EntityOption {
	return func(e *Entity) {
		c.A = 255
		e.color = c
	}
}

// WithOrientation sets the starting orientation.
func WithOrientation(q math3d.Quat) EntityOption {
	return func(e *Entity) { e.orientation = q.Normalize() }
}

// WithHighlighted sets the highlight flag.
func WithHighlighted(h bool) EntityOption {
	return func(e *Entity) { e.highlighted = h }
}

// NewEntity builds an entity around mesh, deriving the render buffer and
// the wireframe edges. The entity takes ownership of mesh.
func NewEntity(mesh *Mesh, opts ...EntityOption) *Entity {
	e := &Entity{
		id:          uuid.New(),
		mesh:        mesh,
		color:       DefaultColor,
		orientation: math3d.QuatIdentity(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.buffer = BuildRenderBuffer(mesh)
	e.bounds = mesh.Bounds()

	edges := mesh.Edges()
	e.edges = make([][2]math3d.Vec3, len(edges))
	for i, ed := range edges {
		e.edges[i] = [2]math3d.Vec3{mesh.Vertices[ed[0]], mesh.Vertices[ed[1]]}
	}
	return e
}

// Rebuild creates a new entity from mesh carrying over name, color,
// highlight and orientation. The new entity gets a fresh ID.
func (e *Entity) Rebuild(mesh *Mesh) *Entity {
	e.mu.RLock()
	opts := []EntityOption{
		WithName(e.name),
		WithColor(e.color),
		WithHighlighted(e.highlighted),
		WithOrientation(e.orientation),
	}
	e.mu.RUnlock()
	return NewEntity(mesh, opts...)
}

// ID returns the entity handle.
func (e *Entity) ID() uuid.UUID {
	return e.id
}

// Name returns the display name.
func (e *Entity) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// SetName changes the display name.
func (e *Entity) SetName(name string) {
	e.mu.Lock()
	e.name = name
	e.mu.Unlock()
}

// Color returns the RGB color.
func (e *Entity) Color() color.RGBA {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.color
}

// SetColor changes the color. It has no geometric effect.
func (e *Entity) SetColor(c color.RGBA) {
	c.A = 255
	e.mu.Lock()
	e.color = c
	e.mu.Unlock()
}

// Highlighted reports whether the entity is highlighted.
func (e *Entity) Highlighted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.highlighted
}

// SetHighlighted changes the highlight flag.
func (e *Entity) SetHighlighted(h bool) {
	e.mu.Lock()
	e.highlighted = h
	e.mu.Unlock()
}

// Orientation returns the render-time rotation.
func (e *Entity) Orientation() math3d.Quat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orientation
}

// Rotate pre-multiplies q onto the current orientation and renormalizes
// to keep drift from accumulating. Vertex positions are not touched.
func (e *Entity) Rotate(q math3d.Quat) {
	e.mu.Lock()
	e.orientation = q.Mul(e.orientation).Normalize()
	e.mu.Unlock()
}

// ResetOrientation restores the identity rotation.
func (e *Entity) ResetOrientation() {
	e.mu.Lock()
	e.orientation = math3d.QuatIdentity()
	e.mu.Unlock()
}

// Mesh returns the topological mesh. Callers must not modify it.
func (e *Entity) Mesh() *Mesh {
	return e.mesh
}

// RenderBuffer returns the flat render representation.
func (e *Entity) RenderBuffer() *RenderBuffer {
	return &e.buffer
}

// Edges returns the wireframe segments derived from the mesh edges.
func (e *Entity) Edges() [][2]math3d.Vec3 {
	return e.edges
}

// Bounds returns the model-space bounding box.
func (e *Entity) Bounds() math3d.Box {
	return e.bounds
}

// Center returns the bounding-box center of the mesh.
func (e *Entity) Center() math3d.Vec3 {
	return e.bounds.Center()
}

// Dimensions returns the mesh extent on each axis.
func (e *Entity) Dimensions() math3d.Vec3 {
	return math3d.ComputeDimensions(e.mesh.Vertices, e.Center())
}

// VertexCount returns the number of vertices.
func (e *Entity) VertexCount() int {
	return e.mesh.VertexCount()
}

// TriangleCount returns the number of triangles.
func (e *Entity) TriangleCount() int {
	return e.mesh.TriangleCount()
}
