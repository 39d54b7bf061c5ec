// Package models holds the papercraft mesh data model: the topological
// triangle mesh used for geometric queries, the flat render buffer derived
// from it, the scene Entity that pairs the two, and the file codecs that
// produce and consume them.
package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/papercraft/pkg/math3d"
)

// ErrInvalidMesh is returned when triangle indices do not fit the vertex set.
var ErrInvalidMesh = errors.New("invalid mesh")

// Mesh is the topological representation: shared vertex positions, optional
// per-vertex normals and triangles indexing into the vertices.
//
// A Mesh handed to NewEntity belongs to that entity and must not be
// modified afterwards; derive a new Mesh and rebuild instead.
type Mesh struct {
	Vertices  []math3d.Vec3
	Normals   []math3d.Vec3 // nil, or one normal per vertex
	Triangles [][3]int

	bounds      math3d.Box
	boundsValid bool
}

// NewMesh creates a mesh from positions and triangles.
func NewMesh(vertices []math3d.Vec3, triangles [][3]int) *Mesh {
	return &Mesh{
		Vertices:  vertices,
		Triangles: triangles,
	}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0 || len(m.Vertices) == 0
}

// HasNormals reports whether every vertex carries a normal.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Vertices)
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) math3d.Vec3 {
	return m.Vertices[i]
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) [3]int {
	return m.Triangles[i]
}

// TrianglePoints returns the three corner positions of triangle i.
func (m *Mesh) TrianglePoints(i int) (a, b, c math3d.Vec3) {
	t := m.Triangles[i]
	return m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
}

// Validate checks that every triangle index addresses an existing vertex.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, t := range m.Triangles {
		for _, v := range t {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidMesh, i, v, n)
			}
		}
	}
	if len(m.Normals) > 0 && len(m.Normals) != n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidMesh, len(m.Normals), n)
	}
	return nil
}

// Bounds returns the axis-aligned bounding box, computed once and cached.
func (m *Mesh) Bounds() math3d.Box {
	if !m.boundsValid {
		m.bounds = math3d.BoxFromPoints(m.Vertices)
		m.boundsValid = true
	}
	return m.bounds
}

// Center returns the bounding-box center.
func (m *Mesh) Center() math3d.Vec3 {
	return math3d.ComputeCenter(m.Vertices)
}

// Dimensions returns the extent on each axis about the bounding-box center.
func (m *Mesh) Dimensions() math3d.Vec3 {
	return math3d.ComputeDimensions(m.Vertices, m.Center())
}

// Edges returns every distinct undirected edge as a vertex index pair with
// the smaller index first, in first-seen order.
func (m *Mesh) Edges() [][2]int {
	seen := make(map[[2]int]struct{}, len(m.Triangles)*3/2)
	edges := make([][2]int, 0, len(m.Triangles)*3/2)
	for _, t := range m.Triangles {
		for k := range 3 {
			e := sortPair(t[k], t[(k+1)%3])
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}

func sortPair(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Vertices:    make([]math3d.Vec3, len(m.Vertices)),
		Triangles:   make([][3]int, len(m.Triangles)),
		bounds:      m.bounds,
		boundsValid: m.boundsValid,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Triangles, m.Triangles)
	if m.Normals != nil {
		clone.Normals = make([]math3d.Vec3, len(m.Normals))
		copy(clone.Normals, m.Normals)
	}
	return clone
}

// ScaleAndTranslate returns a new mesh with every position scaled by factor
// and then moved by translation. Normals are kept; a negative factor flips
// them.
func (m *Mesh) ScaleAndTranslate(factor float64, translation math3d.Vec3) *Mesh {
	out := &Mesh{
		Vertices:  math3d.ScaleAndTranslate(m.Vertices, factor, translation),
		Triangles: make([][3]int, len(m.Triangles)),
	}
	copy(out.Triangles, m.Triangles)
	if m.HasNormals() {
		out.Normals = make([]math3d.Vec3, len(m.Normals))
		for i, n := range m.Normals {
			if factor < 0 {
				n = n.Negate()
			}
			out.Normals[i] = n
		}
	}
	return out
}

// CalculateSmoothNormals computes area-weighted averaged vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	m.Normals = make([]math3d.Vec3, len(m.Vertices))

	for _, t := range m.Triangles {
		v0 := m.Vertices[t[0]]
		v1 := m.Vertices[t[1]]
		v2 := m.Vertices[t[2]]

		// Unnormalized cross product weights by triangle area.
		normal := v1.Sub(v0).Cross(v2.Sub(v0))

		m.Normals[t[0]] = m.Normals[t[0]].Add(normal)
		m.Normals[t[1]] = m.Normals[t[1]].Add(normal)
		m.Normals[t[2]] = m.Normals[t[2]].Add(normal)
	}

	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Normalize()
	}
}

// normalWeldTolerance is how far two normals may differ and still let
// their vertices merge.
const normalWeldTolerance = 1e-4

// Weld merges vertices whose positions match within eps and returns the
// merged mesh. An eps of zero or less merges only identical positions.
// When the mesh has normals they are part of the match, so creases stay
// split, and each merged vertex keeps the first normal seen.
func (m *Mesh) Weld(eps float64) *Mesh {
	type key struct{ x, y, z, nx, ny, nz int64 }
	quantize := func(v, step float64) int64 {
		if v == 0 {
			v = 0 // fold -0 into +0
		}
		if step <= 0 {
			return int64(math.Float64bits(v))
		}
		return int64(math.Round(v / step))
	}

	keepNormals := m.HasNormals()
	index := make(map[key]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	vertices := make([]math3d.Vec3, 0, len(m.Vertices))
	var normals []math3d.Vec3
	for i, v := range m.Vertices {
		k := key{x: quantize(v.X, eps), y: quantize(v.Y, eps), z: quantize(v.Z, eps)}
		if keepNormals {
			n := m.Normals[i]
			k.nx = quantize(n.X, normalWeldTolerance)
			k.ny = quantize(n.Y, normalWeldTolerance)
			k.nz = quantize(n.Z, normalWeldTolerance)
		}
		if j, ok := index[k]; ok {
			remap[i] = j
			continue
		}
		index[k] = len(vertices)
		remap[i] = len(vertices)
		vertices = append(vertices, v)
		if keepNormals {
			normals = append(normals, m.Normals[i])
		}
	}

	triangles := make([][3]int, len(m.Triangles))
	for i, t := range m.Triangles {
		triangles[i] = [3]int{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	out := NewMesh(vertices, triangles)
	out.Normals = normals
	return out
}

// DropDegenerate returns a mesh without triangles that repeat a vertex or
// have zero area. Vertices are left as they are.
func (m *Mesh) DropDegenerate() *Mesh {
	triangles := make([][3]int, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			continue
		}
		v0, v1, v2 := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		if v1.Sub(v0).Cross(v2.Sub(v0)).Len() == 0 {
			continue
		}
		triangles = append(triangles, t)
	}
	out := NewMesh(m.Vertices, triangles)
	out.Normals = m.Normals
	return out
}

// Compact removes vertices no triangle references and renumbers the rest.
func (m *Mesh) Compact() *Mesh {
	remap := make([]int, len(m.Vertices))
	for i := range remap {
		remap[i] = -1
	}

	out := &Mesh{Triangles: make([][3]int, len(m.Triangles))}
	keepNormals := m.HasNormals()
	for ti, t := range m.Triangles {
		for k, v := range t {
			if remap[v] < 0 {
				remap[v] = len(out.Vertices)
				out.Vertices = append(out.Vertices, m.Vertices[v])
				if keepNormals {
					out.Normals = append(out.Normals, m.Normals[v])
				}
			}
			out.Triangles[ti][k] = remap[v]
		}
	}
	return out
}
