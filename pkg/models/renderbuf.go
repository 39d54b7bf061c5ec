package models

// RenderBuffer is the flat form of a mesh consumed by a renderer.
// Data holds Stride floats per vertex: x,y,z and, when HasNormals is set,
// nx,ny,nz. Indices holds 3 entries per triangle.
type RenderBuffer struct {
	Data       []float32
	Indices    []uint32
	Stride     int
	HasNormals bool
}

const (
	positionStride       = 3
	positionNormalStride = 6
)

// BuildRenderBuffer derives the render buffer from a topological mesh.
// Vertex i of the buffer is vertex i of the mesh, so indices carry over
// unchanged.
func BuildRenderBuffer(m *Mesh) RenderBuffer {
	buf := RenderBuffer{
		Stride:     positionStride,
		HasNormals: m.HasNormals(),
	}
	if buf.HasNormals {
		buf.Stride = positionNormalStride
	}

	buf.Data = make([]float32, 0, len(m.Vertices)*buf.Stride)
	for i, v := range m.Vertices {
		p := v.Float32()
		buf.Data = append(buf.Data, p[0], p[1], p[2])
		if buf.HasNormals {
			n := m.Normals[i].Float32()
			buf.Data = append(buf.Data, n[0], n[1], n[2])
		}
	}

	buf.Indices = make([]uint32, 0, len(m.Triangles)*3)
	for _, t := range m.Triangles {
		buf.Indices = append(buf.Indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
	}
	return buf
}

// VertexCount returns the number of vertices.
func (b *RenderBuffer) VertexCount() int {
	if b.Stride == 0 {
		return 0
	}
	return len(b.Data) / b.Stride
}

// TriangleCount returns the number of triangles.
func (b *RenderBuffer) TriangleCount() int {
	return len(b.Indices) / 3
}

// IsEmpty returns true if the buffer has no geometry.
func (b *RenderBuffer) IsEmpty() bool {
	return len(b.Data) == 0
}

// Position returns the position of vertex i.
func (b *RenderBuffer) Position(i int) [3]float32 {
	o := i * b.Stride
	return [3]float32{b.Data[o], b.Data[o+1], b.Data[o+2]}
}

// Normal returns the normal of vertex i, or zero if the buffer has none.
func (b *RenderBuffer) Normal(i int) [3]float32 {
	if !b.HasNormals {
		return [3]float32{}
	}
	o := i*b.Stride + 3
	return [3]float32{b.Data[o], b.Data[o+1], b.Data[o+2]}
}
