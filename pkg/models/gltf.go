package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/papercraft/pkg/math3d"
)

// GLTFLoader loads GLTF/GLB files, one Part per glTF mesh.
type GLTFLoader struct {
	// KeepNormals copies NORMAL attributes into the mesh when present.
	KeepNormals bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		KeepNormals: true,
	}
}

// LoadGLTF loads a .gltf or .glb file with default options.
func LoadGLTF(path string) ([]Part, error) {
	return NewGLTFLoader().Load(path)
}

// Load reads path and converts every triangle primitive. Primitives of one
// glTF mesh are merged into a single Part.
func (l *GLTFLoader) Load(path string) ([]Part, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var parts []Part
	for i, m := range doc.Meshes {
		mesh := &Mesh{}
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
		if mesh.IsEmpty() {
			continue
		}
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", fallback, i)
		}
		parts = append(parts, Part{Name: name, Mesh: mesh})
	}
	return parts, nil
}

// processMesh appends the triangle primitives of m to mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Lines and points have no faces to keep.
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok && l.KeepNormals {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
			if len(normals) != len(positions) {
				normals = nil
			}
		}

		// Normals are only kept when every primitive supplies them.
		if normals == nil || (len(mesh.Vertices) > 0 && !mesh.HasNormals()) {
			mesh.Normals = nil
		} else {
			mesh.Normals = append(mesh.Normals, normals...)
		}

		base := len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, positions...)

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if a >= len(positions) || b >= len(positions) || c >= len(positions) {
				return fmt.Errorf("index out of range in primitive of %d vertices", len(positions))
			}
			mesh.Triangles = append(mesh.Triangles, [3]int{base + a, base + b, base + c})
		}
	}
	return nil
}

// readVec3Accessor reads float VEC3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 || accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", accessor.Type, accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range accessor.Count {
		o := i * stride
		result[i] = math3d.V3(
			float64(readFloat32(data[o:])),
			float64(readFloat32(data[o+4:])),
			float64(readFloat32(data[o+8:])),
		)
	}
	return result, nil
}

// readIndices reads scalar index data of any unsigned component type.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index component type: %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range accessor.Count {
		o := i * stride
		switch size {
		case 1:
			result[i] = int(data[o])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(data[o:]))
		default:
			result[i] = int(binary.LittleEndian.Uint32(data[o:]))
		}
	}
	return result, nil
}

// accessorBytes returns the bytes backing accessor starting at its first
// element together with the element stride, after checking that every
// element fits in the buffer.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}

	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	// gltf.Open resolves both embedded GLB chunks and external .bin files.
	if buffer.Data == nil {
		return nil, 0, fmt.Errorf("buffer %d has no data", bufferView.Buffer)
	}

	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start := bufferView.ByteOffset + accessor.ByteOffset
	if accessor.Count > 0 {
		end := start + (accessor.Count-1)*stride + elemSize
		if end > len(buffer.Data) {
			return nil, 0, fmt.Errorf("accessor reads past end of buffer (%d > %d)", end, len(buffer.Data))
		}
	}
	return buffer.Data[start:], stride, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// SaveGLTF writes entities as one glTF mesh and node each. A .glb path is
// written in binary form, anything else as JSON with embedded buffers.
func SaveGLTF(path string, entities []*Entity) error {
	doc := gltf.NewDocument()

	for i, e := range entities {
		m := e.Mesh()
		positions := make([][3]float32, len(m.Vertices))
		for j, v := range m.Vertices {
			positions[j] = v.Float32()
		}
		indices := make([]uint32, 0, len(m.Triangles)*3)
		for _, t := range m.Triangles {
			indices = append(indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
		}

		name := e.Name()
		if name == "" {
			name = fmt.Sprintf("mesh_%d", i)
		}

		attributes := map[string]int{gltf.POSITION: modeler.WritePosition(doc, positions)}
		if m.HasNormals() {
			normals := make([][3]float32, len(m.Normals))
			for j, n := range m.Normals {
				normals[j] = n.Float32()
			}
			attributes[gltf.NORMAL] = modeler.WriteNormal(doc, normals)
		}
		idxAcc := modeler.WriteIndices(doc, indices)
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name: name,
			Primitives: []*gltf.Primitive{{
				Indices:    gltf.Index(idxAcc),
				Attributes: attributes,
			}},
		})
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: name,
			Mesh: gltf.Index(len(doc.Meshes) - 1),
		})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") {
		return gltf.SaveBinary(doc, path)
	}
	return gltf.Save(doc, path)
}
