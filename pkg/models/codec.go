package models

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/papercraft/internal/logger"
	"go.uber.org/zap"
)

// ErrUnsupportedFormat is returned for file extensions no codec handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

// DefaultWeldEpsilon merges vertices closer than this on every axis.
const DefaultWeldEpsilon = 1e-6

// Importer turns a mesh file into scene entities. Implementations return
// either every mesh in the file or nil with an error, never a partial set.
type Importer interface {
	Import(path string) ([]*Entity, error)
}

// Exporter writes entities into a single file with one sub-mesh per
// entity and returns the written path.
type Exporter interface {
	Export(entities []*Entity, path string) (string, error)
}

// Library picks a codec by file extension. Import reads .obj, .gltf and
// .glb; Export writes .obj, .gltf, .glb and .stl.
type Library struct {
	DefaultColor color.RGBA
	WeldEpsilon  float64
}

// NewLibrary returns a Library with the default color and weld epsilon.
func NewLibrary() *Library {
	return &Library{
		DefaultColor: DefaultColor,
		WeldEpsilon:  DefaultWeldEpsilon,
	}
}

var (
	_ Importer = (*Library)(nil)
	_ Exporter = (*Library)(nil)
)

// Import reads path and returns one entity per mesh. Meshes are welded and
// stripped of degenerate triangles; meshes left empty afterwards are
// skipped.
func (l *Library) Import(path string) ([]*Entity, error) {
	var (
		parts []Part
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		parts, err = LoadOBJ(path)
	case ".gltf", ".glb":
		parts, err = LoadGLTF(path)
	default:
		return nil, fmt.Errorf("import %s: %w: %q", path, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}

	entities := make([]*Entity, 0, len(parts))
	for _, p := range parts {
		mesh := Clean(p.Mesh, l.WeldEpsilon)
		if mesh.IsEmpty() {
			logger.Debug("skipping degenerate mesh", zap.String("file", path), zap.String("mesh", p.Name))
			continue
		}
		if err := mesh.Validate(); err != nil {
			return nil, fmt.Errorf("import %s: mesh %q: %w", path, p.Name, err)
		}
		entities = append(entities, NewEntity(mesh, WithName(p.Name), WithColor(l.DefaultColor)))
	}

	logger.Debug("imported meshes",
		zap.String("file", path),
		zap.Int("parts", len(parts)),
		zap.Int("entities", len(entities)))
	return entities, nil
}

// Export writes entities to path in the format named by its extension.
// The parent directory is created when missing.
func (l *Library) Export(entities []*Entity, path string) (string, error) {
	if len(entities) == 0 {
		return "", fmt.Errorf("export %s: nothing to export", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		err = SaveOBJ(path, entities)
	case ".gltf", ".glb":
		err = SaveGLTF(path, entities)
	case ".stl":
		err = SaveSTL(path, entities)
	default:
		return "", fmt.Errorf("export %s: %w: %q", path, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}

// Clean welds coincident vertices, then drops degenerate triangles and the
// vertices left unused. A negative epsilon skips welding. Normals survive
// every step.
func Clean(m *Mesh, weldEpsilon float64) *Mesh {
	out := m
	if weldEpsilon >= 0 {
		out = out.Weld(weldEpsilon)
	}
	return out.DropDegenerate().Compact()
}

// ImportFormats lists the extensions Library.Import accepts.
func ImportFormats() []string {
	return []string{".obj", ".gltf", ".glb"}
}

// ExportFormats lists the extensions Library.Export writes.
func ExportFormats() []string {
	return []string{".obj", ".gltf", ".glb", ".stl"}
}
