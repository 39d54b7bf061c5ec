package models

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// STLTriangles flattens entities into a single triangle soup.
func STLTriangles(entities []*Entity) []*sdf.Triangle3 {
	var n int
	for _, e := range entities {
		n += e.TriangleCount()
	}

	triangles := make([]*sdf.Triangle3, 0, n)
	for _, e := range entities {
		m := e.Mesh()
		for i := range m.Triangles {
			a, b, c := m.TrianglePoints(i)
			triangles = append(triangles, &sdf.Triangle3{
				v3.Vec{X: a.X, Y: a.Y, Z: a.Z},
				v3.Vec{X: b.X, Y: b.Y, Z: b.Z},
				v3.Vec{X: c.X, Y: c.Y, Z: c.Z},
			})
		}
	}
	return triangles
}

// SaveSTL writes entities as one binary STL. STL has no sub-mesh
// structure, so entity boundaries are lost.
func SaveSTL(path string, entities []*Entity) error {
	if err := render.SaveSTL(path, STLTriangles(entities)); err != nil {
		return fmt.Errorf("save stl: %w", err)
	}
	return nil
}
