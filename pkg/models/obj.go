package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/papercraft/pkg/math3d"
)

// Part is a named mesh read from a file before it becomes an Entity.
type Part struct {
	Name string
	Mesh *Mesh
}

// ReadOBJ parses Wavefront OBJ geometry. Each "o" or "g" statement starts a
// new part; polygons are fan-triangulated. A part keeps vertex normals only
// when every face corner names one. Texture coordinates and materials are
// ignored. Parts without faces are dropped.
func ReadOBJ(r io.Reader, defaultName string) ([]Part, error) {
	var (
		positions []math3d.Vec3
		normals   []math3d.Vec3
		parts     []Part
		name      = defaultName
		remap     map[[2]int]int
		current   *Mesh
		partial   bool
	)

	flush := func() {
		if current != nil && len(current.Triangles) > 0 {
			if partial {
				current.Normals = nil
			}
			parts = append(parts, Part{Name: name, Mesh: current})
		}
		current = nil
		remap = nil
		partial = false
	}

	parseVec := func(fields []string, line int, what string) (math3d.Vec3, error) {
		if len(fields) < 4 {
			return math3d.Vec3{}, fmt.Errorf("obj line %d: %s needs 3 coordinates", line, what)
		}
		var xyz [3]float64
		for i := range 3 {
			f, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return math3d.Vec3{}, fmt.Errorf("obj line %d: %w", line, err)
			}
			xyz[i] = f
		}
		return math3d.V3(xyz[0], xyz[1], xyz[2]), nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)

		switch fields[0] {
		case "v":
			v, err := parseVec(fields, line, "vertex")
			if err != nil {
				return nil, err
			}
			positions = append(positions, v)

		case "vn":
			n, err := parseVec(fields, line, "normal")
			if err != nil {
				return nil, err
			}
			normals = append(normals, n)

		case "o", "g":
			flush()
			if len(fields) > 1 {
				name = strings.Join(fields[1:], " ")
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: face needs at least 3 vertices", line)
			}
			if current == nil {
				current = &Mesh{}
				remap = make(map[[2]int]int)
			}
			poly := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				idx, nidx, err := parseOBJCorner(tok, len(positions), len(normals))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", line, err)
				}
				if nidx < 0 {
					partial = true
				}
				local, ok := remap[[2]int{idx, nidx}]
				if !ok {
					local = len(current.Vertices)
					current.Vertices = append(current.Vertices, positions[idx])
					if nidx >= 0 {
						current.Normals = append(current.Normals, normals[nidx])
					} else {
						current.Normals = append(current.Normals, math3d.Vec3{})
					}
					remap[[2]int{idx, nidx}] = local
				}
				poly = append(poly, local)
			}
			for i := 1; i+1 < len(poly); i++ {
				current.Triangles = append(current.Triangles, [3]int{poly[0], poly[i], poly[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}
	flush()
	return parts, nil
}

// parseOBJCorner resolves a face token ("7", "7/1", "7//3", "7/1/3") to
// zero-based position and normal indices. The normal index is -1 when the
// token has none.
func parseOBJCorner(tok string, positions, normals int) (int, int, error) {
	refs := strings.Split(tok, "/")
	idx, err := parseOBJIndex(refs[0], positions)
	if err != nil {
		return 0, 0, err
	}
	if len(refs) < 3 || refs[2] == "" {
		return idx, -1, nil
	}
	nidx, err := parseOBJIndex(refs[2], normals)
	if err != nil {
		return 0, 0, fmt.Errorf("normal: %w", err)
	}
	return idx, nidx, nil
}

// parseOBJIndex resolves a one-based or negative OBJ reference against
// count entries.
func parseOBJIndex(tok string, count int) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", tok)
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += count
	default:
		return 0, fmt.Errorf("face index 0 is invalid")
	}
	if n < 0 || n >= count {
		return 0, fmt.Errorf("face index %s out of range (%d entries)", tok, count)
	}
	return n, nil
}

// LoadOBJ reads an OBJ file into parts named after the file when the file
// has no object names.
func LoadOBJ(path string) ([]Part, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()
	return ReadOBJ(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// WriteOBJ writes one "o" block per entity with positions and faces only.
func WriteOBJ(w io.Writer, entities []*Entity) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# papercraft interchange")

	base := 1
	for i, e := range entities {
		name := e.Name()
		if name == "" {
			name = fmt.Sprintf("mesh_%d", i)
		}
		fmt.Fprintf(bw, "o %s\n", name)

		m := e.Mesh()
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
		}
		for _, t := range m.Triangles {
			fmt.Fprintf(bw, "f %d %d %d\n", t[0]+base, t[1]+base, t[2]+base)
		}
		base += len(m.Vertices)
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// SaveOBJ writes entities to an OBJ file.
func SaveOBJ(path string, entities []*Entity) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create obj: %w", err)
	}
	if err := WriteOBJ(f, entities); err != nil {
		f.Close()
		return fmt.Errorf("write obj: %w", err)
	}
	return f.Close()
}
