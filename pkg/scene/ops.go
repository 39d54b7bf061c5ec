package scene

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Axis selects the scene extent RescaleToTarget measures.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	// AxisAuto uses the largest extent.
	AxisAuto
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	case AxisAuto:
		return "auto"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis converts "x", "y", "z" or "auto" to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x", "width":
		return AxisX, nil
	case "y", "height":
		return AxisY, nil
	case "z", "depth":
		return AxisZ, nil
	case "auto", "":
		return AxisAuto, nil
	default:
		return 0, fmt.Errorf("unknown axis %q (use x, y, z or auto)", s)
	}
}

// extent returns the size of box along a.
func (a Axis) extent(box math3d.Box) float64 {
	size := box.Size()
	if a == AxisAuto {
		return size.MaxComponent()
	}
	return size.Axis(int(a))
}

// PruneSmall removes every entity with any axis dimension below
// ratio times the largest single-axis dimension in the scene, and returns
// the removed entities in display order. Ratio 0 removes nothing.
func (s *Store) PruneSmall(ratio float64) ([]*models.Entity, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("prune ratio %v outside [0, 1]", ratio)
	}

	var removed []*models.Entity
	err := s.mutate(func(tx *Tx) error {
		dims := lo.Map(tx.Entities(), func(e *models.Entity, _ int) math3d.Vec3 {
			return e.Dimensions()
		})
		largest := lo.Max(lo.Map(dims, func(d math3d.Vec3, _ int) float64 {
			return d.MaxComponent()
		}))
		threshold := ratio * largest

		small := func(i int) bool { return dims[i].MinComponent() < threshold }
		removed = lo.Filter(tx.Entities(), func(_ *models.Entity, i int) bool { return small(i) })
		tx.entities = lo.Filter(tx.Entities(), func(_ *models.Entity, i int) bool { return !small(i) })

		logger.Debug("pruned small meshes",
			zap.Float64("ratio", ratio),
			zap.Float64("threshold", threshold),
			zap.Int("removed", len(removed)),
			zap.Int("kept", len(tx.entities)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// ReplaceAllWithBoundingBoxes swaps every entity for a box covering its
// bounds, keeping name, color and orientation. Boxes are built
// concurrently and committed together.
func (s *Store) ReplaceAllWithBoundingBoxes(ctx context.Context) error {
	return s.Mutate(ctx, func(tx *Tx) error {
		boxes, err := rebuildAll(ctx, tx.Entities(), func(_ int, e *models.Entity) (*models.Mesh, error) {
			b := e.Bounds()
			return models.NewBoxMesh(b.Center(), b.Size()), nil
		})
		if err != nil {
			return fmt.Errorf("bounding boxes: %w", err)
		}
		tx.entities = boxes
		return nil
	})
}

// SubstitutePrimitive replaces e with a primitive of the given kind fitted
// to e's bounds and returns the new entity.
func (s *Store) SubstitutePrimitive(e *models.Entity, kind models.PrimitiveKind) (*models.Entity, error) {
	var out *models.Entity
	err := s.mutate(func(tx *Tx) error {
		i := tx.Index(e)
		if i < 0 {
			return ErrNotFound
		}
		b := e.Bounds()
		mesh, err := models.NewPrimitive(kind, b.Center(), b.Size())
		if err != nil {
			return err
		}
		out = e.Rebuild(mesh)
		tx.entities[i] = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("substitute %s: %w", kind, err)
	}
	return out, nil
}

// RescaleToTarget scales the whole scene uniformly so its extent along
// axis equals target, then moves it so the union box is centered at the
// origin. It returns the applied factor. An empty or flat scene fails with
// math3d.ErrDegenerateGeometry and is left unchanged.
func (s *Store) RescaleToTarget(ctx context.Context, target float64, axis Axis) (float64, error) {
	if axis < AxisX || axis > AxisAuto {
		return 0, fmt.Errorf("rescale: unknown axis %v", axis)
	}

	var factor float64
	err := s.Mutate(ctx, func(tx *Tx) error {
		entities := tx.Entities()
		box := unionBounds(entities)
		if box.IsEmpty() {
			return fmt.Errorf("empty scene: %w", math3d.ErrDegenerateGeometry)
		}

		var err error
		factor, err = math3d.ScaleFactor(target, axis.extent(box))
		if err != nil {
			return err
		}

		scaled := make([]*models.Mesh, len(entities))
		scaledBox := math3d.EmptyBox()
		for i, e := range entities {
			scaled[i] = e.Mesh().ScaleAndTranslate(factor, math3d.Zero3())
			scaledBox = scaledBox.Union(scaled[i].Bounds())
		}
		offset := scaledBox.Center().Negate()

		rebuilt, err := rebuildAll(ctx, entities, func(i int, _ *models.Entity) (*models.Mesh, error) {
			return scaled[i].ScaleAndTranslate(1, offset), nil
		})
		if err != nil {
			return err
		}
		tx.entities = rebuilt

		logger.Debug("rescaled scene",
			zap.Stringer("axis", axis),
			zap.Float64("target", target),
			zap.Float64("factor", factor),
			zap.Int("entities", len(rebuilt)))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rescale: %w", err)
	}
	return factor, nil
}

// rebuildAll derives a new mesh for every entity and rebuilds the entities
// around them, preserving order. Work is spread over an errgroup; the
// first error cancels the rest.
func rebuildAll(ctx context.Context, entities []*models.Entity, derive func(int, *models.Entity) (*models.Mesh, error)) ([]*models.Entity, error) {
	out := make([]*models.Entity, len(entities))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, e := range entities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mesh, err := derive(i, e)
			if err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
			out[i] = e.Rebuild(mesh)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
