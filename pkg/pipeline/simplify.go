package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/scene"
	"go.uber.org/zap"
)

// Method is a simplification algorithm understood by the external tool.
type Method string

const (
	QuadricEdgeCollapse   Method = "quadric_edge_collapse"
	FastQuadricDecimation Method = "fast_quadric_decimation"
	VertexClustering      Method = "vertex_clustering"
)

// Methods lists the accepted methods.
func Methods() []Method {
	return []Method{QuadricEdgeCollapse, FastQuadricDecimation, VertexClustering}
}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown simplification method %q", ErrInvalidArgument, s)
}

// Ratio bounds for SimplifyConfig.Ratio.
const (
	MinRatio = 0.1
	MaxRatio = 1.0
)

// SimplifyConfig configures a Simplifier.
type SimplifyConfig struct {
	// Command is the tool command line; input, output, method and ratio
	// are appended in that order.
	Command string
	Method  Method
	// Ratio is the fraction of triangles to keep.
	Ratio     float64
	Timeout   time.Duration
	Workspace Workspace
}

// Validate checks the method and the ratio range.
func (c SimplifyConfig) Validate() error {
	if _, err := ParseMethod(string(c.Method)); err != nil {
		return err
	}
	if !(c.Ratio >= MinRatio && c.Ratio <= MaxRatio) {
		return fmt.Errorf("%w: ratio %v outside [%v, %v]", ErrInvalidArgument, c.Ratio, MinRatio, MaxRatio)
	}
	return nil
}

// Simplifier reduces triangle counts through the external simplify tool.
type Simplifier struct {
	cfg  SimplifyConfig
	deps Deps
}

// NewSimplifier validates cfg and deps.
func NewSimplifier(cfg SimplifyConfig, deps Deps) (*Simplifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Simplifier{cfg: cfg, deps: deps}, nil
}

// SimplifyMesh simplifies one entity and replaces it in the scene with
// the first imported mesh. If the original left the scene meanwhile the
// result is appended.
func (s *Simplifier) SimplifyMesh(ctx context.Context, e *models.Entity) (*models.Entity, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrInvalidArgument)
	}
	imported, err := s.run(ctx, "simplify-mesh", []*models.Entity{e}, func(tx *scene.Tx, imported []*models.Entity) error {
		return tx.Replace(e, imported[0])
	})
	if err != nil {
		return nil, err
	}
	return imported[0], nil
}

// SimplifyScene simplifies entities as one file and replaces the whole
// scene with the imported meshes. Display order follows the tool output.
func (s *Simplifier) SimplifyScene(ctx context.Context, entities []*models.Entity) ([]*models.Entity, error) {
	return s.run(ctx, "simplify-scene", entities, func(tx *scene.Tx, imported []*models.Entity) error {
		tx.Clear()
		for _, e := range imported {
			if err := tx.Add(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Simplifier) run(ctx context.Context, op string, entities []*models.Entity, commit func(*scene.Tx, []*models.Entity) error) ([]*models.Entity, error) {
	m := newMachine(op, s.deps.Progress)
	if len(entities) == 0 {
		return nil, m.fail(fmt.Errorf("%w: nothing to simplify", ErrInvalidArgument))
	}

	dir, cleanup, err := s.cfg.Workspace.open(op)
	if err != nil {
		return nil, m.fail(fmt.Errorf("%w: %v", ErrExportFailed, err))
	}
	defer cleanup()

	ext := s.cfg.Workspace.ext()
	input, err := export(m, s.deps.Exporter, entities, filepath.Join(dir, "input"+ext))
	if err != nil {
		return nil, err
	}
	output := filepath.Join(dir, "output"+ext)

	cmd, err := ParseCommand(s.cfg.Command,
		input, output, string(s.cfg.Method), strconv.FormatFloat(s.cfg.Ratio, 'f', -1, 64))
	if err != nil {
		return nil, m.fail(err)
	}
	cmd.Dir = dir

	m.enter(ExternalToolRunning, fmt.Sprintf("%s ratio %v", s.cfg.Method, s.cfg.Ratio))
	toolCtx, cancel := withTimeout(ctx, s.cfg.Timeout)
	_, err = runTool(toolCtx, s.deps.Runner, cmd)
	cancel()
	if err != nil {
		return nil, m.fail(err)
	}

	m.enter(Importing, "reading simplified mesh")
	imported, err := importFile(s.deps.Importer, output)
	if err != nil {
		return nil, m.fail(err)
	}

	m.enter(Committing, fmt.Sprintf("committing %d mesh(es)", len(imported)))
	if err := s.deps.Committer.Mutate(ctx, func(tx *scene.Tx) error {
		return commit(tx, imported)
	}); err != nil {
		return nil, m.fail(fmt.Errorf("commit: %w", err))
	}

	before, after := triangleCount(entities), triangleCount(imported)
	logger.Info("simplified",
		zap.String("op", op),
		zap.Int("triangles_before", before),
		zap.Int("triangles_after", after))
	m.enter(Done, fmt.Sprintf("%d -> %d triangles", before, after))
	return imported, nil
}

func triangleCount(entities []*models.Entity) int {
	var n int
	for _, e := range entities {
		n += e.TriangleCount()
	}
	return n
}
