package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/pipeline"
	"github.com/taigrr/papercraft/pkg/scene"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// newLibrary builds the codec library from the config.
func newLibrary() (*models.Library, error) {
	c, err := cfg.DefaultColor()
	if err != nil {
		return nil, err
	}
	lib := models.NewLibrary()
	lib.DefaultColor = c
	lib.WeldEpsilon = cfg.Scene.WeldEpsilon
	return lib, nil
}

// loadScene imports paths concurrently and adds their meshes to a new
// store in argument order.
func loadScene(ctx context.Context, lib models.Importer, paths []string) (*scene.Store, error) {
	perFile := make([][]*models.Entity, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scene.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entities, err := lib.Import(path)
			if err != nil {
				return err
			}
			perFile[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store := scene.NewStore()
	err := store.Mutate(ctx, func(tx *scene.Tx) error {
		for _, e := range lo.Flatten(perFile) {
			if err := tx.Add(e); err != nil {
				return fmt.Errorf("add %q: %w", e.Name(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("scene loaded",
		zap.Int("files", len(paths)),
		zap.Int("meshes", store.Len()))
	return store, nil
}

// saveScene exports the store to out when out is set.
func saveScene(w io.Writer, exp models.Exporter, store *scene.Store, out string) error {
	if out == "" {
		return nil
	}
	path, err := exp.Export(store.Snapshot(), out)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d mesh(es) to %s\n", store.Len(), path)
	return nil
}

// addOutFlag registers --out on cmd.
func addOutFlag(cmd *cobra.Command, out *string) {
	cmd.Flags().StringVarP(out, "out", "o", "",
		"Write the edited scene here ("+strings.Join(models.ExportFormats(), ", ")+")")
}

// workspace returns the interchange settings for external tools.
func workspace() (pipeline.Workspace, error) {
	dir, err := cfg.ExportDir()
	if err != nil {
		return pipeline.Workspace{}, err
	}
	return pipeline.Workspace{
		Dir:       dir,
		Format:    cfg.Export.Format,
		KeepFiles: cfg.Export.KeepFiles,
	}, nil
}

// progressPrinter reports pipeline transitions on w.
func progressPrinter(w io.Writer, label string) pipeline.ProgressFunc {
	return func(state pipeline.State, msg string) {
		fmt.Fprintf(w, "[%s] %-10s %s\n", label, state, msg)
	}
}

func formatVec(v math3d.Vec3) string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", v.X, v.Y, v.Z)
}

func printScene(w io.Writer, store *scene.Store) {
	entities := store.Snapshot()
	var verts, tris int
	for i, e := range entities {
		fmt.Fprintf(w, "%3d  %-24s %7d verts %7d tris  size %s\n",
			i, e.Name(), e.VertexCount(), e.TriangleCount(), formatVec(e.Dimensions()))
		verts += e.VertexCount()
		tris += e.TriangleCount()
	}
	b := store.Bounds()
	fmt.Fprintf(w, "%d mesh(es), %d vertices, %d triangles\n", len(entities), verts, tris)
	if !b.IsEmpty() {
		fmt.Fprintf(w, "Bounds %s .. %s, center %s, size %s\n",
			formatVec(b.Min), formatVec(b.Max), formatVec(b.Center()), formatVec(b.Size()))
	}
}
