package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/pipeline"
	"github.com/taigrr/papercraft/pkg/scene"
	"golang.org/x/sync/errgroup"
)

var simplifyOpts struct {
	ratio   float64
	method  string
	perMesh bool
	out     string
}

var simplifyCmd = &cobra.Command{
	Use:   "simplify [files...]",
	Short: "Reduce triangle counts with the external simplify tool",
	Long: `Export the scene, run simplify.command on it and replace the scene
with what the tool writes. With --per-mesh every mesh goes through the
tool on its own, several at a time, and is replaced in place.

The scene is only changed when the tool succeeds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimplify,
}

var unfoldOpts struct {
	pageWidth  float64
	pageHeight float64
	outDir     string
	importAll  bool
	out        string
}

var unfoldCmd = &cobra.Command{
	Use:   "unfold [files...]",
	Short: "Flatten the scene into printable panels with the external unfold tool",
	Long: `Export the scene and run unfold.command on it. When the tool reports
that the panels need more room, the page grows by unfold.page_growth and
the tool runs again, up to unfold.max_attempts times.

With --import the panels replace the scene and --out can write them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUnfold,
}

func init() {
	simplifyCmd.Flags().Float64Var(&simplifyOpts.ratio, "ratio", 0, "Fraction of triangles to keep (default simplify.ratio)")
	simplifyCmd.Flags().StringVar(&simplifyOpts.method, "method", "", "Simplification method (default simplify.method)")
	simplifyCmd.Flags().BoolVar(&simplifyOpts.perMesh, "per-mesh", false, "Simplify each mesh separately")
	addOutFlag(simplifyCmd, &simplifyOpts.out)

	unfoldCmd.Flags().Float64Var(&unfoldOpts.pageWidth, "page-width", 0, "Page width (default unfold.page_width)")
	unfoldCmd.Flags().Float64Var(&unfoldOpts.pageHeight, "page-height", 0, "Page height (default unfold.page_height)")
	unfoldCmd.Flags().StringVar(&unfoldOpts.outDir, "panels", "", "Directory for panel runs (default <export dir>/unfold)")
	unfoldCmd.Flags().BoolVar(&unfoldOpts.importAll, "import", false, "Replace the scene with the panels")
	addOutFlag(unfoldCmd, &unfoldOpts.out)

	rootCmd.AddCommand(simplifyCmd, unfoldCmd)
}

func runSimplify(cmd *cobra.Command, args []string) error {
	method := cfg.Simplify.Method
	if simplifyOpts.method != "" {
		method = simplifyOpts.method
	}
	m, err := pipeline.ParseMethod(method)
	if err != nil {
		return err
	}
	ratio := cfg.Simplify.Ratio
	if cmd.Flags().Changed("ratio") {
		ratio = simplifyOpts.ratio
	}
	ws, err := workspace()
	if err != nil {
		return err
	}

	lib, err := newLibrary()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := loadScene(ctx, lib, args)
	if err != nil {
		return err
	}

	// Per-mesh runs finish in any order; the dispatcher serializes their
	// commits.
	dispatcher := scene.NewDispatcher(store, cfg.Scene.Workers)
	runCtx, stopDispatch := context.WithCancel(ctx)
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Run(runCtx)
		close(dispatchDone)
	}()
	defer func() {
		stopDispatch()
		<-dispatchDone
	}()

	w := cmd.OutOrStdout()
	simplifier, err := pipeline.NewSimplifier(pipeline.SimplifyConfig{
		Command:   cfg.Simplify.Command,
		Method:    m,
		Ratio:     ratio,
		Timeout:   cfg.Simplify.Timeout,
		Workspace: ws,
	}, pipeline.Deps{
		Runner:    pipeline.ExecRunner{},
		Importer:  lib,
		Exporter:  lib,
		Committer: dispatcher,
		Progress:  progressPrinter(cmd.ErrOrStderr(), "simplify"),
	})
	if err != nil {
		return err
	}

	if simplifyOpts.perMesh {
		err = simplifyEach(ctx, simplifier, store.Snapshot())
	} else {
		_, err = simplifier.SimplifyScene(ctx, store.Snapshot())
	}
	if err != nil {
		return err
	}

	printScene(w, store)
	return saveScene(w, lib, store, simplifyOpts.out)
}

// simplifyEach runs SimplifyMesh on every entity with at most
// scene.workers tool processes at once. Meshes that finished before a
// failure stay simplified.
func simplifyEach(ctx context.Context, s *pipeline.Simplifier, entities []*models.Entity) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scene.Workers)
	for _, e := range entities {
		g.Go(func() error {
			if _, err := s.SimplifyMesh(ctx, e); err != nil {
				return fmt.Errorf("%s: %w", e.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func runUnfold(cmd *cobra.Command, args []string) error {
	ws, err := workspace()
	if err != nil {
		return err
	}
	script, err := cfg.UnfoldScript()
	if err != nil {
		return err
	}
	outDir := unfoldOpts.outDir
	if outDir == "" {
		outDir = filepath.Join(ws.Dir, "unfold")
	}
	width, height := cfg.Unfold.PageWidth, cfg.Unfold.PageHeight
	if unfoldOpts.pageWidth > 0 {
		width = unfoldOpts.pageWidth
	}
	if unfoldOpts.pageHeight > 0 {
		height = unfoldOpts.pageHeight
	}
	importPanels := cfg.Unfold.ImportPanels || unfoldOpts.importAll
	if unfoldOpts.out != "" && !importPanels {
		return errors.New("--out needs --import: without it the scene is not changed")
	}

	lib, err := newLibrary()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := loadScene(ctx, lib, args)
	if err != nil {
		return err
	}

	unfolder, err := pipeline.NewUnfolder(pipeline.UnfoldConfig{
		Command:      cfg.Unfold.Command,
		Script:       script,
		Session:      cfg.Unfold.Session,
		PageWidth:    width,
		PageHeight:   height,
		Format:       cfg.Unfold.Format,
		OutputDir:    outDir,
		PageGrowth:   cfg.Unfold.PageGrowth,
		MaxAttempts:  cfg.Unfold.MaxAttempts,
		RetryOn:      cfg.Unfold.RetryOn,
		Timeout:      cfg.Unfold.Timeout,
		ImportPanels: importPanels,
		Workspace:    ws,
	}, pipeline.Deps{
		Runner:    pipeline.ExecRunner{},
		Importer:  lib,
		Exporter:  lib,
		Committer: store,
		Progress:  progressPrinter(cmd.ErrOrStderr(), "unfold"),
	})
	if err != nil {
		return err
	}

	res, err := unfolder.Unfold(ctx, store.Snapshot())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d panel(s) on %gx%g pages after %d attempt(s) in %s\n",
		len(res.Panels), res.PageWidth, res.PageHeight, res.Attempts, res.Dir)
	for _, p := range res.Panels {
		fmt.Fprintf(w, "  %s\n", filepath.Base(p))
	}
	if !importPanels {
		return nil
	}
	printScene(w, store)
	return saveScene(w, lib, store, unfoldOpts.out)
}
