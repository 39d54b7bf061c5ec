package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/scene"
)

var rescaleOpts struct {
	size float64
	axis string
	out  string
}

var rescaleCmd = &cobra.Command{
	Use:   "rescale [files...]",
	Short: "Scale the scene to a target size and center it",
	Long: `Scale every mesh by one factor so the scene extent along --axis equals
--size, then move the scene so its bounding box is centered on the origin.
The default axis, auto, uses the largest extent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRescale,
}

var pruneOpts struct {
	ratio float64
	out   string
}

var pruneCmd = &cobra.Command{
	Use:   "prune [files...]",
	Short: "Remove meshes that are small compared to the largest one",
	Long: `Remove every mesh with any dimension below ratio times the largest
single dimension in the scene. Flat meshes are removed at any ratio above 0.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrune,
}

var bboxOpts struct {
	out string
}

var bboxCmd = &cobra.Command{
	Use:   "bbox [files...]",
	Short: "Replace every mesh with its bounding box",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBBox,
}

var primitiveOpts struct {
	kind  string
	names []string
	out   string
}

var primitiveCmd = &cobra.Command{
	Use:   "primitive [files...]",
	Short: "Replace meshes with a box or cylinder fitted to their bounds",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPrimitive,
}

func init() {
	rescaleCmd.Flags().Float64Var(&rescaleOpts.size, "size", 0, "Target extent (default scene.target_size)")
	rescaleCmd.Flags().StringVar(&rescaleOpts.axis, "axis", "auto", "Axis to measure: x, y, z or auto")
	addOutFlag(rescaleCmd, &rescaleOpts.out)

	pruneCmd.Flags().Float64Var(&pruneOpts.ratio, "ratio", 0, "Size ratio in [0, 1] (default scene.prune_ratio)")
	addOutFlag(pruneCmd, &pruneOpts.out)

	addOutFlag(bboxCmd, &bboxOpts.out)

	primitiveCmd.Flags().StringVar(&primitiveOpts.kind, "kind", "box", "Primitive: box or cylinder")
	primitiveCmd.Flags().StringSliceVar(&primitiveOpts.names, "mesh", nil, "Only replace meshes with these names (default all)")
	addOutFlag(primitiveCmd, &primitiveOpts.out)

	rootCmd.AddCommand(rescaleCmd, pruneCmd, bboxCmd, primitiveCmd)
}

func runRescale(cmd *cobra.Command, args []string) error {
	axis, err := scene.ParseAxis(rescaleOpts.axis)
	if err != nil {
		return err
	}
	size := cfg.Scene.TargetSize
	if cmd.Flags().Changed("size") {
		size = rescaleOpts.size
	}

	lib, err := newLibrary()
	if err != nil {
		return err
	}
	store, err := loadScene(cmd.Context(), lib, args)
	if err != nil {
		return err
	}

	factor, err := store.RescaleToTarget(cmd.Context(), size, axis)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scaled by %.6g to %v along %s\n", factor, size, axis)
	printScene(w, store)
	return saveScene(w, lib, store, rescaleOpts.out)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ratio := cfg.Scene.PruneRatio
	if cmd.Flags().Changed("ratio") {
		ratio = pruneOpts.ratio
	}

	lib, err := newLibrary()
	if err != nil {
		return err
	}
	store, err := loadScene(cmd.Context(), lib, args)
	if err != nil {
		return err
	}

	removed, err := store.PruneSmall(ratio)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, e := range removed {
		fmt.Fprintf(w, "Removed %s (size %s)\n", e.Name(), formatVec(e.Dimensions()))
	}
	printScene(w, store)
	return saveScene(w, lib, store, pruneOpts.out)
}

func runBBox(cmd *cobra.Command, args []string) error {
	lib, err := newLibrary()
	if err != nil {
		return err
	}
	store, err := loadScene(cmd.Context(), lib, args)
	if err != nil {
		return err
	}

	if err := store.ReplaceAllWithBoundingBoxes(cmd.Context()); err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	printScene(w, store)
	return saveScene(w, lib, store, bboxOpts.out)
}

func runPrimitive(cmd *cobra.Command, args []string) error {
	kind, err := models.ParsePrimitiveKind(primitiveOpts.kind)
	if err != nil {
		return err
	}

	lib, err := newLibrary()
	if err != nil {
		return err
	}
	store, err := loadScene(cmd.Context(), lib, args)
	if err != nil {
		return err
	}

	replaced := 0
	for _, e := range store.Snapshot() {
		if len(primitiveOpts.names) > 0 && !slices.Contains(primitiveOpts.names, e.Name()) {
			continue
		}
		if _, err := store.SubstitutePrimitive(e, kind); err != nil {
			return err
		}
		replaced++
	}
	if replaced == 0 {
		return fmt.Errorf("no mesh matched %v", primitiveOpts.names)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Replaced %d mesh(es) with a %s\n", replaced, kind)
	printScene(w, store)
	return saveScene(w, lib, store, primitiveOpts.out)
}
