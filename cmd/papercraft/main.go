// papercraft - mesh preparation for paper models
// Imports OBJ and glTF meshes, cleans and rescales them, hands them to
// external simplify and unfold tools, and previews the result in the
// terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/papercraft/internal/config"
	"github.com/taigrr/papercraft/internal/logger"
	"go.uber.org/zap"
)

var version = "dev"

var (
	flags config.Flags
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "papercraft",
	Short: "Prepare 3D meshes for paper models",
	Long: `papercraft loads OBJ, glTF and GLB meshes into a scene, edits them
(rescale, prune, bounding boxes, primitives), runs external simplify and
unfold tools on them and writes the result back out.

Every command takes one or more mesh files; --out writes the edited scene.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
}

func init() {
	flags.Register(rootCmd.PersistentFlags())
}

// setup loads the config and starts logging before any command runs.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(&flags)
	if err != nil {
		return err
	}
	if err := logger.Init(c.Logging.Level, c.Logging.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg = c
	logger.Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("level", c.Logging.Level))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fang.Execute(ctx, rootCmd, fang.WithVersion(version))
	stop()
	if err != nil {
		os.Exit(1)
	}
}
