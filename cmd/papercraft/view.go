package main

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"github.com/taigrr/papercraft/internal/config"
	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/math3d"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/render"
	"github.com/taigrr/papercraft/pkg/scene"
)

var viewOpts struct {
	fps    int
	bg     string
	png    string
	width  int
	height int
}

var viewCmd = &cobra.Command{
	Use:   "view [files...]",
	Short: "Preview the scene as a wireframe in the terminal",
	Long: `Show the scene as a spinning wireframe.

Controls:
  W/S/A/D, arrows  spin
  +/-              zoom
  Tab              select the next mesh
  X/Y/Z            turn the selected mesh 90 degrees
  0                reset the selected mesh
  R                reset the view
  Esc, Ctrl+C      quit

With --png the preview is written to an image instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().IntVar(&viewOpts.fps, "fps", 30, "Target frames per second")
	viewCmd.Flags().StringVar(&viewOpts.bg, "bg", "#1e1e28", "Background color")
	viewCmd.Flags().StringVar(&viewOpts.png, "png", "", "Write a snapshot to this PNG file and exit")
	viewCmd.Flags().IntVar(&viewOpts.width, "width", 640, "Snapshot width in pixels")
	viewCmd.Flags().IntVar(&viewOpts.height, "height", 480, "Snapshot height in pixels")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	bg, err := config.ParseColor(viewOpts.bg)
	if err != nil {
		return err
	}
	if viewOpts.fps < 1 {
		return fmt.Errorf("fps must be positive")
	}

	lib, err := newLibrary()
	if err != nil {
		return err
	}
	store, err := loadScene(cmd.Context(), lib, args)
	if err != nil {
		return err
	}

	if viewOpts.png != "" {
		fb := render.Snapshot(store.Snapshot(), viewOpts.width, viewOpts.height, bg)
		if err := fb.SavePNG(viewOpts.png); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", viewOpts.png)
		return nil
	}

	// The preview owns the screen; logs go to the file only.
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, false); err != nil {
		return err
	}

	return runPreview(cmd.Context(), store, bg, viewOpts.fps)
}

// spin is one rotation axis whose velocity decays through a critically
// damped spring.
type spin struct {
	Position float64
	Velocity float64
	spring   harmonica.Spring
	accel    float64
}

func newSpin(fps int) spin {
	return spin{spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0)}
}

func (s *spin) update() {
	s.Position += s.Velocity
	s.Velocity, s.accel = s.spring.Update(s.Velocity, s.accel, 0)
}

type action int

const (
	actionNone action = iota
	actionQuit
	actionSpinUp
	actionSpinDown
	actionSpinLeft
	actionSpinRight
	actionZoomIn
	actionZoomOut
	actionSelectNext
	actionTurnX
	actionTurnY
	actionTurnZ
	actionResetMesh
	actionResetView
)

const (
	spinImpulse = 0.04
	minZoom     = 0.3
	maxZoom     = 4.0
)

// preview is the state of the terminal viewer. It only reads the scene;
// orientation and highlight changes are presentation state on entities.
type preview struct {
	store    *scene.Store
	camera   *render.Camera
	fps      int
	yaw      spin
	pitch    spin
	zoom     float64
	selected int
	bg       color.RGBA
}

func newPreview(store *scene.Store, bg color.RGBA, fps int) *preview {
	p := &preview{
		store:    store,
		camera:   render.NewCamera(),
		fps:      fps,
		bg:       bg,
		selected: -1,
	}
	p.resetView()
	return p
}

func (p *preview) resetView() {
	p.yaw = newSpin(p.fps)
	p.pitch = newSpin(p.fps)
	p.pitch.Position = -0.35
	p.zoom = 1
}

// apply performs a and reports whether the viewer should keep running.
func (p *preview) apply(a action) bool {
	switch a {
	case actionQuit:
		return false
	case actionSpinUp:
		p.pitch.Velocity -= spinImpulse
	case actionSpinDown:
		p.pitch.Velocity += spinImpulse
	case actionSpinLeft:
		p.yaw.Velocity -= spinImpulse
	case actionSpinRight:
		p.yaw.Velocity += spinImpulse
	case actionZoomIn:
		p.zoom = math.Max(minZoom, p.zoom*0.85)
	case actionZoomOut:
		p.zoom = math.Min(maxZoom, p.zoom/0.85)
	case actionSelectNext:
		p.selectNext()
	case actionTurnX:
		p.turnSelected(math3d.V3(1, 0, 0))
	case actionTurnY:
		p.turnSelected(math3d.Up())
	case actionTurnZ:
		p.turnSelected(math3d.V3(0, 0, 1))
	case actionResetMesh:
		if e := p.selectedEntity(); e != nil {
			e.ResetOrientation()
		}
	case actionResetView:
		p.resetView()
	}
	return true
}

func (p *preview) selectedEntity() *models.Entity {
	if p.selected < 0 || p.selected >= p.store.Len() {
		return nil
	}
	return p.store.At(p.selected)
}

// selectNext moves the highlight to the next mesh, wrapping to none after
// the last one.
func (p *preview) selectNext() {
	if e := p.selectedEntity(); e != nil {
		e.SetHighlighted(false)
	}
	p.selected++
	if p.selected >= p.store.Len() {
		p.selected = -1
		return
	}
	if e := p.selectedEntity(); e != nil {
		e.SetHighlighted(true)
	}
}

func (p *preview) turnSelected(axis math3d.Vec3) {
	if e := p.selectedEntity(); e != nil {
		e.Rotate(math3d.QuatFromAxisAngle(axis, math.Pi/2))
	}
}

// render draws one frame into fb.
func (p *preview) render(fb *render.Framebuffer) int {
	p.yaw.update()
	p.pitch.update()

	bounds := p.store.Bounds()
	if bounds.IsEmpty() {
		bounds = math3d.NewBox(math3d.V3(-0.5, -0.5, -0.5), math3d.V3(0.5, 0.5, 0.5))
	}
	p.camera.SetAspectRatio(float64(fb.Width) / float64(max(fb.Height, 1)))
	dist := p.camera.Frame(bounds) * p.zoom
	p.camera.Orbit(bounds.Center(), dist, p.yaw.Position, p.pitch.Position)
	radius := math.Max(bounds.Size().Len()/2, 0.5)
	p.camera.SetClipPlanes(dist*0.01, dist+radius*4)

	fb.Clear(p.bg)
	return render.NewWireframe(p.camera, fb).DrawScene(p.store.Snapshot())
}

func (p *preview) status(drawn int) string {
	sel := "none"
	if e := p.selectedEntity(); e != nil {
		sel = fmt.Sprintf("%s (%d tris)", e.Name(), e.TriangleCount())
	}
	return fmt.Sprintf(" %d/%d meshes  selected: %s  zoom %.2f ", drawn, p.store.Len(), sel, 1/p.zoom)
}

func keyAction(ev uv.KeyPressEvent) action {
	switch {
	case ev.MatchString("escape", "ctrl+c", "q"):
		return actionQuit
	case ev.MatchString("w", "up"):
		return actionSpinUp
	case ev.MatchString("s", "down"):
		return actionSpinDown
	case ev.MatchString("a", "left"):
		return actionSpinLeft
	case ev.MatchString("d", "right"):
		return actionSpinRight
	case ev.MatchString("+", "="):
		return actionZoomIn
	case ev.MatchString("-", "_"):
		return actionZoomOut
	case ev.MatchString("tab"):
		return actionSelectNext
	case ev.MatchString("x"):
		return actionTurnX
	case ev.MatchString("y"):
		return actionTurnY
	case ev.MatchString("z"):
		return actionTurnZ
	case ev.MatchString("0"):
		return actionResetMesh
	case ev.MatchString("r"):
		return actionResetView
	}
	return actionNone
}

func runPreview(ctx context.Context, store *scene.Store, bg color.RGBA, fps int) error {
	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	p := newPreview(store, bg, fps)
	fb := render.NewFramebuffer(render.CellSize(width, height-1))

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	events := term.Events()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				fb = render.NewFramebuffer(render.CellSize(width, height-1))
			case uv.KeyPressEvent:
				if !p.apply(keyAction(ev)) {
					return nil
				}
			}

		case <-ticker.C:
			drawn := p.render(fb)
			fb.Draw(term, uv.Rect(0, 0, width, height-1))
			drawText(term, 0, height-1, width, p.status(drawn))
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}

// drawText writes s on row y, padded with blanks to width cells.
func drawText(scr uv.Screen, x, y, width int, s string) {
	style := uv.Style{Fg: render.ColorBlack, Bg: render.DefaultHighlight}
	col := x
	for _, r := range s {
		if col >= x+width {
			return
		}
		scr.SetCell(col, y, &uv.Cell{Content: string(r), Width: 1, Style: style})
		col++
	}
	for ; col < x+width; col++ {
		scr.SetCell(col, y, &uv.Cell{Content: " ", Width: 1, Style: style})
	}
}
