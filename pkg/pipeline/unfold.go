package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/scene"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Unfold defaults.
const (
	DefaultPageGrowth  = 1.25
	DefaultMaxAttempts = 5
	DefaultRetryOn     = "needs more room"
)

// UnfoldConfig configures an Unfolder.
type UnfoldConfig struct {
	// Command is the tool command line; input, output dir, script,
	// session, page width, page height and format are appended in that
	// order.
	Command    string
	Script     string
	Session    string
	PageWidth  float64
	PageHeight float64
	// Format is the panel file extension without the dot, e.g. "svg".
	Format string
	// OutputDir receives one subdirectory of panels per run.
	OutputDir string
	// PageGrowth multiplies both page dimensions after a recoverable
	// failure.
	PageGrowth float64
	// MaxAttempts bounds tool runs per Unfold call.
	MaxAttempts int
	// RetryOn marks a failure as recoverable when found in the tool output.
	RetryOn string
	// Timeout bounds the whole external phase across attempts.
	Timeout time.Duration
	// ImportPanels replaces the unfolded meshes with the panels. Format
	// must then be importable.
	ImportPanels bool
	Workspace    Workspace
}

// withDefaults fills unset retry settings.
func (c UnfoldConfig) withDefaults() UnfoldConfig {
	if c.PageGrowth == 0 {
		c.PageGrowth = DefaultPageGrowth
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryOn == "" {
		c.RetryOn = DefaultRetryOn
	}
	c.Format = strings.TrimPrefix(c.Format, ".")
	return c
}

// Validate checks page size, retry bounds and the panel format.
func (c UnfoldConfig) Validate() error {
	switch {
	case c.Command == "":
		return fmt.Errorf("%w: unfold command is empty", ErrInvalidArgument)
	case !(c.PageWidth > 0) || !(c.PageHeight > 0):
		return fmt.Errorf("%w: page size %vx%v", ErrInvalidArgument, c.PageWidth, c.PageHeight)
	case !(c.PageGrowth > 1):
		return fmt.Errorf("%w: page growth %v must exceed 1", ErrInvalidArgument, c.PageGrowth)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d", ErrInvalidArgument, c.MaxAttempts)
	case c.Format == "":
		return fmt.Errorf("%w: panel format is empty", ErrInvalidArgument)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output directory is empty", ErrInvalidArgument)
	}
	if c.ImportPanels && !slices.Contains(models.ImportFormats(), "."+strings.ToLower(c.Format)) {
		return fmt.Errorf("%w: cannot import %q panels", ErrInvalidArgument, c.Format)
	}
	return nil
}

// UnfoldResult describes a successful unfold.
type UnfoldResult struct {
	// Dir holds the panel files.
	Dir    string
	Panels []string
	// Attempts is the number of tool runs, 1 when no retry was needed.
	Attempts   int
	PageWidth  float64
	PageHeight float64
	// Imported holds the panel meshes when ImportPanels is set.
	Imported []*models.Entity
}

// Unfolder flattens meshes into printable panels with the external unfold
// tool.
type Unfolder struct {
	cfg  UnfoldConfig
	deps Deps
}

// NewUnfolder fills defaults and validates cfg and deps.
func NewUnfolder(cfg UnfoldConfig, deps Deps) (*Unfolder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Unfolder{cfg: cfg, deps: deps}, nil
}

// Unfold exports entities, runs the tool until it fits the panels on the
// page or the attempts run out, and collects the panel files. With
// ImportPanels the panels replace entities in the scene; otherwise the
// scene is not touched.
func (u *Unfolder) Unfold(ctx context.Context, entities []*models.Entity) (*UnfoldResult, error) {
	m := newMachine("unfold", u.deps.Progress)
	if len(entities) == 0 {
		return nil, m.fail(fmt.Errorf("%w: nothing to unfold", ErrInvalidArgument))
	}

	dir, cleanup, err := u.cfg.Workspace.open("unfold")
	if err != nil {
		return nil, m.fail(fmt.Errorf("%w: %v", ErrExportFailed, err))
	}
	defer cleanup()

	input, err := export(m, u.deps.Exporter, entities, filepath.Join(dir, "input"+u.cfg.Workspace.ext()))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(u.cfg.OutputDir, 0o755); err != nil {
		return nil, m.fail(fmt.Errorf("%w: %v", ErrNoOutput, err))
	}
	outDir, err := os.MkdirTemp(u.cfg.OutputDir, sessionPrefix(u.cfg.Session))
	if err != nil {
		return nil, m.fail(fmt.Errorf("%w: %v", ErrNoOutput, err))
	}

	// The panel directory is only left behind when the run succeeds.
	keep := false
	defer func() {
		if !keep {
			os.RemoveAll(outDir)
		}
	}()

	res := &UnfoldResult{Dir: outDir, PageWidth: u.cfg.PageWidth, PageHeight: u.cfg.PageHeight}
	if err := u.runWithRetry(ctx, m, input, res); err != nil {
		return nil, m.fail(err)
	}

	res.Panels, err = listPanels(outDir, u.cfg.Format)
	if err != nil {
		return nil, m.fail(err)
	}

	if !u.cfg.ImportPanels {
		keep = true
		m.enter(Done, fmt.Sprintf("%d panel(s) in %s", len(res.Panels), outDir))
		return res, nil
	}

	m.enter(Importing, fmt.Sprintf("reading %d panel(s)", len(res.Panels)))
	res.Imported, err = u.importPanels(ctx, res.Panels)
	if err != nil {
		return nil, m.fail(err)
	}

	m.enter(Committing, fmt.Sprintf("replacing %d mesh(es) with %d panel(s)", len(entities), len(res.Imported)))
	err = u.deps.Committer.Mutate(ctx, func(tx *scene.Tx) error {
		for _, e := range entities {
			tx.Remove(e)
		}
		for _, p := range res.Imported {
			if err := tx.Add(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, m.fail(fmt.Errorf("commit: %w", err))
	}

	keep = true
	m.enter(Done, fmt.Sprintf("%d panel(s) imported", len(res.Imported)))
	return res, nil
}

// runWithRetry runs the tool, growing the page after each recoverable
// failure. The Timeout covers all attempts.
func (u *Unfolder) runWithRetry(ctx context.Context, m *machine, input string, res *UnfoldResult) error {
	ctx, cancel := withTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		res.Attempts = attempt
		if err := clearDir(res.Dir); err != nil {
			return fmt.Errorf("%w: %v", ErrNoOutput, err)
		}

		cmd, err := ParseCommand(u.cfg.Command,
			input,
			res.Dir,
			u.cfg.Script,
			u.cfg.Session,
			formatDim(res.PageWidth),
			formatDim(res.PageHeight),
			u.cfg.Format,
		)
		if err != nil {
			return err
		}

		m.enter(ExternalToolRunning, fmt.Sprintf("attempt %d/%d, page %sx%s",
			attempt, u.cfg.MaxAttempts, formatDim(res.PageWidth), formatDim(res.PageHeight)))
		out, err := runTool(ctx, u.deps.Runner, cmd)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrToolFailed) || !strings.Contains(out.Output(), u.cfg.RetryOn) {
			return err
		}

		logger.Info("unfold needs a larger page",
			zap.Int("attempt", attempt),
			zap.Float64("width", res.PageWidth),
			zap.Float64("height", res.PageHeight))
		if attempt < u.cfg.MaxAttempts {
			res.PageWidth *= u.cfg.PageGrowth
			res.PageHeight *= u.cfg.PageGrowth
		}
	}
	return fmt.Errorf("%w: panels still do not fit after %d attempts (last page %sx%s)",
		ErrRetryExhausted, u.cfg.MaxAttempts, formatDim(res.PageWidth), formatDim(res.PageHeight))
}

// importPanels imports every panel file concurrently and returns the
// meshes in panel order.
func (u *Unfolder) importPanels(ctx context.Context, panels []string) ([]*models.Entity, error) {
	perPanel := make([][]*models.Entity, len(panels))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range panels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entities, err := u.deps.Importer.Import(path)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrImportEmpty, filepath.Base(path), err)
			}
			perPanel[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	imported := lo.Flatten(perPanel)
	if len(imported) == 0 {
		return nil, fmt.Errorf("%w: %d panel file(s) held no meshes", ErrImportEmpty, len(panels))
	}
	return imported, nil
}

// listPanels returns the files in dir with the panel extension, sorted.
func listPanels(dir, format string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	ext := "." + strings.ToLower(format)
	panels := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ext {
			return "", false
		}
		return filepath.Join(dir, e.Name()), true
	})
	if len(panels) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoOutput, ext, dir)
	}
	slices.Sort(panels)
	return panels, nil
}

// clearDir removes everything inside dir so a retry starts clean.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func sessionPrefix(session string) string {
	if session == "" {
		session = "unfold"
	}
	return strings.ReplaceAll(session, string(os.PathSeparator), "_") + "-*"
}

func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
