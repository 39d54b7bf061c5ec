// Package pipeline runs mesh operations that go through an external tool:
// export the affected meshes to an interchange file, run the tool, import
// what it wrote and commit the result to the scene in one transaction.
// Any failure before the commit leaves the scene untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taigrr/papercraft/internal/logger"
	"github.com/taigrr/papercraft/pkg/models"
	"github.com/taigrr/papercraft/pkg/scene"
	"go.uber.org/zap"
)

// Committer applies a scene transaction. *scene.Store and
// *scene.Dispatcher both satisfy it.
type Committer interface {
	Mutate(ctx context.Context, fn func(tx *scene.Tx) error) error
}

var (
	_ Committer = (*scene.Store)(nil)
	_ Committer = (*scene.Dispatcher)(nil)
)

// Deps are the collaborators a pipeline talks to.
type Deps struct {
	Runner    Runner
	Importer  models.Importer
	Exporter  models.Exporter
	Committer Committer
	Progress  ProgressFunc
}

func (d Deps) validate() error {
	if d.Runner == nil || d.Importer == nil || d.Exporter == nil || d.Committer == nil {
		return fmt.Errorf("%w: runner, importer, exporter and committer are required", ErrInvalidArgument)
	}
	return nil
}

// Workspace controls where interchange files go.
type Workspace struct {
	// Dir is the parent of per-run directories; empty means os.TempDir.
	Dir string
	// Format is the interchange extension without the dot.
	Format string
	// KeepFiles leaves the per-run directory in place for debugging.
	KeepFiles bool
}

func (w Workspace) ext() string {
	f := strings.TrimPrefix(w.Format, ".")
	if f == "" {
		f = "obj"
	}
	return "." + f
}

// open creates the per-run directory and returns it with its cleanup.
func (w Workspace) open(op string) (string, func(), error) {
	if w.Dir != "" {
		if err := os.MkdirAll(w.Dir, 0o755); err != nil {
			return "", nil, err
		}
	}
	dir, err := os.MkdirTemp(w.Dir, op+"-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if w.KeepFiles {
			logger.Info("keeping pipeline files", zap.String("dir", dir))
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("cleaning pipeline files", zap.String("dir", dir), zap.Error(err))
		}
	}
	return dir, cleanup, nil
}

// export writes entities to path through the exporter.
func export(m *machine, exp models.Exporter, entities []*models.Entity, path string) (string, error) {
	m.enter(Exporting, fmt.Sprintf("exporting %d mesh(es)", len(entities)))
	written, err := exp.Export(entities, path)
	if err != nil {
		return "", m.fail(fmt.Errorf("%w: %v", ErrExportFailed, err))
	}
	if written == "" {
		return "", m.fail(ErrExportFailed)
	}
	return written, nil
}

// runTool runs cmd and turns cancellation, timeouts and non-zero exits
// into errors. res is returned in every case for inspection.
func runTool(ctx context.Context, r Runner, cmd Command) (Result, error) {
	logger.Info("running external tool", zap.Stringer("cmd", cmd))
	res, err := r.Run(ctx, cmd)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return res, fmt.Errorf("%w: %s", ErrTimeout, cmd.Name)
	case errors.Is(err, context.Canceled):
		return res, err
	case err != nil:
		return res, fmt.Errorf("%w: %s: %v", ErrToolFailed, cmd.Name, err)
	case res.ExitCode != 0:
		return res, fmt.Errorf("%w: %s exited %d: %s", ErrToolFailed, cmd.Name, res.ExitCode, tail(res.Output(), 400))
	}
	logger.Debug("external tool finished",
		zap.String("cmd", cmd.Name),
		zap.Duration("took", res.Duration))
	return res, nil
}

// importFile reads path through the importer and requires at least one
// mesh.
func importFile(imp models.Importer, path string) ([]*models.Entity, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	entities, err := imp.Import(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportEmpty, err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrImportEmpty, filepath.Base(path))
	}
	return entities, nil
}

// withTimeout applies d to ctx when positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// tail keeps the last n bytes of s for error messages.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
