package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/taigrr/papercraft/pkg/models"
)

// fakeRunner answers each call with a scripted function and records the
// commands it saw.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []Command
	script func(call int, cmd Command) (Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	n := len(f.calls)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}
	return f.script(n, cmd)
}

func (f *fakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// failingExporter never writes anything.
type failingExporter struct{}

func (failingExporter) Export([]*models.Entity, string) (string, error) {
	return "", errors.New("disk full")
}

// progressLog records every transition.
type progressLog struct {
	mu     sync.Mutex
	states []State
}

func (p *progressLog) record(s State, _ string) {
	p.mu.Lock()
	p.states = append(p.states, s)
	p.mu.Unlock()
}

func (p *progressLog) States() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]State(nil), p.states...)
}
