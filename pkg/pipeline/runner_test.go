package pipeline

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand(`blender --background --python "my scripts/unfold.py" --`, "in.obj", "out dir")
	require.NoError(t, err)
	assert.Equal(t, "blender", cmd.Name)
	assert.Equal(t, []string{"--background", "--python", "my scripts/unfold.py", "--", "in.obj", "out dir"}, cmd.Args)
	assert.Equal(t, `blender --background --python "my scripts/unfold.py" -- in.obj "out dir"`, cmd.String())

	_, err = ParseCommand("   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ParseCommand(`simplify "unterminated`)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestResultOutput(t *testing.T) {
	assert.Equal(t, "out", Result{Stdout: "out"}.Output())
	assert.Equal(t, "err", Result{Stderr: "err"}.Output())
	assert.Equal(t, "err\nout", Result{Stdout: "out", Stderr: "err"}.Output())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", ExternalToolRunning.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.True(t, Done.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Committing.Terminal())
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short\n", 10))
	assert.Equal(t, "...6789", tail("0123456789", 4))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	var r ExecRunner

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out", strings.TrimSpace(res.Stdout))
	assert.Equal(t, "err", strings.TrimSpace(res.Stderr))

	res, err = r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd"}, Dir: "/"})
	require.NoError(t, err)
	assert.Zero(t, res.ExitCode)
	assert.Equal(t, "/", strings.TrimSpace(res.Stdout))

	_, err = r.Run(context.Background(), Command{Name: "papercraft-no-such-tool"})
	assert.Error(t, err)
}

func TestExecRunnerCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := ExecRunner{WaitDelay: time.Second}.Run(ctx, Command{Name: "sleep", Args: []string{"10"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}
