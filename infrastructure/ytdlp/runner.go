package ytdlp

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// stderrLimit caps how much diagnostic output is kept per run
const stderrLimit = 4096

// pipeWaitDelay bounds how long Wait blocks on pipes held open by child
// processes after the tool itself has been killed
const pipeWaitDelay = 5 * time.Second

// CommandResult holds the captured output of a finished command
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

// Run executes a command, capturing stdout fully and the tail of stderr.
// The process is killed when ctx is done. A non-zero exit returns the
// result together with the *exec.ExitError; ExitCode is -1 when the process
// never started.
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: stderrLimit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = pipeWaitDelay

	err := cmd.Run()

	result := &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return result, err
}

// tailBuffer keeps only the last limit bytes written to it
type tailBuffer struct {
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
	}
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	return b.buf
}
