package vfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// DefaultMaxStreamBytes is the per-stream output ceiling for sandbox
// command execution.
const DefaultMaxStreamBytes = 64000

// Sandbox is a disk-backed Store that additionally runs shell commands
// inside the workspace root.
type Sandbox struct {
	*Disk
	maxStreamBytes int
}

// NewSandbox creates a sandbox workspace rooted at root. maxStreamBytes
// caps each of stdout and stderr; <= 0 uses DefaultMaxStreamBytes.
func NewSandbox(root string, maxStreamBytes int) (*Sandbox, error) {
	disk, err := NewDisk(root)
	if err != nil {
		return nil, err
	}
	if maxStreamBytes <= 0 {
		maxStreamBytes = DefaultMaxStreamBytes
	}
	return &Sandbox{Disk: disk, maxStreamBytes: maxStreamBytes}, nil
}

// Execute runs command through /bin/sh inside the workspace root. A
// non-zero exit is a normal result; only inability to spawn the process is
// an error. Output is truncated deterministically at the stream ceiling.
func (s *Sandbox) Execute(ctx context.Context, command string, opts ExecOptions) (ExecResult, error) {
	if strings.TrimSpace(command) == "" {
		return ExecResult{}, fmt.Errorf("command is required")
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", command)
	cmd.Dir = s.Root()
	// Kill the whole process group on cancellation; killing only the shell
	// leaves children holding the output pipes, and Run would block on them
	// past the deadline. WaitDelay bounds the pipe drain for anything that
	// survives the kill.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	if opts.Env != nil {
		base := os.Environ()
		for k, v := range opts.Env {
			base = append(base, k+"="+v)
		}
		cmd.Env = base
	}

	stdout := newLimitedBuffer(s.maxStreamBytes)
	stderr := newLimitedBuffer(s.maxStreamBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	result := ExecResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode(err),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, nil
		}
		if runCtx.Err() != nil {
			// Killed by timeout or cancellation; report what we captured.
			result.ExitCode = -1
			return result, nil
		}
		return ExecResult{}, fmt.Errorf("spawn command: %w", err)
	}
	return result, nil
}

// limitedBuffer caps captured output at a fixed byte ceiling. Writes past
// the ceiling are accepted and dropped so the child never blocks on a full
// pipe.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) >= b.max {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	remaining := b.max - len(b.buf)
	if len(p) > remaining {
		b.buf = append(b.buf, p[:remaining]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
