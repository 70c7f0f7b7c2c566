// Package pip invokes the pip package manager as an external process.
package pip

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Request describes a single pip install invocation.
type Request struct {
	Specifier   string
	Index       string
	TrustedHost string
	Upgrade     bool
}

// Result is the outcome of one install invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err is set when the process could not be started or exited non-zero.
	Err error
}

// OK reports whether the install succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Summary returns the last non-blank line of the diagnostic output, which is
// where pip puts the actual reason for a failure.
func (r Result) Summary() string {
	if line := lastLine(r.Stderr); line != "" {
		return line
	}
	var exitErr *exec.ExitError
	if r.Err != nil && !errors.As(r.Err, &exitErr) {
		return r.Err.Error()
	}
	return "unknown error"
}

// Runner runs install requests. Implementations must block until the
// install has finished.
type Runner interface {
	Install(ctx context.Context, req Request) Result
}

// Args builds the interpreter arguments for req.
func Args(req Request) []string {
	args := []string{"-m", "pip", "install", req.Specifier}
	if req.Upgrade {
		args = append(args, "--upgrade")
	}
	if req.Index != "" {
		args = append(args, "-i", req.Index)
	}
	if req.TrustedHost != "" {
		args = append(args, "--trusted-host", req.TrustedHost)
	}
	return args
}

// ExecRunner runs pip through a local Python interpreter.
type ExecRunner struct {
	Interpreter string
}

// NewExecRunner returns a runner using interpreter, e.g. "python3".
func NewExecRunner(interpreter string) *ExecRunner {
	return &ExecRunner{Interpreter: interpreter}
}

// Install runs "<interpreter> -m pip install ..." and waits for it to exit.
// No timeout is applied beyond ctx.
func (r *ExecRunner) Install(ctx context.Context, req Request) Result {
	cmd := exec.CommandContext(ctx, r.Interpreter, Args(req)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}
	if err == nil {
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res
	}

	// Interpreter missing or not executable.
	res.ExitCode = 127
	return res
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
