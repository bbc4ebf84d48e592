// Package command runs external tools (ffmpeg, ffprobe) behind an interface
// so callers can be tested without the binaries installed.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxStderrTail 错误信息中保留的 stderr 尾部长度
const maxStderrTail = 2048

// Runner 执行外部命令，返回 stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError 命令非零退出
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.ExitCode, e.Stderr)
}

// ExecRunner 基于 os/exec 的 Runner
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner 创建 ExecRunner
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger.With(zap.String("component", "command"))}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	r.logger.Debug("command finished",
		zap.String("name", name),
		zap.Int("args", len(args)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	if err == nil {
		return stdoutBuf.Bytes(), nil
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExitError{Name: name, ExitCode: exitErr.ExitCode(), Stderr: tail(stderrBuf.String())}
	}
	return nil, fmt.Errorf("run %s: %w", name, err)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	return s
}

// Call 记录一次调用
type Call struct {
	Name string
	Args []string
}

// Recorder 记录调用而不执行，测试用；Outputs 按命令名返回 stdout
type Recorder struct {
	Calls   []Call
	Outputs map[string][]byte
	Err     error
}

func (r *Recorder) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.Calls = append(r.Calls, Call{Name: name, Args: append([]string(nil), args...)})
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Outputs[name], nil
}
