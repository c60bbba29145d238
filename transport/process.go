package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProcessConfig describes a server launched as a child process.
type ProcessConfig struct {
	Command     string
	Args        []string
	Env         []string // appended to the parent environment
	Dir         string
	Framing     Framing
	GracePeriod time.Duration // wait after closing stdin before killing (default 5s)
}

// ProcessTransport runs an MCP server as a child process and talks to it
// over its stdin/stdout. The child's stderr is forwarded to the logger.
type ProcessTransport struct {
	*StdioTransport

	cmd    *exec.Cmd
	grace  time.Duration
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
	stderrWG  sync.WaitGroup
}

// StartProcess launches the configured command. ctx only bounds the start;
// the child lives until Close.
func StartProcess(ctx context.Context, cfg ProcessConfig, logger *zap.Logger) (*ProcessTransport, error) {
	if cfg.Command == "" {
		return nil, errors.New("process transport: command is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "mcp_process_transport"), zap.String("command", cfg.Command))

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}

	p := &ProcessTransport{
		StdioTransport: NewStdioTransport(stdout, stdin, logger, WithFraming(cfg.Framing)),
		cmd:            cmd,
		grace:          grace,
		logger:         logger,
	}

	p.stderrWG.Add(1)
	go p.forwardStderr(stderr)

	logger.Info("server process started", zap.Int("pid", cmd.Process.Pid))
	return p, nil
}

// Pid returns the child's process id.
func (p *ProcessTransport) Pid() int {
	return p.cmd.Process.Pid
}

// Close closes the child's stdin and stdout, waits up to the grace period for
// it to exit and kills it otherwise. Stderr is drained before the child is
// reaped, so its last lines reach the logger. A non-zero exit status is not an
// error.
func (p *ProcessTransport) Close() error {
	p.closeOnce.Do(func() {
		stdioErr := p.StdioTransport.Close()

		deadline := time.NewTimer(p.grace)
		defer deadline.Stop()

		// exec.Cmd.Wait 会关闭 stderr 管道，必须先等读取结束
		drained := make(chan struct{})
		go func() {
			p.stderrWG.Wait()
			close(drained)
		}()

		killed := false
		select {
		case <-drained:
		case <-deadline.C:
			p.kill()
			killed = true
		}

		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()

		var waitErr error
		if killed {
			waitErr = <-done
		} else {
			select {
			case waitErr = <-done:
			case <-deadline.C:
				p.kill()
				waitErr = <-done
			}
		}
		<-drained

		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			p.closeErr = errors.Join(stdioErr, fmt.Errorf("wait: %w", waitErr))
			return
		}
		p.logger.Info("server process exited", zap.NamedError("status", waitErr))
		p.closeErr = stdioErr
	})
	return p.closeErr
}

func (p *ProcessTransport) kill() {
	p.logger.Warn("server process did not exit, killing", zap.Duration("grace", p.grace))
	_ = p.cmd.Process.Kill()
}

func (p *ProcessTransport) forwardStderr(r io.Reader) {
	defer p.stderrWG.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.logger.Info("server stderr", zap.String("line", scanner.Text()))
	}
}
