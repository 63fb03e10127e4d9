package launch

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"modpack-launcher/model"
)

// Signal is one asynchronous notification from a running game process.
type Signal struct {
	Kind     EventKind // EventDebug, EventData or EventProgress
	Line     string
	Progress Progress
}

// Process is a started game. Signals is closed once the process stops
// producing output; Wait may be called after that.
type Process interface {
	Signals() <-chan Signal
	Wait() (int, error)
	Kill() error
}

// Runner starts the external game process.
type Runner interface {
	Start(ctx context.Context, opts ProcessOptions) (Process, error)
}

// ExecRunner runs the game as a child java process.
type ExecRunner struct {
	Log *zap.SugaredLogger
}

func (r ExecRunner) Start(ctx context.Context, opts ProcessOptions) (Process, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if _, err := os.Stat(opts.ClientJar()); err != nil {
		return nil, model.NewIOError("game version "+opts.VersionNumber+" is not installed under "+opts.Root, err)
	}

	cmd := exec.CommandContext(ctx, opts.JavaPath, opts.Args()...)
	cmd.Dir = opts.GameDirectory
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, model.NewIOError("failed to attach to game output", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, model.NewIOError("failed to attach to game output", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, model.NewIOError("failed to start "+opts.JavaPath, err)
	}
	log.Infow("Game process started", zap.Int("pid", cmd.Process.Pid), zap.String("version", opts.Version()))

	p := &execProcess{cmd: cmd, signals: make(chan Signal, 64)}
	p.readers.Add(2)
	go p.forward(stdout, EventData)
	go p.forward(stderr, EventDebug)
	go func() {
		p.readers.Wait()
		close(p.signals)
	}()
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	signals chan Signal
	readers sync.WaitGroup

	waitOnce sync.Once
	code     int
	err      error
}

func (p *execProcess) forward(r io.Reader, kind EventKind) {
	defer p.readers.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.signals <- Signal{Kind: kind, Line: scanner.Text()}
	}
}

func (p *execProcess) Signals() <-chan Signal {
	return p.signals
}

// Wait blocks until the process exits. A non-zero exit is reported as the
// code, not as an error.
func (p *execProcess) Wait() (int, error) {
	p.waitOnce.Do(func() {
		// Output must be fully read before cmd.Wait closes the pipes.
		p.readers.Wait()
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			p.code = 0
		case errors.As(err, &exitErr):
			p.code = exitErr.ExitCode()
		default:
			p.code = StoppedExitCode
			p.err = err
		}
	})
	return p.code, p.err
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
