package grid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"
)

// ScriptName is the launch script written into every workspace.
const ScriptName = "run.sh"

// Script is a parsed launch script template. It is immutable and safe to
// render for many cells.
type Script struct {
	tmpl *template.Template
}

// ScriptData are the placeholders available to a launch script.
type ScriptData struct {
	Path    string
	JobName string
}

// ParseScript parses a launch script template.
func ParseScript(text string) (*Script, error) {
	tmpl, err := template.New(ScriptName).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing launch script: %w", err)
	}
	return &Script{tmpl: tmpl}, nil
}

// Render expands the template for one cell.
func (s *Script) Render(data ScriptData) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering launch script for %s: %w", data.JobName, err)
	}
	return buf.String(), nil
}

// WriteScript renders s into dir/run.sh and returns the script path.
func WriteScript(dir string, s *Script, data ScriptData) (string, error) {
	text, err := s.Render(data)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ScriptName)
	if err := os.WriteFile(path, []byte(text), 0o755); err != nil {
		return "", fmt.Errorf("writing launch script: %w", err)
	}
	return path, nil
}

// Process is a started subprocess.
type Process interface {
	Pid() int
	Wait() error
}

// Starter creates subprocesses. Tests substitute it to avoid running shells.
type Starter interface {
	Start(script string) (Process, error)
}

// ShellStarter runs scripts with sh, inheriting the parent's environment,
// stdout and stderr.
type ShellStarter struct{}

type execProcess struct{ cmd *exec.Cmd }

func (p execProcess) Pid() int    { return p.cmd.Process.Pid }
func (p execProcess) Wait() error { return p.cmd.Wait() }

// Start implements Starter.
func (ShellStarter) Start(script string) (Process, error) {
	cmd := exec.Command("sh", script)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execProcess{cmd: cmd}, nil
}

// Result is the outcome of a launched script.
type Result struct {
	Job      string
	ExitCode int
	Err      error
	Duration time.Duration
}

// Handle tracks one launched script. Completion is observed in the
// background from the moment of launch.
type Handle struct {
	job     string
	pid     int
	started time.Time
	done    chan struct{}
	result  Result
}

// Launch starts script without waiting for it. The subprocess is not tied to
// ctx; ctx only gates whether the launch happens.
func Launch(ctx context.Context, starter Starter, job, script string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proc, err := starter.Start(script)
	if err != nil {
		return nil, fmt.Errorf("launching %s: %w", script, err)
	}

	h := &Handle{job: job, pid: proc.Pid(), started: time.Now(), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		err := proc.Wait()
		h.result = Result{Job: job, Err: err, Duration: time.Since(h.started)}
		var exitErr *exec.ExitError
		switch {
		case err == nil:
		case errors.As(err, &exitErr):
			h.result.ExitCode = exitErr.ExitCode()
		default:
			h.result.ExitCode = -1
		}
	}()
	return h, nil
}

// Job returns the cell name the handle was launched for.
func (h *Handle) Job() string { return h.job }

// PID returns the subprocess id.
func (h *Handle) PID() int { return h.pid }

// Done is closed once the subprocess has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the subprocess exits and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// WaitAll waits for every handle and returns results in handle order. The
// error is the first failure to be observed, if any.
func WaitAll(handles []*Handle) ([]Result, error) {
	results := make([]Result, len(handles))
	var g errgroup.Group
	for i, h := range handles {
		g.Go(func() error {
			r := h.Wait()
			results[i] = r
			if r.Err != nil {
				return fmt.Errorf("job %s exited with code %d: %w", r.Job, r.ExitCode, r.Err)
			}
			return nil
		})
	}
	return results, g.Wait()
}
