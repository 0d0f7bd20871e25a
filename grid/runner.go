package grid

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// State is a job's progress through the generator. Transitions are strictly
// linear; there is no retry and no rollback.
type State int

const (
	Enumerated State = iota
	DirectoryCreated
	FilesCopied
	ConfigPatched
	ScriptWritten
	Launched
)

var stateNames = [...]string{
	Enumerated:       "enumerated",
	DirectoryCreated: "directory_created",
	FilesCopied:      "files_copied",
	ConfigPatched:    "config_patched",
	ScriptWritten:    "script_written",
	Launched:         "launched",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Runner materializes and launches grid cells.
type Runner struct {
	Config *Config
	// Root is the directory the block_* workspaces are created under.
	Root    string
	Starter Starter
	// DryRun stops every job after its script is written.
	DryRun bool
	// Strict fails a job whose config patch left a rule unmatched.
	Strict bool
}

// JobReport is what the runner knows about one job after Run.
type JobReport struct {
	Job    Job
	Dir    string
	State  State
	Handle *Handle
	Patch  PatchResult
}

// Run processes jobs in order. The first failure stops the grid and is
// returned together with the reports of every job attempted so far; launched
// scripts keep running.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]JobReport, error) {
	script, err := ParseScript(r.Config.Script)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(r.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving grid root: %w", err)
	}
	starter := r.Starter
	if starter == nil {
		starter = ShellStarter{}
	}

	reports := make([]JobReport, 0, len(jobs))
	for _, job := range jobs {
		rep := JobReport{Job: job, Dir: filepath.Join(root, job.Name()), State: Enumerated}
		err := r.runJob(ctx, script, starter, &rep)
		reports = append(reports, rep)
		if err != nil {
			return reports, fmt.Errorf("job %s after state %s: %w", job.Name(), rep.State, err)
		}
	}
	return reports, nil
}

func (r *Runner) runJob(ctx context.Context, script *Script, starter Starter, rep *JobReport) error {
	log := logrus.WithField("job", rep.Job.Name())
	advance := func(s State) {
		rep.State = s
		log.WithField("state", s).Debug("job advanced")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Materialize(rep.Dir, nil); err != nil {
		return err
	}
	advance(DirectoryCreated)

	if err := Materialize(rep.Dir, r.Config.TemplatePaths()); err != nil {
		return err
	}
	advance(FilesCopied)

	rules, err := RenderRules(r.Config.Rules, rep.Job.Values(r.Config.BlockStride))
	if err != nil {
		return err
	}
	patcher := &Patcher{Rules: rules}
	rep.Patch, err = patcher.PatchFile(filepath.Join(rep.Dir, r.Config.ConfigFile))
	if err != nil {
		return err
	}
	for _, rule := range rep.Patch.Unmatched(rules) {
		if r.Strict {
			return fmt.Errorf("%w: %q", ErrRuleUnmatched, rule.Match)
		}
		log.WithField("match", rule.Match).Warn("patch rule matched no line; config left unchanged for it")
	}
	advance(ConfigPatched)

	scriptPath, err := WriteScript(rep.Dir, script, ScriptData{Path: rep.Dir, JobName: rep.Job.Name()})
	if err != nil {
		return err
	}
	advance(ScriptWritten)

	if r.DryRun {
		return nil
	}
	rep.Handle, err = Launch(ctx, starter, rep.Job.Name(), scriptPath)
	if err != nil {
		return err
	}
	advance(Launched)
	log.WithField("pid", rep.Handle.PID()).Info("started cosim job")
	return nil
}

// Handles returns the handles of launched jobs in report order.
func Handles(reports []JobReport) []*Handle {
	var hs []*Handle
	for _, rep := range reports {
		if rep.Handle != nil {
			hs = append(hs, rep.Handle)
		}
	}
	return hs
}
