package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"gauntlet/internal/results"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// DefaultRoot is where runs live unless the user points elsewhere.
const DefaultRoot = "/var/tmp/gauntlet"

const (
	runStateFilename = "run.yaml"
	lastRunFilename  = "last"
)

// runState is the serialized form of run.yaml. It remembers where the
// plans came from so a resume needs nothing but the run id.
type runState struct {
	ID        string    `yaml:"id"`
	SourceDir string    `yaml:"source-dir"`
	PlansDir  string    `yaml:"plans-dir"`
	Created   time.Time `yaml:"created"`
}

// Run groups the plans of one invocation under a shared workdir carrying
// all state needed to resume it later. A workdir belongs to a single
// process at a time, there is no cross-process locking.
type Run struct {
	id      string
	root    string
	workdir string
	state   runState
	plans   []*Plan
	options Options
}

// NewRun creates a fresh run: a new workdir under root holding every plan
// found in plansDir.
func NewRun(root, plansDir, sourceDir string, options Options) (*Run, error) {
	options.Resumed = false
	plans, err := LoadAll(plansDir, sourceDir, options)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, steps.NewSpecificationError("no plans found under '%s'", plansDir)
	}

	id := uuid.NewString()[:8]
	workdir := filepath.Join(root, id)
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, steps.NewFileError(workdir, err)
	}
	run := &Run{
		id:      id,
		root:    root,
		workdir: workdir,
		state:   runState{ID: id, SourceDir: sourceDir, PlansDir: plansDir, Created: time.Now()},
		plans:   plans,
		options: options,
	}
	if err := run.save(); err != nil {
		return nil, err
	}
	logging.Info("Run", "created run '%s' in '%s'", id, workdir)
	return run, nil
}

// Resume opens an earlier run. An empty id picks the most recent one.
func Resume(root, id string, options Options) (*Run, error) {
	id, err := resolveID(root, id)
	if err != nil {
		return nil, err
	}

	workdir := filepath.Join(root, id)
	statePath := filepath.Join(workdir, runStateFilename)
	payload, err := os.ReadFile(statePath)
	if err != nil {
		return nil, steps.NewSpecificationError("run '%s' not found under '%s'", id, root)
	}
	var state runState
	if err := yaml.Unmarshal(payload, &state); err != nil {
		return nil, &steps.SpecificationError{
			Message: fmt.Sprintf("invalid run state in '%s'", statePath),
			Err:     err,
		}
	}

	options.Resumed = true
	plans, err := LoadAll(state.PlansDir, state.SourceDir, options)
	if err != nil {
		return nil, err
	}
	logging.Info("Run", "resumed run '%s' in '%s'", id, workdir)
	return &Run{
		id:      id,
		root:    root,
		workdir: workdir,
		state:   state,
		plans:   plans,
		options: options,
	}, nil
}

// resolveID falls back to the last run marker when no id is given.
func resolveID(root, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	marker := filepath.Join(root, lastRunFilename)
	content, err := os.ReadFile(marker)
	if err != nil {
		return "", steps.NewSpecificationError("no previous run found under '%s'", root)
	}
	return strings.TrimSpace(string(content)), nil
}

// ID of the run.
func (r *Run) ID() string {
	return r.id
}

// Workdir is the directory holding all plan state of this run.
func (r *Run) Workdir() string {
	return r.workdir
}

// Plans lists the plans of this run.
func (r *Run) Plans() []*Plan {
	return r.plans
}

// FilterPlans narrows the run to plans whose name matches the filter.
func (r *Run) FilterPlans(names []string) {
	r.plans = Filter(r.plans, names)
}

// Go runs every plan through the full pipeline.
func (r *Run) Go(ctx context.Context) error {
	fmt.Println(text.Faint.Sprint(r.workdir))
	for _, p := range r.plans {
		if err := p.InitWorkdir(r.workdir); err != nil {
			return err
		}
		if err := p.Wake(); err != nil {
			return err
		}
		if err := p.Go(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Failed reports whether any plan collected a result that needs attention.
func (r *Run) Failed() bool {
	for _, p := range r.plans {
		if results.Failed(p.ExecuteResults()) {
			return true
		}
	}
	return false
}

// save writes run.yaml and points the last run marker at this run.
func (r *Run) save() error {
	payload, err := yaml.Marshal(r.state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}
	path := filepath.Join(r.workdir, runStateFilename)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return steps.NewFileError(path, err)
	}
	marker := filepath.Join(r.root, lastRunFilename)
	if err := os.WriteFile(marker, []byte(r.id+"\n"), 0o644); err != nil {
		return steps.NewFileError(marker, err)
	}
	return nil
}
