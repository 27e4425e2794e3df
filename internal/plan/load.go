package plan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/schemas"
	"gauntlet/internal/steps"
	"gauntlet/pkg/logging"
)

// planSpec is the parsed form of one plan file.
type planSpec struct {
	Name        string            `yaml:"name"`
	Summary     string            `yaml:"summary"`
	Environment map[string]string `yaml:"environment"`
	Discover    stepConfig        `yaml:"discover"`
	Provision   stepConfig        `yaml:"provision"`
	Prepare     stepConfig        `yaml:"prepare"`
	Execute     stepConfig        `yaml:"execute"`
	Report      stepConfig        `yaml:"report"`
	Finish      stepConfig        `yaml:"finish"`
}

// stepConfig accepts the two forms a plan may use to configure a step: a
// single mapping or a list of them.
type stepConfig []steps.StepData

func (c *stepConfig) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var record map[string]interface{}
		if err := value.Decode(&record); err != nil {
			return err
		}
		*c = stepConfig{steps.StepData(record)}
	case yaml.SequenceNode:
		var records []map[string]interface{}
		if err := value.Decode(&records); err != nil {
			return err
		}
		*c = nil
		for _, record := range records {
			*c = append(*c, steps.StepData(record))
		}
	default:
		return fmt.Errorf("step configuration must be a mapping or a list of mappings")
	}
	return nil
}

// Load reads and validates one plan file. The name derives from the path
// of the file under dir unless the file carries an explicit name.
func Load(path, dir, sourceDir string, options Options, validator *schemas.Validator) (*Plan, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, steps.NewFileError(path, err)
	}
	if err := validator.ValidatePlan(payload); err != nil {
		return nil, &steps.SpecificationError{
			Message: fmt.Sprintf("plan '%s' is not valid", path),
			Err:     err,
		}
	}
	var spec planSpec
	if err := yaml.Unmarshal(payload, &spec); err != nil {
		return nil, &steps.SpecificationError{
			Message: fmt.Sprintf("failed to parse plan '%s'", path),
			Err:     err,
		}
	}

	name := spec.Name
	if name == "" {
		name = nameFromPath(path, dir)
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	logging.Debug("Plan", "loaded plan '%s' from '%s'", name, path)
	return newPlan(name, spec, sourceDir, options), nil
}

// LoadAll finds every plan file under dir, validates it and wires it up.
// Plans come back sorted by name.
func LoadAll(dir, sourceDir string, options Options) ([]*Plan, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, steps.NewSpecificationError("plans directory '%s' not found", dir)
	}
	validator, err := schemas.NewValidator()
	if err != nil {
		return nil, err
	}

	var plans []*Plan
	byName := make(map[string]string)
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(entry.Name())
		if (ext != ".yaml" && ext != ".yml") || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		loaded, err := Load(path, dir, sourceDir, options, validator)
		if err != nil {
			return err
		}
		if previous, taken := byName[loaded.Name()]; taken {
			return steps.NewSpecificationError(
				"plan name '%s' used by both '%s' and '%s'", loaded.Name(), previous, path)
		}
		byName[loaded.Name()] = path
		plans = append(plans, loaded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].Name() < plans[j].Name() })
	return plans, nil
}

// Filter keeps the plans whose name contains any of the given names. An
// empty filter keeps everything.
func Filter(plans []*Plan, names []string) []*Plan {
	if len(names) == 0 {
		return plans
	}
	var kept []*Plan
	for _, p := range plans {
		for _, name := range names {
			if strings.Contains(p.Name(), name) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}

// nameFromPath derives the plan name from its file location under the
// plans directory.
func nameFromPath(path, dir string) string {
	relative, err := filepath.Rel(dir, path)
	if err != nil {
		relative = filepath.Base(path)
	}
	stem := strings.TrimSuffix(relative, filepath.Ext(relative))
	return "/" + filepath.ToSlash(stem)
}
