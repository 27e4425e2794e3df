package discover

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/schemas"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

// treePlugin walks a directory of YAML test metadata, one test per file.
// The file path below the root becomes the test name, so tests/smoke.yaml
// turns into /tests/smoke. Sources are copied into the step workdir so the
// run keeps executing the same snapshot even when the tree changes.
type treePlugin struct {
	steps.BasePlugin
	found []tests.Test
}

func init() {
	Register(steps.Method[Plugin]{
		Name:    "tree",
		Summary: "Walk a directory tree of test metadata files",
		Order:   60,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			return &treePlugin{
				BasePlugin: steps.NewBasePlugin(plan, "tree", data),
			}, nil
		},
	})
}

func (p *treePlugin) Go(ctx context.Context) error {
	root := "."
	if configured, ok := p.Data().String("root"); ok && configured != "" {
		root = configured
	}
	treeRoot := filepath.Join(p.Plan().SourceDir(), root)

	found, err := Scan(treeRoot, p.Data().StringList("names"))
	if err != nil {
		return err
	}
	p.found = found

	if len(p.found) == 0 {
		logging.Warn("Discover", "no tests found under '%s'", treeRoot)
		return nil
	}

	// Snapshot the sources next to the discovered metadata.
	if err := copyTree(treeRoot, p.Plan().DiscoverWorkdir()); err != nil {
		return steps.NewFileError(p.Plan().DiscoverWorkdir(), err)
	}
	return nil
}

func (p *treePlugin) Tests() []tests.Test {
	return p.found
}

// Scan walks a tree of test metadata files below root and returns the tests
// found, optionally filtered by name regexps. Used by the tree method and by
// the tests listing command.
func Scan(root string, names []string) ([]tests.Test, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, steps.NewSpecificationError("tree root '%s' is not a directory", root)
	}
	validator, err := schemas.NewValidator()
	if err != nil {
		return nil, err
	}
	filters, err := compileFilters(names)
	if err != nil {
		return nil, steps.NewSpecificationError("%v", err)
	}

	var found []tests.Test
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != root {
				return fs.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(entry.Name())
		if (ext != ".yaml" && ext != ".yml") || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		test, err := readTest(validator, path, relative)
		if err != nil {
			return err
		}
		if !matchesAny(filters, test.Name) {
			logging.Debug("Discover", "test '%s' filtered out", test.Name)
			return nil
		}
		found = append(found, test)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// readTest loads and validates one metadata file. The relative file path
// provides the test name and the default execution path.
func readTest(validator *schemas.Validator, path, relative string) (tests.Test, error) {
	var test tests.Test

	payload, err := os.ReadFile(path)
	if err != nil {
		return test, steps.NewFileError(path, err)
	}
	if err := validator.ValidateTest(payload); err != nil {
		return test, &steps.SpecificationError{
			Message: fmt.Sprintf("invalid test metadata in '%s'", path),
			Err:     err,
		}
	}
	if err := yaml.Unmarshal(payload, &test); err != nil {
		return test, steps.NewSpecificationError("malformed test metadata in '%s'", path)
	}

	stem := strings.TrimSuffix(relative, filepath.Ext(relative))
	if test.Name == "" {
		test.Name = "/" + filepath.ToSlash(stem)
	}
	if test.Path == "" {
		if dir := filepath.Dir(relative); dir != "." {
			test.Path = dir
		}
	}
	if err := test.Normalize(); err != nil {
		return test, steps.NewSpecificationError("%v (from '%s')", err, path)
	}
	return test, nil
}

func compileFilters(patterns []string) ([]*regexp.Regexp, error) {
	var filters []*regexp.Regexp
	for _, pattern := range patterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid name filter '%s': %w", pattern, err)
		}
		filters = append(filters, compiled)
	}
	return filters, nil
}

func matchesAny(filters []*regexp.Regexp, name string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, filter := range filters {
		if filter.MatchString(name) {
			return true
		}
	}
	return false
}

// copyTree mirrors a directory into dst, keeping file modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, relative)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	target, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer target.Close()

	_, err = io.Copy(target, source)
	return err
}
