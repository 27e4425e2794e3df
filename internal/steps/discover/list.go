package discover

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/schemas"
	"gauntlet/internal/steps"
	"gauntlet/internal/tests"
	"gauntlet/pkg/logging"
)

// listPlugin serves tests defined inline in the discover configuration:
//
//	discover:
//	    how: list
//	    tests:
//	      - name: /smoke/true
//	        test: "true"
type listPlugin struct {
	steps.BasePlugin
	validator *schemas.Validator
	found     []tests.Test
}

func init() {
	Register(steps.Method[Plugin]{
		Name:    "list",
		Summary: "Use tests listed inline in the plan",
		Order:   50,
		New: func(plan steps.Plan, data steps.StepData) (Plugin, error) {
			validator, err := schemas.NewValidator()
			if err != nil {
				return nil, err
			}
			return &listPlugin{
				BasePlugin: steps.NewBasePlugin(plan, "list", data),
				validator:  validator,
			}, nil
		},
	})
}

func (p *listPlugin) Go(ctx context.Context) error {
	raw, ok := p.Data()["tests"]
	if !ok {
		logging.Debug("Discover", "phase '%s' lists no tests", p.Name())
		return nil
	}
	records, ok := raw.([]interface{})
	if !ok {
		return steps.NewSpecificationError("phase '%s': tests must be a list", p.Name())
	}

	p.found = nil
	for index, record := range records {
		if err := p.validator.ValidateTest(record); err != nil {
			return &steps.SpecificationError{
				Message: fmt.Sprintf("phase '%s': test %d is invalid", p.Name(), index),
				Err:     err,
			}
		}
		test, err := decodeTest(record)
		if err != nil {
			return steps.NewSpecificationError(
				"phase '%s': test %d: %v", p.Name(), index, err)
		}
		if err := test.Normalize(); err != nil {
			return steps.NewSpecificationError("phase '%s': %v", p.Name(), err)
		}
		p.found = append(p.found, test)
	}
	return nil
}

func (p *listPlugin) Tests() []tests.Test {
	return p.found
}

// decodeTest converts a raw record into a Test through a YAML round trip,
// which applies the same field handling the tree method gets from files.
func decodeTest(record interface{}) (tests.Test, error) {
	var test tests.Test
	payload, err := yaml.Marshal(record)
	if err != nil {
		return test, fmt.Errorf("unreadable test record: %w", err)
	}
	if err := yaml.Unmarshal(payload, &test); err != nil {
		return test, fmt.Errorf("malformed test record: %w", err)
	}
	return test, nil
}
