// Package steps provides the shared machinery of the gauntlet run pipeline.
//
// A plan moves through six steps in a fixed order:
//
//	discover -> provision -> prepare -> execute -> report -> finish
//
// Each step owns a list of raw configuration records (StepData) taken from
// the plan. Waking up a step resolves every record into a phase: an instance
// of the plugin implementing the method the record selects through its "how"
// key. The step families keep their own registries, so a new method becomes
// available by registering a constructor in an init function.
//
// # Lifecycle
//
// Steps progress through three states:
//
//	unset --wake--> todo --go--> done
//
// Wake resolves phases and restores persisted state, Go performs the work,
// and both Save their outcome into the step workdir as step.yaml. A step
// that is already done re-emits its summary and does nothing else, which is
// what makes interrupted runs safe to resume.
//
// # Ownership
//
// The plan constructs and owns the steps. Steps reach back to the plan only
// through the narrow Plan interface, which keeps the dependency one-way:
// phases can ask the plan for guests, tests or accumulated results without
// holding the plan itself.
//
// # Errors
//
// Three error kinds matter to callers: SpecificationError for invalid
// configuration (always fatal before execution), ExecuteError when execution
// cannot proceed at all, and FileError for workdir I/O failures. Everything
// recorded per test travels as a result, not as an error.
package steps
