package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meowstack/agentflow/internal/engine"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
	"github.com/meowstack/agentflow/internal/tools"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Check a workflow document against the engine's validation rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		wf, err := loadWorkflow(args[0])
		if err != nil {
			return err
		}
		return printValidation(wf, true)
	},
}

// newWorkflowEngine builds a standalone engine.Engine backed by the full
// built-in tool registry, for commands (validate, run --dry-run) that
// only need validation/ordering rather than the full app.
func newWorkflowEngine() (*engine.Engine, error) {
	reg := registry.New()
	if err := tools.RegisterBuiltins(reg, tools.Dependencies{}); err != nil {
		return nil, fmt.Errorf("registering built-in tools: %w", err)
	}
	return engine.New(reg.IsIdempotent), nil
}

// printValidation validates and, if requested, orders wf, printing
// warnings/errors/the step order the way both `validate` and
// `run --dry-run` report them. It returns an error when the workflow is
// invalid or ordering fails.
func printValidation(wf *model.Workflow, printOrder bool) error {
	eng, err := newWorkflowEngine()
	if err != nil {
		return err
	}

	result := eng.Validate(wf)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %s\n", e)
	}
	if !result.OK {
		return fmt.Errorf("workflow %s is invalid (%d error(s))", wf.ID, len(result.Errors))
	}
	if !printOrder {
		fmt.Printf("%s is valid\n", wf.ID)
		return nil
	}

	order, err := eng.Order(wf)
	if err != nil {
		return fmt.Errorf("ordering workflow: %w", err)
	}
	fmt.Printf("%s is valid, %d step(s): %v\n", wf.ID, len(order.Sequence), order.Sequence)
	return nil
}
