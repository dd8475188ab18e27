package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meowstack/agentflow/internal/eventbus"
	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/status"
)

var (
	flagAgentID  string
	flagTenantID string
	flagVars     []string
	flagVarsJSON string
	flagDryRun   bool
	flagTrace    string
	flagTail     bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file>",
	Short: "Validate and run a workflow to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		wf, err := loadWorkflow(args[0])
		if err != nil {
			return err
		}

		vars, err := parseVariables(flagVars, flagVarsJSON)
		if err != nil {
			return err
		}

		if flagDryRun {
			return printValidation(wf, true)
		}

		a, err := newApp(flagTrace)
		if err != nil {
			return err
		}

		tenantID := flagTenantID
		if tenantID == "" {
			tenantID = wf.TenantID
		}

		var tailDone chan struct{}
		var unsubscribe func()
		if flagTail {
			tailDone, unsubscribe = tailEvents(c, a.bus, flagAgentID)
		}

		exec, err := a.orch.Execute(context.Background(), wf, flagAgentID, tenantID, model.ExecutionContext{}, vars)

		if unsubscribe != nil {
			unsubscribe()
			<-tailDone
		}

		if exec != nil {
			fmt.Println(status.FormatExecution(status.NewExecutionSummary(exec), status.FormatOptions{}))
		}
		if err != nil {
			return fmt.Errorf("execution failed to start: %w", err)
		}
		if exec.Status != model.ExecutionCompleted {
			return fmt.Errorf("execution %s ended in status %s", exec.ExecutionID, exec.Status)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagAgentID, "agent-id", "cli-agent", "agent id the execution runs under")
	runCmd.Flags().StringVar(&flagTenantID, "tenant-id", "", "tenant id (defaults to the workflow's own tenant_id)")
	runCmd.Flags().StringArrayVar(&flagVars, "var", nil, "initial variable as key=value, may be repeated")
	runCmd.Flags().StringVar(&flagVarsJSON, "var-json", "", "initial variables as a JSON object, merged under --var")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "validate the workflow without executing it")
	runCmd.Flags().StringVar(&flagTrace, "trace", "", "directory to write a trace.jsonl of every orchestrator event")
	runCmd.Flags().BoolVar(&flagTail, "tail", true, "print step/execution events to stderr as they're published")
}

// tailEvents subscribes to agentID's event stream and prints each event to
// the command's error stream as it arrives, for the duration of one run
// invocation. The returned channel closes once the subscription has been
// torn down and every buffered event drained, so the caller can wait for it
// before printing its own final summary.
func tailEvents(c *cobra.Command, bus eventbus.EventBus, agentID string) (done chan struct{}, unsubscribe func()) {
	events, unsub := bus.Subscribe(agentID, "")
	done = make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.Kind {
			case eventbus.StepUpdate:
				fmt.Fprintf(c.ErrOrStderr(), "  [%s] step %s: %s (attempt %d)\n", ev.ExecutionID, ev.StepID, ev.Status, ev.Attempts)
			default:
				fmt.Fprintf(c.ErrOrStderr(), "  [%s] %s\n", ev.ExecutionID, ev.Kind)
			}
		}
	}()
	return done, unsub
}

// parseVariables merges --var-json (if any) with --var key=value pairs,
// the latter taking precedence since they're the more specific override.
func parseVariables(pairs []string, rawJSON string) (map[string]any, error) {
	vars := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &vars); err != nil {
			return nil, fmt.Errorf("parsing --var-json: %w", err)
		}
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--var %q is not in key=value form", pair)
		}
		vars[k] = v
	}
	return vars, nil
}
