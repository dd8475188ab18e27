package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/store"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <execution-id>",
	Short: "Cancel a running execution",
	Long: `Cancel marks a RUNNING execution CANCELLED in the store. Since agentflow
is a single-shot CLI rather than a resident daemon, cancel cannot signal a
live orchestrator process in another invocation; it acts directly on the
persisted execution record. An orchestrator already running the execution
does not re-read that record and is not stopped by it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		executionID := args[0]

		a, err := newApp("")
		if err != nil {
			return err
		}

		ctx := context.Background()
		exec, err := a.store.LoadExecution(ctx, executionID)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("no execution %s", executionID)
			}
			return fmt.Errorf("loading execution: %w", err)
		}
		if exec.Status.IsTerminal() {
			return fmt.Errorf("execution %s is already %s", executionID, exec.Status)
		}

		now := a.clock.Now()
		status := model.ExecutionCancelled
		reason := &model.FailureReason{Kind: "Cancelled", Message: "cancelled via agentflow cancel"}
		if err := a.store.UpdateExecution(ctx, executionID, store.ExecutionPatch{
			Status:        &status,
			EndedAt:       &now,
			FailureReason: reason,
		}); err != nil {
			return fmt.Errorf("persisting cancellation: %w", err)
		}

		fmt.Printf("execution %s cancelled\n", executionID)
		return nil
	},
}
