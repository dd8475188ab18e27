package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var mandatesCmd = &cobra.Command{
	Use:   "mandates",
	Short: "Inspect mandate chains",
}

var mandatesVerifyCmd = &cobra.Command{
	Use:   "verify <chain-id>",
	Short: "Recompute hash linkage and check signatures for a mandate chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		chainID := args[0]

		a, err := newApp("")
		if err != nil {
			return err
		}

		result, err := a.mandates.Verify(context.Background(), chainID)
		if err != nil {
			return fmt.Errorf("verifying chain %s: %w", chainID, err)
		}
		if result.OK {
			fmt.Printf("chain %s is intact\n", chainID)
			return nil
		}
		fmt.Printf("chain %s failed verification:\n", chainID)
		for _, f := range result.Failures {
			fmt.Printf("  - %s\n", f)
		}
		return fmt.Errorf("chain %s failed verification (%d issue(s))", chainID, len(result.Failures))
	},
}

func init() {
	mandatesCmd.AddCommand(mandatesVerifyCmd)
}
