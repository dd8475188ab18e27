package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the built-in tool registry",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered tool and its metadata",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "TOOL ID\tIDEMPOTENT\tROLLBACK\tDESCRIPTION")
		for _, meta := range a.registry.List() {
			fmt.Fprintf(w, "%s\t%v\t%v\t%s\n", meta.ToolID, meta.Idempotent, meta.SupportsRollback, meta.Description)
		}
		return w.Flush()
	},
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
}
