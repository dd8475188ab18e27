package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagWorkdir string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "agentflow",
	Short: "Run and inspect agentic workflow executions",
	Long: `agentflow drives workflows through the agent orchestrator: validate a
workflow document, run it end to end against a tool registry, and inspect
the executions, mandates, and tools it produced along the way.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkdir, "workdir", "C", ".", "project directory (holds .agentflow/config.toml and state)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.SetVersionTemplate("agentflow version {{.Version}}\n")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(mandatesCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
