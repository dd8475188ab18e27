// Command agentflow is the reference CLI for the agentic workflow
// orchestrator: author workflows as YAML, run them to completion against
// an in-memory or Redis-backed store, inspect tool and mandate state.
package main

import (
	"fmt"
	"os"

	"github.com/meowstack/agentflow/cmd/agentflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
