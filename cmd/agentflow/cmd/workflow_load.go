package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/meowstack/agentflow/internal/model"
)

// loadWorkflow reads a YAML workflow document from path (resolved against
// the project workdir if relative) into a model.Workflow. It does not
// validate the graph; callers run it through engine.Validate themselves so
// `validate` and `run` can report the same errors the same way.
func loadWorkflow(path string) (*model.Workflow, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(flagWorkdir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	var wf model.Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parsing workflow file %s: %w", path, err)
	}
	return &wf, nil
}
