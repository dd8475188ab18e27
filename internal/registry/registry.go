package registry

import (
	"fmt"
	"sync"

	"github.com/meowstack/agentflow/internal/errors"
	"github.com/meowstack/agentflow/internal/model"
)

// Registry is the ToolRegistry: a typed dispatch table mapping toolId to
// Tool. It holds no execution state beyond registration and is safe for
// concurrent use.
type Registry struct {
	mu sync.RWMutex

	tools []Tool // preserves insertion order for List
	byID  map[string]Tool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byID: make(map[string]Tool)}
}

// Register adds tool under its declared toolId. Registering a duplicate
// toolId returns a ToolConflict error; the existing registration is left
// untouched.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := tool.Meta().ToolID
	if id == "" {
		return fmt.Errorf("registry: tool has empty ToolID")
	}
	if _, exists := r.byID[id]; exists {
		return errors.ToolConflict(id)
	}
	r.byID[id] = tool
	r.tools = append(r.tools, tool)
	return nil
}

// Get returns the tool registered under toolID, or a ToolNotFound error.
func (r *Registry) Get(toolID string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.byID[toolID]
	if !ok {
		return nil, errors.ToolNotFound(toolID)
	}
	return tool, nil
}

// List returns every registered tool's metadata, stable by insertion order.
func (r *Registry) List() []model.ToolMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.ToolMeta, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Meta())
	}
	return out
}

// IsIdempotent reports whether toolID is registered and, if so, whether
// it declares itself idempotent. Wired into engine.New's idempotency
// lookup for the non-idempotent-retry validation warning.
func (r *Registry) IsIdempotent(toolID string) (isIdempotent bool, known bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.byID[toolID]
	if !ok {
		return false, false
	}
	return tool.Meta().Idempotent, true
}

// ValidateParameters checks params against toolID's declared schema:
// required fields present, types compatible, and enum membership where
// declared. Returns a slice of human-readable problems; a nil/empty
// slice means params are valid.
func (r *Registry) ValidateParameters(toolID string, params map[string]any) ([]string, error) {
	tool, err := r.Get(toolID)
	if err != nil {
		return nil, err
	}
	meta := tool.Meta()

	var problems []string
	for _, spec := range meta.ParamSchema {
		val, present := params[spec.Name]
		if !present {
			if spec.Required && spec.Default == nil {
				problems = append(problems, fmt.Sprintf("missing required parameter %q", spec.Name))
			}
			continue
		}
		if problem := checkType(spec, val); problem != "" {
			problems = append(problems, problem)
		}
	}
	return problems, nil
}

func checkType(spec model.ParamSpec, val any) string {
	switch spec.Type {
	case model.ParamString:
		if _, ok := val.(string); !ok {
			return fmt.Sprintf("parameter %q must be a string, got %T", spec.Name, val)
		}
	case model.ParamNumber:
		switch val.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Sprintf("parameter %q must be a number, got %T", spec.Name, val)
		}
	case model.ParamBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Sprintf("parameter %q must be a boolean, got %T", spec.Name, val)
		}
	case model.ParamObject:
		if _, ok := val.(map[string]any); !ok {
			return fmt.Sprintf("parameter %q must be an object, got %T", spec.Name, val)
		}
	case model.ParamArray:
		if _, ok := val.([]any); !ok {
			return fmt.Sprintf("parameter %q must be an array, got %T", spec.Name, val)
		}
	}
	return ""
}
