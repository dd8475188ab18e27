package tools

import (
	"fmt"

	"github.com/meowstack/agentflow/internal/model"
	"github.com/meowstack/agentflow/internal/registry"
)

type databaseQueryTool struct {
	db QueryExecer
}

// NewDatabaseQuery returns the database_query tool. The query itself runs
// through the caller's QueryExecer (backed by a *pgxpool.Pool in a real
// deployment); a nil db makes every invocation fail with a clear error
// rather than a nil-pointer panic.
func NewDatabaseQuery(db QueryExecer) registry.Tool {
	return databaseQueryTool{db: db}
}

func (t databaseQueryTool) Meta() model.ToolMeta {
	return model.ToolMeta{
		ToolID:      "database_query",
		Description: "Runs a parameterized SQL query and returns matching rows.",
		Idempotent:  true,
		ParamSchema: []model.ParamSpec{
			stringParam("query", true),
			{Name: "args", Type: model.ParamArray, Required: false},
		},
	}
}

func (t databaseQueryTool) Execute(params map[string]any, runCtx registry.RunContext) (any, error) {
	if t.db == nil {
		return nil, fmt.Errorf("database_query: no database configured")
	}
	query, err := requireString(params, "query")
	if err != nil {
		return nil, err
	}

	var args []any
	if raw, ok := params["args"].([]any); ok {
		args = raw
	}

	rows, err := t.db.QueryRows(runCtx.Context, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database_query: %w", err)
	}
	return map[string]any{"rows": rows, "count": len(rows)}, nil
}
