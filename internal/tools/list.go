package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// ListTablesTool reports the tables the analyst may query.
type ListTablesTool struct {
	cat Catalog
}

// NewListTablesTool constructs a ListTablesTool.
func NewListTablesTool(cat Catalog) *ListTablesTool {
	return &ListTablesTool{cat: cat}
}

// Name returns the tool name registered with the agent.
func (t *ListTablesTool) Name() string { return "sql_db_list_tables" }

// Description returns the LLM-facing description of this tool.
func (t *ListTablesTool) Description() string {
	return "Returns a comma-separated list of the tables in the shop database. " +
		"Call this first, then sql_db_schema on the tables that look relevant."
}

// Info returns the Eino tool metadata. The tool takes no parameters.
func (t *ListTablesTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

// InvokableRun ignores its input and lists the allowed tables.
func (t *ListTablesTool) InvokableRun(_ context.Context, _ string, _ ...tool.Option) (string, error) {
	return strings.Join(t.cat.Tables(), ", "), nil
}
