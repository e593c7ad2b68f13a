package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// SchemaTool describes the columns and sample rows of named tables.
type SchemaTool struct {
	cat Catalog
}

type schemaInput struct {
	// TableNames is a comma-separated list, e.g. "product, category".
	TableNames string `json:"table_names"`
}

// NewSchemaTool constructs a SchemaTool.
func NewSchemaTool(cat Catalog) *SchemaTool {
	return &SchemaTool{cat: cat}
}

// Name returns the tool name registered with the agent.
func (t *SchemaTool) Name() string { return "sql_db_schema" }

// Description returns the LLM-facing description of this tool.
func (t *SchemaTool) Description() string {
	return "Returns the columns and a few sample rows for each of the given tables. " +
		"Make sure the tables exist by calling sql_db_list_tables first."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *SchemaTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"table_names": {
				Type:     schema.String,
				Desc:     "Comma-separated list of table names, for example: product, category",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun describes every requested table. Unknown tables are reported
// in the output rather than failing the call, so the model can correct itself.
func (t *SchemaTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input schemaInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("sql_db_schema: invalid input: %w", err)
	}

	var parts []string
	for _, name := range strings.Split(input.TableNames, ",") {
		name = strings.Trim(strings.TrimSpace(name), "`\"")
		if name == "" {
			continue
		}
		desc, err := t.cat.Describe(ctx, name)
		if err != nil {
			parts = append(parts, fmt.Sprintf("Error: %v", err))
			continue
		}
		parts = append(parts, desc)
	}
	if len(parts) == 0 {
		return "Error: table_names is empty. Call sql_db_list_tables to see the available tables.", nil
	}
	return strings.Join(parts, "\n\n"), nil
}
