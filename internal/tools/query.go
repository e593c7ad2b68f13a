package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/billshop/shopai-go/internal/sqlguard"
)

// DefaultMaxRows caps the rows returned to the model per query.
const DefaultMaxRows = 100

// QueryTool runs a read-only SELECT chosen by the model.
type QueryTool struct {
	cat     Catalog
	maxRows int
}

type queryInput struct {
	Query string `json:"query"`
}

// NewQueryTool constructs a QueryTool returning at most maxRows rows.
func NewQueryTool(cat Catalog, maxRows int) *QueryTool {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &QueryTool{cat: cat, maxRows: maxRows}
}

// Name returns the tool name registered with the agent.
func (t *QueryTool) Name() string { return "sql_db_query" }

// Description returns the LLM-facing description of this tool.
func (t *QueryTool) Description() string {
	return "Runs a single read-only SELECT against the shop database and returns the rows. " +
		"If the query is rejected or fails, an error message is returned; rewrite the query and try again. " +
		"Statements that modify data are always rejected."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *QueryTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "A detailed and correct SQL SELECT statement.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun vets the statement and runs it. Guard rejections and database
// errors go back to the model as text so it can retry; only malformed tool
// input is a Go error.
func (t *QueryTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input queryInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("sql_db_query: invalid input: %w", err)
	}

	q, err := sqlguard.Check(sqlguard.StripFences(input.Query), t.cat.Tables())
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	res, err := t.cat.Query(ctx, q, t.maxRows)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	return res.Format(), nil
}
