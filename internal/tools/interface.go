// Package tools defines the read-only database tools the sale analyst can
// invoke during a conversation. Each tool satisfies both this package's
// DBTool interface and Eino's tool.InvokableTool interface so they can be
// registered directly with a ReAct agent.
package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"

	"github.com/billshop/shopai-go/internal/catalog"
)

// DBTool is the interface that all database tools satisfy. It extends the
// Eino tool contract with Name and Description accessors so the agent can
// log tool calls without type assertions.
type DBTool interface {
	tool.InvokableTool

	// Name returns the unique tool name registered with the agent.
	Name() string

	// Description returns the text sent to the LLM as part of the tool schema.
	Description() string
}

// Catalog is the part of catalog.Store the tools read. Abstracting it lets
// tests inject a fake without a database.
type Catalog interface {
	Tables() []string
	Describe(ctx context.Context, table string) (string, error)
	Query(ctx context.Context, query string, maxRows int) (*catalog.QueryResult, error)
}

// All returns the full read-only tool set over cat, in the order the model
// is expected to use them.
func All(cat Catalog) []tool.BaseTool {
	return []tool.BaseTool{
		NewListTablesTool(cat),
		NewSchemaTool(cat),
		NewQueryTool(cat, DefaultMaxRows),
	}
}
