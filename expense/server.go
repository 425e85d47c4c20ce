package expense

import (
	"context"
	"errors"
	"fmt"
	"os"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KamdynS/agent-contrib/mcp"
	obs "github.com/KamdynS/agent-contrib/observability"
)

// CategoriesURI is the resource holding the category list.
const CategoriesURI = "expense://categories"

type AddArgs struct {
	Date        string  `json:"date" jsonschema:"Expense date, YYYY-MM-DD"`
	Amount      float64 `json:"amount" jsonschema:"Amount spent"`
	Category    string  `json:"category" jsonschema:"Expense category"`
	Subcategory string  `json:"subcategory,omitempty" jsonschema:"Optional subcategory"`
	Note        string  `json:"note,omitempty" jsonschema:"Optional note"`
}

type EditArgs struct {
	ExpenseID   int64    `json:"expense_id" jsonschema:"Id of the expense to edit"`
	Date        *string  `json:"date,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Subcategory *string  `json:"subcategory,omitempty"`
	Note        *string  `json:"note,omitempty"`
}

type DeleteArgs struct {
	ExpenseID int64 `json:"expense_id" jsonschema:"Id of the expense to delete"`
}

type RangeArgs struct {
	StartDate string `json:"start_date" jsonschema:"First date, inclusive"`
	EndDate   string `json:"end_date" jsonschema:"Last date, inclusive"`
}

type SummarizeArgs struct {
	StartDate string `json:"start_date" jsonschema:"First date, inclusive"`
	EndDate   string `json:"end_date" jsonschema:"Last date, inclusive"`
	Category  string `json:"category,omitempty" jsonschema:"Only total this category"`
}

func notFound(id int64) map[string]any {
	return map[string]any{"status": "error", "message": fmt.Sprintf("Expense %d not found", id)}
}

func result(v any) (*sdkmcp.CallToolResult, any, error) {
	res, err := mcp.JSONResult(v)
	return res, nil, err
}

// NewServer exposes store as the ExpenseTracker MCP server. The categories
// resource is read from categoriesPath on every request.
func NewServer(store Store, categoriesPath string) *sdkmcp.Server {
	server := mcp.NewServer("ExpenseTracker", "v1.0.0")
	log := obs.Component("expense")

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "add_expense", Description: "Add a new expense entry to the database."},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddArgs) (*sdkmcp.CallToolResult, any, error) {
			id, err := store.Add(ctx, Expense{Date: in.Date, Amount: in.Amount, Category: in.Category, Subcategory: in.Subcategory, Note: in.Note})
			if err != nil {
				return nil, nil, err
			}
			log.Info().Int64("id", id).Str("category", in.Category).Msg("expense added")
			return result(map[string]any{"status": "ok", "id": id})
		})

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "edit_expense", Description: "Edit an existing expense entry. Only provided fields will be updated."},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in EditArgs) (*sdkmcp.CallToolResult, any, error) {
			n, err := store.Edit(ctx, in.ExpenseID, Update{Date: in.Date, Amount: in.Amount, Category: in.Category, Subcategory: in.Subcategory, Note: in.Note})
			switch {
			case errors.Is(err, ErrNotFound):
				return result(notFound(in.ExpenseID))
			case errors.Is(err, ErrNoFields):
				return result(map[string]any{"status": "error", "message": "No fields provided to update"})
			case err != nil:
				return nil, nil, err
			}
			return result(map[string]any{"status": "ok", "id": in.ExpenseID, "updated_fields": n})
		})

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "delete_expense", Description: "Delete an expense entry by ID."},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in DeleteArgs) (*sdkmcp.CallToolResult, any, error) {
			err := store.Delete(ctx, in.ExpenseID)
			if errors.Is(err, ErrNotFound) {
				return result(notFound(in.ExpenseID))
			}
			if err != nil {
				return nil, nil, err
			}
			return result(map[string]any{"status": "ok", "id": in.ExpenseID, "message": "Expense deleted"})
		})

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "list_expenses", Description: "List expense entries within an inclusive date range."},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in RangeArgs) (*sdkmcp.CallToolResult, any, error) {
			rows, err := store.List(ctx, in.StartDate, in.EndDate)
			if err != nil {
				return nil, nil, err
			}
			return result(rows)
		})

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "summarize", Description: "Summarize expenses by category within an inclusive date range."},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SummarizeArgs) (*sdkmcp.CallToolResult, any, error) {
			rows, err := store.Summarize(ctx, in.StartDate, in.EndDate, in.Category)
			if err != nil {
				return nil, nil, err
			}
			return result(rows)
		})

	server.AddResource(&sdkmcp.Resource{URI: CategoriesURI, Name: "categories", MIMEType: "application/json"},
		func(ctx context.Context, _ *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			b, err := os.ReadFile(categoriesPath)
			if err != nil {
				return nil, fmt.Errorf("read categories: %w", err)
			}
			return &sdkmcp.ReadResourceResult{Contents: []*sdkmcp.ResourceContents{
				{URI: CategoriesURI, MIMEType: "application/json", Text: string(b)},
			}}, nil
		})
	return server
}
