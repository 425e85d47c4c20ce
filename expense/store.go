// Package expense is a personal expense tracker exposed as an MCP server.
// Rows live in SQLite by default or in Postgres.
package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("expense not found")
	ErrNoFields = errors.New("no fields provided to update")
)

// Expense is one row of the expenses table.
type Expense struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Note        string  `json:"note"`
}

// CategoryTotal is one line of a summary.
type CategoryTotal struct {
	Category    string  `json:"category" db:"category"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`
}

// Update holds the fields of a partial edit. Nil fields are left alone.
type Update struct {
	Date        *string
	Amount      *float64
	Category    *string
	Subcategory *string
	Note        *string
}

// Store persists expenses.
type Store interface {
	Add(ctx context.Context, e Expense) (int64, error)
	// Edit applies u and returns how many fields it set.
	Edit(ctx context.Context, id int64, u Update) (int, error)
	Delete(ctx context.Context, id int64) error
	// List returns rows with start <= date <= end ordered by id.
	List(ctx context.Context, start, end string) ([]Expense, error)
	// Summarize totals amounts per category, optionally for one category.
	Summarize(ctx context.Context, start, end, category string) ([]CategoryTotal, error)
	Close() error
}

// setClauses renders the SET list for u. placeholder maps an argument
// position, starting at 1, to its bind marker.
func setClauses(u Update, placeholder func(int) string) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = "+placeholder(len(args)))
	}
	if u.Date != nil {
		add("date", *u.Date)
	}
	if u.Amount != nil {
		add("amount", *u.Amount)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.Subcategory != nil {
		add("subcategory", *u.Subcategory)
	}
	if u.Note != nil {
		add("note", *u.Note)
	}
	return strings.Join(sets, ", "), args
}

const listColumns = "id, date, amount, category, subcategory, note"

func summaryQuery(category string, placeholder func(int) string) string {
	q := fmt.Sprintf("SELECT category, SUM(amount) AS total_amount FROM expenses WHERE date BETWEEN %s AND %s",
		placeholder(1), placeholder(2))
	if category != "" {
		q += " AND category = " + placeholder(3)
	}
	return q + " GROUP BY category ORDER BY category ASC"
}
