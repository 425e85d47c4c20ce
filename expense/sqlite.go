package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS expenses(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	amount REAL NOT NULL,
	category TEXT NOT NULL,
	subcategory TEXT DEFAULT '',
	note TEXT DEFAULT ''
)`

// SQLiteStore keeps expenses in a SQLite file.
type SQLiteStore struct {
	DB *sql.DB
}

func sqlitePlaceholder(int) string { return "?" }

// OpenSQLite opens path and creates the table if needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create expenses table: %w", err)
	}
	return &SQLiteStore{DB: db}, nil
}

func (s *SQLiteStore) Close() error { return s.DB.Close() }

func (s *SQLiteStore) Add(ctx context.Context, e Expense) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO expenses(date, amount, category, subcategory, note) VALUES (?,?,?,?,?)",
		e.Date, e.Amount, e.Category, e.Subcategory, e.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) exists(ctx context.Context, id int64) error {
	var found int64
	err := s.DB.QueryRowContext(ctx, "SELECT id FROM expenses WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *SQLiteStore) Edit(ctx context.Context, id int64, u Update) (int, error) {
	if err := s.exists(ctx, id); err != nil {
		return 0, err
	}
	sets, args := setClauses(u, sqlitePlaceholder)
	if len(args) == 0 {
		return 0, ErrNoFields
	}
	if _, err := s.DB.ExecContext(ctx, "UPDATE expenses SET "+sets+" WHERE id = ?", append(args, id)...); err != nil {
		return 0, err
	}
	return len(args), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, start, end string) ([]Expense, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+listColumns+" FROM expenses WHERE date BETWEEN ? AND ? ORDER BY id ASC", start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Subcategory, &e.Note); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Summarize(ctx context.Context, start, end, category string) ([]CategoryTotal, error) {
	args := []any{start, end}
	if category != "" {
		args = append(args, category)
	}
	rows, err := s.DB.QueryContext(ctx, summaryQuery(category, sqlitePlaceholder), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategoryTotal{}
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
