package expense

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS expenses(
	id BIGSERIAL PRIMARY KEY,
	date TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	category TEXT NOT NULL,
	subcategory TEXT DEFAULT '',
	note TEXT DEFAULT ''
)`

// PostgresStore keeps expenses in Postgres.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func pgPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

// OpenPostgres connects to dsn and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create expenses table: %w", err)
	}
	return &PostgresStore{Pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(ctx,
		"INSERT INTO expenses(date, amount, category, subcategory, note) VALUES ($1,$2,$3,$4,$5) RETURNING id",
		e.Date, e.Amount, e.Category, e.Subcategory, e.Note).Scan(&id)
	return id, err
}

func (s *PostgresStore) exists(ctx context.Context, id int64) error {
	var found int64
	err := s.Pool.QueryRow(ctx, "SELECT id FROM expenses WHERE id = $1", id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) Edit(ctx context.Context, id int64, u Update) (int, error) {
	if err := s.exists(ctx, id); err != nil {
		return 0, err
	}
	sets, args := setClauses(u, pgPlaceholder)
	if len(args) == 0 {
		return 0, ErrNoFields
	}
	q := fmt.Sprintf("UPDATE expenses SET %s WHERE id = %s", sets, pgPlaceholder(len(args)+1))
	if _, err := s.Pool.Exec(ctx, q, append(args, id)...); err != nil {
		return 0, err
	}
	return len(args), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	_, err := s.Pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1", id)
	return err
}

func (s *PostgresStore) List(ctx context.Context, start, end string) ([]Expense, error) {
	rows, err := s.Pool.Query(ctx,
		"SELECT "+listColumns+" FROM expenses WHERE date BETWEEN $1 AND $2 ORDER BY id ASC", start, end)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Expense, error) {
		var e Expense
		err := row.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Subcategory, &e.Note)
		return e, err
	})
	if out == nil {
		out = []Expense{}
	}
	return out, err
}

func (s *PostgresStore) Summarize(ctx context.Context, start, end, category string) ([]CategoryTotal, error) {
	args := []any{start, end}
	if category != "" {
		args = append(args, category)
	}
	rows, err := s.Pool.Query(ctx, summaryQuery(category, pgPlaceholder), args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[CategoryTotal])
	if out == nil {
		out = []CategoryTotal{}
	}
	return out, err
}

var _ Store = (*PostgresStore)(nil)
