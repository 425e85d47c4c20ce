// Package pgvector stores documents in Postgres using the pgvector extension.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KamdynS/agent-contrib/memory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db    Querier
	table string
}

func New(db Querier, table string) *Store {
	if table == "" {
		table = "documents"
	}
	return &Store{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// EnsureSchema creates the extension and table for dims-sized embeddings.
func (s *Store) EnsureSchema(ctx context.Context, dims int) error {
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector extension: %w", err)
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id text PRIMARY KEY,
  content text NOT NULL,
  embedding vector(%d),
  meta jsonb
)`, s.table, dims))
	return err
}

func (s *Store) AddDocument(ctx context.Context, id string, content string, embedding []float64) error {
	return s.AddDocumentMeta(ctx, id, content, embedding, nil)
}

// AddDocumentMeta upserts a document together with its metadata.
func (s *Store) AddDocumentMeta(ctx context.Context, id, content string, embedding []float64, meta map[string]string) error {
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}
	var metaJSON []byte
	if meta != nil {
		metaJSON, _ = json.Marshal(meta)
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, content, embedding, meta) VALUES ($1, $2, $3::vector, $4)
ON CONFLICT (id) DO UPDATE SET content = excluded.content, embedding = excluded.embedding, meta = excluded.meta`, s.table),
		id, content, Literal(embedding), metaJSON)
	return err
}

// QuerySimilar orders by cosine distance; Score is 1 - distance.
func (s *Store) QuerySimilar(ctx context.Context, queryEmbedding []float64, limit int) ([]memory.Document, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT id, content, coalesce(meta, '{}'::jsonb), 1 - (embedding <=> $1::vector) AS score
FROM %s ORDER BY embedding <=> $1::vector ASC LIMIT $2`, s.table), Literal(queryEmbedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]memory.Document, 0, limit)
	for rows.Next() {
		var doc memory.Document
		var meta []byte
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &doc.Score); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(meta, &doc.Meta)
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table), id)
	return err
}

func (s *Store) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT id, content, embedding::text FROM %s WHERE id = $1", s.table), id)
	var doc memory.Document
	var vec string
	if err := row.Scan(&doc.ID, &doc.Content, &vec); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, memory.ErrNotFound)
		}
		return nil, err
	}
	emb, err := ParseLiteral(vec)
	if err != nil {
		return nil, err
	}
	doc.Embedding = emb
	return &doc, nil
}

// Literal renders v in pgvector's text form, e.g. [0.1,0.2].
func Literal(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseLiteral is the inverse of Literal.
func ParseLiteral(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("invalid vector literal %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float64{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector literal %q: %w", s, err)
		}
		out[i] = f
	}
	return out, nil
}

var _ memory.VectorStore = (*Store)(nil)
