package pgvector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/KamdynS/agent-contrib/memory"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestLiteralRoundTrip(t *testing.T) {
	in := []float64{0.1, -2, 3.5e-7}
	lit := Literal(in)
	if lit != "[0.1,-2,3.5e-07]" {
		t.Fatalf("unexpected literal %s", lit)
	}
	out, err := ParseLiteral(lit)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("mismatch at %d: %v vs %v", i, in[i], out[i])
		}
	}
	if _, err := ParseLiteral("0.1,0.2"); err == nil {
		t.Fatalf("expected error for missing brackets")
	}
	if v, err := ParseLiteral("[]"); err != nil || len(v) != 0 {
		t.Fatalf("empty literal: %v %v", v, err)
	}
}

func TestVectorContract_PgVector(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("connect: %v", err)
	}
	defer pool.Close()

	s := New(pool, "agent_contrib_test_docs")
	if err := s.EnsureSchema(ctx, 2); err != nil {
		t.Skipf("schema: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.Exec(ctx, "DROP TABLE IF EXISTS agent_contrib_test_docs") })

	if err := s.AddDocumentMeta(ctx, "d1", "hello", []float64{0.1, 0.2}, map[string]string{"src": "t"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	doc, err := s.GetDocument(ctx, "d1")
	if err != nil || len(doc.Embedding) != 2 {
		t.Fatalf("get: %v %+v", err, doc)
	}
	res, err := s.QuerySimilar(ctx, []float64{0.1, 0.2}, 3)
	if err != nil || len(res) != 1 || res[0].Meta["src"] != "t" {
		t.Fatalf("query: %v %+v", err, res)
	}
	_ = s.DeleteDocument(ctx, "d1")
	if _, err := s.GetDocument(ctx, "d1"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
