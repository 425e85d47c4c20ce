package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestEmbedSuccessAndErrors(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2,3]}]}`))
	}))
	defer good.Close()

	c, err := NewClient(Config{APIKey: "k", Timeout: time.Second, BaseURL: good.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	vec, err := c.Embed(context.Background(), "hi", "")
	if err != nil || len(vec) != 3 || vec[2] != 3 {
		t.Fatalf("embed good: %v %v", err, vec)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer empty.Close()
	c, _ = NewClient(Config{APIKey: "k", Timeout: time.Second, BaseURL: empty.URL})
	if _, err := c.Embed(context.Background(), "hi", ""); err == nil {
		t.Fatalf("expected error for empty data")
	}

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer denied.Close()
	c, _ = NewClient(Config{APIKey: "k", Timeout: time.Second, BaseURL: denied.URL})
	if _, err := c.Embed(context.Background(), "hi", ""); err == nil {
		t.Fatalf("expected auth error")
	}
}
