package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// bridge is an HTTP tool bridge holding a fixed tool list. Execute echoes the
// input it received back with the tool name.
type bridge struct {
	mu      sync.Mutex
	tools   []ToolInfo
	status  int
	headers http.Header
	inputs  []string
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.headers = r.Header.Clone()
	if b.status != 0 {
		w.WriteHeader(b.status)
		_, _ = w.Write([]byte("bridge unavailable"))
		return
	}
	path := r.URL.EscapedPath()
	switch {
	case r.Method == http.MethodGet && path == "/tools":
		_ = json.NewEncoder(w).Encode(listToolsResp{Tools: b.tools})
	case r.Method == http.MethodPost && strings.HasPrefix(path, "/tools/") && strings.HasSuffix(path, "/execute"):
		var req execReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.inputs = append(b.inputs, req.Input)
		name := strings.TrimSuffix(strings.TrimPrefix(path, "/tools/"), "/execute")
		_ = json.NewEncoder(w).Encode(execResp{Result: name + " <- " + req.Input})
	default:
		http.NotFound(w, r)
	}
}

func (b *bridge) fail(status int) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()
}

func (b *bridge) seen() (http.Header, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers, append([]string(nil), b.inputs...)
}

func TestClient_BridgeRoundTrip(t *testing.T) {
	b := &bridge{tools: []ToolInfo{
		{Name: "weather", Description: "Current weather", Schema: map[string]any{"type": "object"}},
		{Name: "geo/lookup", Description: "Geocode a place"},
	}}
	srv := httptest.NewServer(b)
	defer srv.Close()

	c := NewClient(ClientConfig{
		BaseURL: srv.URL + "/",
		Headers: map[string]string{"Authorization": "Bearer t0k"},
		Timeout: time.Second,
	})
	ctx := context.Background()

	list, err := c.ListTools(ctx)
	if err != nil || len(list) != 2 || list[1].Name != "geo/lookup" {
		t.Fatalf("list: %v %+v", err, list)
	}
	if h, _ := b.seen(); h.Get("Authorization") != "Bearer t0k" || h.Get("Accept") != "application/json" {
		t.Fatalf("headers not sent: %v", h)
	}

	out, err := c.ExecuteTool(ctx, "geo/lookup", `{"place":"Oslo"}`)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != `geo%2Flookup <- {"place":"Oslo"}` {
		t.Fatalf("exec result %q", out)
	}
	if h, _ := b.seen(); h.Get("Content-Type") != "application/json" {
		t.Fatalf("content type %q", h.Get("Content-Type"))
	}
}

func TestClient_ErrorsCarryStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(&bridge{status: http.StatusBadGateway})
	defer srv.Close()
	c := NewClient(ClientConfig{BaseURL: srv.URL})

	cases := map[string]func() error{
		"list": func() error { _, err := c.ListTools(context.Background()); return err },
		"exec": func() error { _, err := c.ExecuteTool(context.Background(), "x", ""); return err },
	}
	for name, call := range cases {
		err := call()
		if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "bridge unavailable") {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	if _, err := c.ListTools(context.Background()); err == nil {
		t.Fatal("expected timeout")
	}
	if NewClient(ClientConfig{}).client.Timeout != 15*time.Second {
		t.Fatal("default timeout not applied")
	}
}
