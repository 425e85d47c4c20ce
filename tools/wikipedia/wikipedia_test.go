package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/rest_v1/page/summary/Alan_Turing":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"type":"standard","title":"Alan Turing","extract":"Alan Turing was a mathematician.","content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Alan_Turing"}}}`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/w/index.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "turing enigma codebreaker" {
			_, _ = w.Write([]byte(`<ul><li><div class="mw-search-result-heading"><a href="/wiki/Alan_Turing" title="Alan Turing">Alan <span>Turing</span></a></div></li></ul>`))
			return
		}
		_, _ = w.Write([]byte(`<p class="mw-search-nonefound">There were no results matching the query.</p>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupDirectAndSearchFallback(t *testing.T) {
	srv := newServer(t)
	c := New()
	c.BaseURL = srv.URL

	s, err := c.Lookup(context.Background(), "Alan Turing")
	require.NoError(t, err)
	assert.Equal(t, "Alan Turing", s.Title)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Alan_Turing", s.URL)

	s, err = c.Lookup(context.Background(), "turing enigma codebreaker")
	require.NoError(t, err)
	assert.Equal(t, "Alan Turing was a mathematician.", s.Extract)

	_, err = c.Lookup(context.Background(), "zzqx")
	assert.ErrorIs(t, err, ErrNoArticle)
}

func TestToolOutput(t *testing.T) {
	srv := newServer(t)
	c := New()
	c.BaseURL = srv.URL
	tool := NewTool(c)

	out, err := tool.Execute(context.Background(), `{"query":"Alan Turing"}`)
	require.NoError(t, err)
	assert.Equal(t, "Page: Alan Turing\nSummary: Alan Turing was a mathematician.", out)

	out, err = tool.Execute(context.Background(), `{"query":"zzqx"}`)
	require.NoError(t, err)
	assert.Equal(t, "No good Wikipedia Search Result was found", out)
}
