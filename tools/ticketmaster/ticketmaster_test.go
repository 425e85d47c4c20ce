package ticketmaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchParamsAndMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("apikey"))
		assert.Equal(t, "Paris", q.Get("city"))
		assert.Equal(t, "FR", q.Get("countryCode"))
		assert.Equal(t, "20", q.Get("size"))
		assert.Equal(t, "music,jazz", q.Get("keyword"))
		assert.Equal(t, "2025-03-19T00:00:00Z", q.Get("startDateTime"))
		_, _ = w.Write([]byte(`{"_embedded":{"events":[
			{"name":"Jazz Night","url":"https://tm/1","dates":{"start":{"localDate":"2025-03-19"}},"_embedded":{"venues":[{"name":"Olympia"}]}},
			{"name":"Quiet Set","dates":{"start":{"localDate":"2025-03-20"}},"_embedded":{"venues":[{"name":"Cafe"}]}}
		]}}`))
	}))
	defer srv.Close()

	c := New("k")
	c.Endpoint = srv.URL
	events, err := c.Search(context.Background(), Query{City: "Paris", CountryCode: "FR", StartDate: "2025-03-19", Keywords: []string{"music", "jazz"}})
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{Name: "Jazz Night", Date: "2025-03-19", Venue: "Olympia", URL: "https://tm/1"},
		{Name: "Quiet Set", Date: "2025-03-20", Venue: "Cafe", URL: "N/A"},
	}, events)
}

func TestToolResultShapes(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		w.WriteHeader(code)
		if code != http.StatusOK {
			_, _ = w.Write([]byte(`{"fault":{"faultstring":"Invalid ApiKey"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"page":{"totalElements":0}}`))
	}))
	defer srv.Close()

	c := New("k")
	c.Endpoint = srv.URL
	tool := NewTool(c)

	out, err := tool.Execute(context.Background(), `{"city":"Oslo","country_code":"no"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"No events found for this location."}`, out)

	status.Store(http.StatusUnauthorized)
	out, err = tool.Execute(context.Background(), `{"city":"Oslo","country_code":"NO"}`)
	require.NoError(t, err)
	var res map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res["error"], "Invalid ApiKey")

	_, err = New("").Search(context.Background(), Query{City: "Oslo"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
