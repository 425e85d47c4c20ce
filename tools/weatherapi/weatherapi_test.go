package weatherapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
 "location":{"name":"Lyon","country":"France","localtime":"2025-03-19 10:00"},
 "current":{"temp_c":12.5,"humidity":70,"condition":{"text":"Partly cloudy"}},
 "forecast":{"forecastday":[
  {"date":"2025-03-19","day":{"maxtemp_c":15.1,"mintemp_c":6.2,"daily_chance_of_rain":20,"maxwind_kph":14.4,"condition":{"text":"Sunny"}}},
  {"date":"2025-03-20","day":{"maxtemp_c":11,"mintemp_c":5,"daily_chance_of_rain":85,"maxwind_kph":30,"condition":{"text":"Rain"}}}
 ]}}`

func TestForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Equal(t, "Lyon", r.URL.Query().Get("q"))
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	c := New("k")
	c.Endpoint = srv.URL
	f, err := c.Forecast(context.Background(), "Lyon", 0)
	require.NoError(t, err)
	assert.Equal(t, "Lyon", f.Location)
	assert.Equal(t, "Partly cloudy", f.Current.Condition)
	require.Len(t, f.Days, 2)
	assert.Equal(t, Day{Date: "2025-03-20", Condition: "Rain", MaxTempC: 11, MinTempC: 5, ChanceOfRain: 85, MaxWindKph: 30}, f.Days[1])
}

func TestClampDays(t *testing.T) {
	assert.Equal(t, 7, ClampDays(0))
	assert.Equal(t, 1, ClampDays(-3))
	assert.Equal(t, 14, ClampDays(30))
	assert.Equal(t, 3, ClampDays(3))
}

func TestToolReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	}))
	defer srv.Close()

	c := New("k")
	c.Endpoint = srv.URL
	out, err := NewTool(c).Execute(context.Background(), `{"location":"Nowhere"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Could not fetch weather for Nowhere: weatherapi: No matching location found."}`, out)
}
