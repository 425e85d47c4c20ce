// Package weatherapi is a small WeatherAPI.com forecast client.
package weatherapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/KamdynS/agent-contrib/tools"
	webhttp "github.com/KamdynS/agent-contrib/tools/http"
)

// Endpoint is the forecast API.
const Endpoint = "https://api.weatherapi.com/v1/forecast.json"

const (
	DefaultDays = 7
	MaxDays     = 14
)

// ErrNoAPIKey is returned when the client has no key.
var ErrNoAPIKey = errors.New("WEATHERAPI_KEY environment variable is required")

// Day is one forecast day.
type Day struct {
	Date         string  `json:"date"`
	Condition    string  `json:"condition"`
	MaxTempC     float64 `json:"max_temp_c"`
	MinTempC     float64 `json:"min_temp_c"`
	ChanceOfRain int64   `json:"chance_of_rain"`
	MaxWindKph   float64 `json:"max_wind_kph"`
}

// Forecast summarises a forecast response.
type Forecast struct {
	Location  string `json:"location"`
	Country   string `json:"country"`
	LocalTime string `json:"local_time"`
	Current   struct {
		TempC     float64 `json:"temp_c"`
		Condition string  `json:"condition"`
		Humidity  int64   `json:"humidity"`
	} `json:"current"`
	Days []Day `json:"forecast"`
}

// Client calls WeatherAPI.
type Client struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// New returns a client with a 10s timeout.
func New(apiKey string) *Client {
	return &Client{APIKey: apiKey, Endpoint: Endpoint, Client: webhttp.NewClient(10*time.Second, 5)}
}

// ClampDays maps a requested horizon onto 1..MaxDays; zero means DefaultDays.
func ClampDays(days int) int {
	switch {
	case days == 0:
		return DefaultDays
	case days < 1:
		return 1
	case days > MaxDays:
		return MaxDays
	}
	return days
}

// Forecast fetches the forecast for location.
func (c *Client) Forecast(ctx context.Context, location string, days int) (*Forecast, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if strings.TrimSpace(location) == "" {
		return nil, errors.New("weatherapi: location is required")
	}
	params := url.Values{
		"key":  {c.APIKey},
		"q":    {location},
		"days": {strconv.Itoa(ClampDays(days))},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", webhttp.UserAgent)
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("weatherapi: %s", msg)
	}
	return parseForecast(body), nil
}

func parseForecast(body []byte) *Forecast {
	res := gjson.ParseBytes(body)
	f := &Forecast{
		Location:  res.Get("location.name").String(),
		Country:   res.Get("location.country").String(),
		LocalTime: res.Get("location.localtime").String(),
		Days:      []Day{},
	}
	f.Current.TempC = res.Get("current.temp_c").Float()
	f.Current.Condition = res.Get("current.condition.text").String()
	f.Current.Humidity = res.Get("current.humidity").Int()
	res.Get("forecast.forecastday").ForEach(func(_, d gjson.Result) bool {
		f.Days = append(f.Days, Day{
			Date:         d.Get("date").String(),
			Condition:    d.Get("day.condition.text").String(),
			MaxTempC:     d.Get("day.maxtemp_c").Float(),
			MinTempC:     d.Get("day.mintemp_c").Float(),
			ChanceOfRain: d.Get("day.daily_chance_of_rain").Int(),
			MaxWindKph:   d.Get("day.maxwind_kph").Float(),
		})
		return true
	})
	return f
}

// Args is the get_weather input.
type Args struct {
	Location string `json:"location" jsonschema:"description=City or place to forecast" validate:"required"`
	Days     int    `json:"days,omitempty" jsonschema:"description=Number of forecast days (1-14),default=7" validate:"omitempty,min=1,max=14"`
}

// NewTool exposes c as get_weather. Failures come back as {"error": ...}.
func NewTool(c *Client) tools.Tool {
	return tools.NewFunc("get_weather", "Get the current weather and forecast for a city.",
		func(ctx context.Context, a Args) (any, error) {
			f, err := c.Forecast(ctx, a.Location, a.Days)
			if err != nil {
				return map[string]string{"error": fmt.Sprintf("Could not fetch weather for %s: %v", a.Location, err)}, nil
			}
			return f, nil
		})
}
