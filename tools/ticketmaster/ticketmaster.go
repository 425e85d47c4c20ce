// Package ticketmaster searches events through the Ticketmaster Discovery API.
package ticketmaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
	webhttp "github.com/KamdynS/agent-contrib/tools/http"
)

// Endpoint is the Discovery API event search.
const Endpoint = "https://app.ticketmaster.com/discovery/v2/events.json"

// PageSize is the number of events requested per search.
const PageSize = 20

// NoEventsMessage is returned by the tool when a search comes back empty.
const NoEventsMessage = "No events found for this location."

// ErrNoAPIKey is returned when the client has no key.
var ErrNoAPIKey = errors.New("TICKETMASTER_KEY environment variable is required")

// Event is the slice of a Discovery event the assistant needs.
type Event struct {
	Name  string `json:"name"`
	Date  string `json:"date"`
	Venue string `json:"venue"`
	URL   string `json:"url"`
}

// Query narrows a search. StartDate is YYYY-MM-DD.
type Query struct {
	City        string
	CountryCode string
	StartDate   string
	Keywords    []string
}

// Client calls the Discovery API.
type Client struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// New returns a client with a 10s timeout.
func New(apiKey string) *Client {
	return &Client{APIKey: apiKey, Endpoint: Endpoint, Client: webhttp.NewClient(10*time.Second, 5)}
}

// Search returns matching events. An empty slice means no events.
func (c *Client) Search(ctx context.Context, q Query) ([]Event, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	params := url.Values{
		"apikey":      {c.APIKey},
		"city":        {q.City},
		"countryCode": {q.CountryCode},
		"size":        {fmt.Sprint(PageSize)},
	}
	if len(q.Keywords) > 0 {
		params.Set("keyword", strings.Join(q.Keywords, ","))
	}
	if q.StartDate != "" {
		params.Set("startDateTime", q.StartDate+"T00:00:00Z")
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
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ticketmaster: %s: %s", resp.Status, strings.TrimSpace(gjson.GetBytes(body, "fault.faultstring").String()))
	}
	return parseEvents(body), nil
}

func parseEvents(body []byte) []Event {
	events := []Event{}
	gjson.GetBytes(body, "_embedded.events").ForEach(func(_, ev gjson.Result) bool {
		link := ev.Get("url").String()
		if link == "" {
			link = "N/A"
		}
		events = append(events, Event{
			Name:  ev.Get("name").String(),
			Date:  ev.Get("dates.start.localDate").String(),
			Venue: ev.Get("_embedded.venues.0.name").String(),
			URL:   link,
		})
		return true
	})
	return events
}

// Result wraps a search in the shape the assistant expects:
// {"events":[...]}, {"message":...} or {"error":...}.
func (c *Client) Result(ctx context.Context, q Query) map[string]any {
	log := obs.Component("ticketmaster")
	events, err := c.Search(ctx, q)
	if err != nil {
		log.Error().Err(err).Str("city", q.City).Msg("events search failed")
		return map[string]any{"error": err.Error()}
	}
	if len(events) == 0 {
		log.Info().Str("city", q.City).Msg("no events found")
		return map[string]any{"message": NoEventsMessage}
	}
	log.Info().Str("city", q.City).Int("count", len(events)).Msg("events found")
	return map[string]any{"events": events}
}

// Args is the get_ticketmaster_events input.
type Args struct {
	City        string   `json:"city" jsonschema:"description=City where the events are searched" validate:"required"`
	CountryCode string   `json:"country_code" jsonschema:"description=ISO Alpha-2 country code (US or GB or CA etc.)" validate:"required,len=2"`
	StartDate   string   `json:"start_date" jsonschema:"description=Start date for the event search (YYYY-MM-DD format)" validate:"omitempty,datetime=2006-01-02"`
	Keywords    []string `json:"keywords,omitempty" jsonschema:"description=Optional keywords for event search (e.g. music or concert)"`
}

// NewTool exposes c as get_ticketmaster_events.
func NewTool(c *Client) tools.Tool {
	return tools.NewFunc("get_ticketmaster_events", "Fetch upcoming events from Ticketmaster.",
		func(ctx context.Context, a Args) (map[string]any, error) {
			return c.Result(ctx, Query{City: a.City, CountryCode: strings.ToUpper(a.CountryCode), StartDate: a.StartDate, Keywords: a.Keywords}), nil
		})
}
